package verifier

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/modules"
	"github.com/coho-storage/blobwarden/modules/impl/nodes"
	"github.com/coho-storage/blobwarden/pkg/ledger"
	"github.com/coho-storage/blobwarden/pkg/transport"
	"github.com/coho-storage/blobwarden/testutil/testmodules"
)

const (
	primaryNode = "http://aggregator-0.test"
	replicaNode = "http://aggregator-1.test"
)

type testEnv struct {
	verifier  *Verifier
	transport *transport.MemClient
	ledger    *ledger.MemLedger
	registry  *nodes.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	scfg, _ := testmodules.MockSafeConfig(func(cfg *modules.Config) {
		cfg.Verify.MonitorInterval = modules.Duration(2 * time.Millisecond)
	})

	tclient := transport.NewMem()
	lapi := ledger.NewMem()
	registry := nodes.NewRegistry(primaryNode, []string{replicaNode})

	return &testEnv{
		verifier:  New(scfg, tclient, lapi, registry, nil),
		transport: tclient,
		ledger:    lapi,
		registry:  registry,
	}
}

func (e *testEnv) seed(data []byte) core.BlobID {
	blobID := transport.DeriveBlobID(data)
	e.transport.Seed(blobID, data)
	return blobID
}

func (e *testEnv) seedLedgerObject(blobID core.BlobID, size uint64, certified bool) {
	obj := &core.BlobObject{
		ID:              blobID,
		RegisteredEpoch: 100,
		Storage: core.StorageResource{
			StartEpoch: 100,
			EndEpoch:   130,
			Size:       size,
		},
		Metadata: core.BlobObjectMetadata{
			V1: &core.BlobObjectMetadataV1{
				FileName: "report.pdf",
				Size:     size,
				MimeType: "application/pdf",
			},
		},
	}
	e.ledger.SetObject(obj)
	if certified {
		e.ledger.Certify(blobID, 105)
	}
}

func TestVerifyBlobSingleAttempt(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("integrity payload")
	blobID := env.seed(data)

	res, err := env.verifier.VerifyBlob(context.Background(), blobID, data, nil, core.VerificationOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 1, res.Attempts)
}

func TestVerifyBlobSucceedsOnThirdAttempt(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("eventually reachable")
	blobID := env.seed(data)

	// both nodes refuse once, then the retry round succeeds
	env.transport.FailEndpoint(primaryNode, 1)
	env.transport.FailEndpoint(replicaNode, 1)

	res, err := env.verifier.VerifyBlob(context.Background(), blobID, data, nil, core.VerificationOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 3, res.Attempts)
}

func TestVerifyBlobRetryExhausted(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("unreachable")
	blobID := env.seed(data)

	env.transport.FailEndpoint(primaryNode, 10)
	env.transport.FailEndpoint(replicaNode, 10)

	res, err := env.verifier.VerifyBlob(context.Background(), blobID, data, nil, core.VerificationOptions{})
	require.ErrorIs(t, err, core.ErrRetryExhausted)
	require.False(t, res.Success)
	require.Equal(t, 3, res.Attempts)
}

func TestVerifyBlobChecksumMismatchNotRetried(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("original content")
	blobID := env.seed(data)
	env.transport.Corrupt(blobID, []byte("tampered content"))

	res, err := env.verifier.VerifyBlob(context.Background(), blobID, data, nil, core.VerificationOptions{})
	require.ErrorIs(t, err, core.ErrChecksumMismatch)
	require.False(t, res.Success)
	require.Equal(t, 1, res.Attempts)
	require.Equal(t, 1, env.transport.Reads(), "a mismatch must not trigger a refetch")
}

func TestVerifyBlobInvalidID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.verifier.VerifyBlob(context.Background(), "not-a-blob-id", nil, nil, core.VerificationOptions{})
	require.ErrorIs(t, err, core.ErrVerificationFailed)
	require.ErrorIs(t, err, core.ErrInvalidBlobID)
	require.Zero(t, env.transport.Reads())
}

func TestVerifyBlobFailoverPromotesReplica(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("served by replica")
	blobID := env.seed(data)

	env.transport.FailEndpoint(primaryNode, 1)

	res, err := env.verifier.VerifyBlob(context.Background(), blobID, data, nil, core.VerificationOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 2, res.Attempts)

	// replica succeeded after the primary failed, so it now leads
	require.Equal(t, replicaNode, env.registry.Candidates()[0])

	// a later fetch goes straight to the replica
	res, err = env.verifier.VerifyBlob(context.Background(), blobID, data, nil, core.VerificationOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Attempts)
}

func TestVerifyBlobCertificationRequired(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("registered but uncertified")
	blobID := env.seed(data)
	env.seedLedgerObject(blobID, uint64(len(data)), false)

	res, err := env.verifier.VerifyBlob(context.Background(), blobID, data, nil, core.VerificationOptions{
		RequireCertification: true,
	})
	require.ErrorIs(t, err, core.ErrCertificationRequired)
	require.False(t, res.Success)
	require.NotNil(t, res.Details)
	require.False(t, res.Details.Certified)
}

func TestVerifyBlobCertificationRequiredObjectMissing(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("never registered")
	blobID := env.seed(data)

	_, err := env.verifier.VerifyBlob(context.Background(), blobID, data, nil, core.VerificationOptions{
		RequireCertification: true,
	})
	require.ErrorIs(t, err, core.ErrCertificationRequired)
}

func TestVerifyBlobCertifiedWithAttributes(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("fully certified")
	blobID := env.seed(data)
	env.seedLedgerObject(blobID, uint64(len(data)), true)

	res, err := env.verifier.VerifyBlob(context.Background(), blobID, data, &core.BlobMetadata{
		FileName: "report.pdf",
		Size:     uint64(len(data)),
		MimeType: "application/pdf",
	}, core.VerificationOptions{
		RequireCertification: true,
		VerifyAttributes:     true,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.True(t, res.Details.Certified)
	require.Empty(t, res.Details.AttributeMismatches)
}

func TestVerifyBlobAttributeMismatchIsSoft(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("attributes drifted")
	blobID := env.seed(data)
	env.seedLedgerObject(blobID, uint64(len(data)), true)

	res, err := env.verifier.VerifyBlob(context.Background(), blobID, data, &core.BlobMetadata{
		FileName: "other-name.bin",
		MimeType: "application/octet-stream",
	}, core.VerificationOptions{VerifyAttributes: true})
	require.NoError(t, err, "attribute mismatches report, they do not fail")
	require.True(t, res.Success)
	require.ElementsMatch(t, []string{"file-name", "mime-type"}, res.Details.AttributeMismatches)
}

func TestMonitorObservesCertification(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("certifying soon")
	blobID := env.seed(data)
	env.seedLedgerObject(blobID, uint64(len(data)), false)

	go func() {
		time.Sleep(20 * time.Millisecond)
		env.ledger.Certify(blobID, 111)
	}()

	res, err := env.verifier.MonitorBlobAvailability(context.Background(), blobID, core.MonitorOptions{
		Interval:    2 * time.Millisecond,
		MaxAttempts: 200,
	})
	require.NoError(t, err)
	require.True(t, res.Certified)
	require.Greater(t, res.Attempts, 1)
	require.NotNil(t, res.Object)
	require.Equal(t, core.Epoch(111), *res.Object.CertifiedEpoch)
}

func TestMonitorBudgetExhaustedIsNotAnError(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("never certifies")
	blobID := env.seed(data)
	env.seedLedgerObject(blobID, uint64(len(data)), false)

	res, err := env.verifier.MonitorBlobAvailability(context.Background(), blobID, core.MonitorOptions{
		Interval:    time.Millisecond,
		MaxAttempts: 5,
	})
	require.NoError(t, err)
	require.False(t, res.Certified)
	require.Equal(t, 5, res.Attempts)
	require.NotNil(t, res.Object, "the last observed state is still reported")
}

func TestMonitorCanceledContext(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("canceled mid-poll")
	blobID := env.seed(data)
	env.seedLedgerObject(blobID, uint64(len(data)), false)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res, err := env.verifier.MonitorBlobAvailability(ctx, blobID, core.MonitorOptions{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 1000,
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, res.Certified)
}

func TestStorageProviders(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("replicated widely")
	blobID := env.seed(data)
	env.transport.SetProviders(blobID, []string{"provider-a", "provider-b"})

	providers, err := env.verifier.StorageProviders(context.Background(), blobID)
	require.NoError(t, err)
	require.Len(t, providers, 2)

	_, err = env.verifier.StorageProviders(context.Background(), "bogus")
	require.ErrorIs(t, err, core.ErrVerificationFailed)
}

func TestVerifyUpload(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("fresh upload payload")
	blobID := transport.DeriveBlobID(data)
	env.seedLedgerObject(blobID, uint64(len(data)), true)
	env.transport.SetProviders(blobID, []string{"provider-a", "provider-b", "provider-c"})

	res, err := env.verifier.VerifyUpload(context.Background(), data, core.UploadOptions{
		WaitForCertification: true,
		WaitTimeout:          time.Second,
		MinProviders:         2,
	})
	require.NoError(t, err)
	require.Equal(t, blobID, res.BlobID)
	require.True(t, res.Certified)
	require.True(t, res.PoAComplete)
	require.Equal(t, 3, res.Providers)
	require.True(t, res.HasMinProviders)
	require.Contains(t, res.Checksums, core.AlgoSha256)
	require.Contains(t, res.Checksums, core.AlgoSha512)
}

func TestVerifyUploadWriteFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	writeErr := fmt.Errorf("publisher rejected the payload")
	env.transport.SetWriteErr(writeErr)

	_, err := env.verifier.VerifyUpload(context.Background(), []byte("doomed"), core.UploadOptions{})
	require.ErrorIs(t, err, writeErr)
}

func TestVerifyUploadCertificationTimeout(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("certification stalls")
	blobID := transport.DeriveBlobID(data)
	env.seedLedgerObject(blobID, uint64(len(data)), false)

	_, err := env.verifier.VerifyUpload(context.Background(), data, core.UploadOptions{
		WaitForCertification: true,
		WaitTimeout:          50 * time.Millisecond,
	})
	require.ErrorIs(t, err, core.ErrCertificationTimeout)
}

func TestVerifyUploadBelowMinProvidersIsAdvisory(t *testing.T) {
	env := newTestEnv(t)
	data := []byte("thinly replicated")
	blobID := transport.DeriveBlobID(data)
	env.seedLedgerObject(blobID, uint64(len(data)), true)
	env.transport.SetProviders(blobID, []string{"provider-a"})

	res, err := env.verifier.VerifyUpload(context.Background(), data, core.UploadOptions{
		MinProviders: 3,
	})
	require.NoError(t, err, "falling short of the provider target does not fail the upload")
	require.Equal(t, 1, res.Providers)
	require.False(t, res.HasMinProviders)
}
