package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/modules"
	"github.com/coho-storage/blobwarden/modules/impl/vault"
	"github.com/coho-storage/blobwarden/pkg/kvstore"
	"github.com/coho-storage/blobwarden/pkg/ledger"
	"github.com/coho-storage/blobwarden/pkg/transport"
	"github.com/coho-storage/blobwarden/pkg/txexec"
	"github.com/coho-storage/blobwarden/testutil/testmodules"
)

const gib = uint64(1) << 30

type testEnv struct {
	monitor *Monitor
	vault   *vault.Vault
	ledger  *ledger.MemLedger
	exec    *txexec.MemExecutor
	cfg     *modules.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	scfg, _ := testmodules.MockSafeConfig(func(cfg *modules.Config) {
		cfg.Expiry.Enabled = true
		cfg.Expiry.CheckInterval = modules.Duration(time.Hour)
		cfg.Expiry.SignerAddress = "0xsigner"
	})

	vstore := vault.New(kvstore.NewMemKVStore())
	lapi := ledger.NewMem()
	lapi.SetUsage(25*gib, 100*gib)
	executor := txexec.NewMem()

	return &testEnv{
		monitor: New(scfg, vstore, lapi, executor),
		vault:   vstore,
		ledger:  lapi,
		exec:    executor,
		cfg:     scfg.Config,
	}
}

// addRecord stores a vault record expiring in the given number of days and
// marks the blob available on the ledger.
func (e *testEnv) addRecord(t *testing.T, payload string, expiresInDays float64) *core.BlobRecord {
	t.Helper()

	now := time.Now()
	record := &core.BlobRecord{
		BlobID:     transport.DeriveBlobID([]byte(payload)),
		VaultID:    core.DefaultVaultID,
		Size:       uint64(len(payload)),
		UploadedAt: now.Add(-24 * time.Hour),
		ExpiresAt:  now.Add(time.Duration(expiresInDays * 24 * float64(time.Hour))),
	}
	require.NoError(t, e.vault.PutBlobRecord(context.Background(), record))
	e.ledger.SetAvailable(record.BlobID, true)
	return record
}

func TestCheckRenewsUrgentAndWarnsDistant(t *testing.T) {
	env := newTestEnv(t)

	urgent := env.addRecord(t, "urgent-blob", 2)   // inside auto-renew window (3d)
	distant := env.addRecord(t, "distant-blob", 5) // inside warning window (7d) only

	var warned []core.BlobID
	env.monitor.OnWarning = func(r core.BlobRecord, _ time.Duration) {
		warned = append(warned, r.BlobID)
	}

	env.monitor.Check(context.Background())

	exts := env.exec.Extensions()
	require.Len(t, exts, 1)
	require.Equal(t, urgent.BlobID, exts[0].BlobID)
	require.Equal(t, core.Epoch(30), exts[0].AdditionalEpochs)
	require.Equal(t, "0xsigner", exts[0].SignerAddr)

	require.Equal(t, []core.BlobID{distant.BlobID}, warned)

	got, err := env.vault.BlobRecord(context.Background(), urgent.BlobID, urgent.VaultID)
	require.NoError(t, err)
	require.True(t, got.ExpiresAt.Equal(urgent.ExpiresAt.Add(30*24*time.Hour)))
}

func TestCheckSkipsBatchOverQuotaThreshold(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Expiry.Storage.CheckThreshold = 20
	env.ledger.SetUsage(95*gib, 100*gib)

	env.addRecord(t, "urgent-a", 1)
	env.addRecord(t, "urgent-b", 2)

	env.monitor.Check(context.Background())

	require.Empty(t, env.exec.Extensions(), "no renewal may run while usage is above the threshold")
}

func TestCheckSkipsBatchOnUsageError(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.SetUsageErr(context.DeadlineExceeded)

	env.addRecord(t, "urgent", 1)

	env.monitor.Check(context.Background())

	require.Empty(t, env.exec.Extensions())
}

func TestCheckContinuesPastUnavailableBlob(t *testing.T) {
	env := newTestEnv(t)

	missing := env.addRecord(t, "missing-blob", 1)
	env.ledger.SetAvailable(missing.BlobID, false)
	healthy := env.addRecord(t, "healthy-blob", 2)

	env.monitor.Check(context.Background())

	exts := env.exec.Extensions()
	require.Len(t, exts, 1)
	require.Equal(t, healthy.BlobID, exts[0].BlobID)
}

func TestRepeatedChecksRenewOnce(t *testing.T) {
	env := newTestEnv(t)
	record := env.addRecord(t, "renew-once", 2)

	env.monitor.Check(context.Background())
	env.monitor.Check(context.Background())

	// the first renewal pushed the expiry out of both windows, so the
	// second pass finds nothing to do
	require.Len(t, env.exec.Extensions(), 1)

	got, err := env.vault.BlobRecord(context.Background(), record.BlobID, record.VaultID)
	require.NoError(t, err)
	require.True(t, got.ExpiresAt.Equal(record.ExpiresAt.Add(30*24*time.Hour)))
}

func TestRenewBlobOnDemand(t *testing.T) {
	env := newTestEnv(t)
	// far from expiry; on-demand renewal does not care
	record := env.addRecord(t, "on-demand", 60)

	renewed, err := env.monitor.RenewBlob(context.Background(), record.BlobID, record.VaultID)
	require.NoError(t, err)
	require.True(t, renewed.ExpiresAt.Equal(record.ExpiresAt.Add(30*24*time.Hour)))

	exts := env.exec.Extensions()
	require.Len(t, exts, 1)
	require.Equal(t, record.BlobID, exts[0].BlobID)
}

func TestRenewBlobQuotaExceeded(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Expiry.Storage.CheckThreshold = 20
	env.ledger.SetUsage(95*gib, 100*gib)
	record := env.addRecord(t, "blocked", 2)

	_, err := env.monitor.RenewBlob(context.Background(), record.BlobID, record.VaultID)
	require.ErrorIs(t, err, core.ErrQuotaExceeded)
	require.Empty(t, env.exec.Extensions())
}

func TestRenewBlobRecordNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.monitor.RenewBlob(context.Background(), transport.DeriveBlobID([]byte("untracked")), "")
	require.ErrorIs(t, err, core.ErrRecordNotFound)
}

func TestExpiringBlobsDefaultWindow(t *testing.T) {
	env := newTestEnv(t)
	soon := env.addRecord(t, "soon", 2)
	env.addRecord(t, "far", 60)

	records, err := env.monitor.ExpiringBlobs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, soon.BlobID, records[0].BlobID)
}

func TestStartDisabledIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Expiry.Enabled = false

	require.NoError(t, env.monitor.Start(context.Background()))
	env.monitor.Stop()
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Expiry.AutoRenewThresholdDays = 10
	env.cfg.Expiry.WarningThresholdDays = 7

	require.Error(t, env.monitor.Start(context.Background()))
}

func TestStartStopLifecycle(t *testing.T) {
	env := newTestEnv(t)
	record := env.addRecord(t, "startup-renewal", 1)

	require.NoError(t, env.monitor.Start(context.Background()))
	require.Error(t, env.monitor.Start(context.Background()), "second start must fail")

	// the initial pass runs promptly after Start
	require.Eventually(t, func() bool {
		return len(env.exec.Extensions()) == 1
	}, time.Second, 5*time.Millisecond)

	env.monitor.Stop()
	env.monitor.Stop() // idempotent

	require.Equal(t, record.BlobID, env.exec.Extensions()[0].BlobID)
}
