// Package verifier implements blob integrity verification against the
// storage network: fetch with node failover, checksum comparison, on-ledger
// certification and attribute checks, and write-path verification.
package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jpillora/backoff"
	"github.com/patrickmn/go-cache"
	"go.opencensus.io/stats"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/metrics"
	"github.com/coho-storage/blobwarden/modules"
	"github.com/coho-storage/blobwarden/modules/impl/hasher"
	"github.com/coho-storage/blobwarden/modules/impl/nodes"
	"github.com/coho-storage/blobwarden/modules/policy"
	"github.com/coho-storage/blobwarden/pkg/ledger"
	"github.com/coho-storage/blobwarden/pkg/logging"
	"github.com/coho-storage/blobwarden/pkg/transport"
)

var log = logging.New("verifier")

func New(
	scfg *modules.SafeConfig,
	tclient transport.Client,
	lapi ledger.API,
	registry *nodes.Registry,
	vault core.VaultStore,
) *Verifier {
	return &Verifier{
		scfg:      scfg,
		transport: tclient,
		ledger:    lapi,
		registry:  registry,
		vault:     vault,
		objCache:  cache.New(policy.LedgerObjectCacheTTL, 10*policy.LedgerObjectCacheTTL),
	}
}

// Verifier is safe for concurrent use. Its node registry is owned
// exclusively by this instance and guarded internally.
type Verifier struct {
	scfg      *modules.SafeConfig
	transport transport.Client
	ledger    ledger.API
	registry  *nodes.Registry

	// vault is optional; when set, verified uploads are recorded in it.
	vault core.VaultStore

	objCache *cache.Cache
}

// VerifyBlob fetches the blob with failover and bounded retries, compares
// its digest set against the one computed over expected, and runs the
// optional ledger checks. Attempts counts every fetch tried, failed ones
// included.
func (v *Verifier) VerifyBlob(
	ctx context.Context,
	blobID core.BlobID,
	expected []byte,
	meta *core.BlobMetadata,
	opts core.VerificationOptions,
) (*core.VerificationResult, error) {
	if _, err := core.ParseBlobID(blobID.String()); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrVerificationFailed, err)
	}

	data, attempts, err := v.fetchWithFailover(ctx, blobID)
	if err != nil {
		return &core.VerificationResult{Success: false, Attempts: attempts}, err
	}

	stats.Record(ctx, metrics.VerifierFetchAttempts.M(int64(attempts)))

	expectedSums := hasher.Digest(expected)
	actualSums := hasher.Digest(data)
	if diff := expectedSums.Diff(actualSums); len(diff) != 0 {
		stats.Record(ctx, metrics.VerifierChecksumMismatch.M(1))
		log.Warnw("checksum mismatch", "blob", blobID, "algos", diff, "attempts", attempts)
		return &core.VerificationResult{Success: false, Attempts: attempts},
			fmt.Errorf("%w: blob %s disagrees on %v", core.ErrChecksumMismatch, blobID, diff)
	}

	details := &core.VerificationDetails{}

	if opts.RequireCertification || opts.VerifySmartContract || opts.VerifyAttributes {
		obj, err := v.blobObject(ctx, blobID, false)
		if err != nil {
			if opts.RequireCertification {
				return &core.VerificationResult{Success: false, Attempts: attempts},
					fmt.Errorf("%w: blob %s: %s", core.ErrCertificationRequired, blobID, err)
			}
			log.Warnw("ledger object unavailable for soft checks", "blob", blobID, "err", err)
		}

		if obj != nil {
			details.Certified = obj.Certified()
			if opts.VerifyAttributes || opts.VerifySmartContract {
				details.AttributeMismatches = attributeMismatches(obj, expected, meta)
			}
		}

		if opts.RequireCertification && !details.Certified {
			return &core.VerificationResult{Success: false, Attempts: attempts, Details: details},
				fmt.Errorf("%w: blob %s has no certified epoch", core.ErrCertificationRequired, blobID)
		}
	}

	return &core.VerificationResult{
		Success:  true,
		Attempts: attempts,
		Details:  details,
	}, nil
}

// fetchWithFailover walks the registry's candidate order, recording
// outcomes so a healthy replica gets promoted ahead of a failing primary.
// Transient errors are retried up to the configured attempt budget with
// exponential backoff in between.
func (v *Verifier) fetchWithFailover(ctx context.Context, blobID core.BlobID) ([]byte, int, error) {
	maxAttempts := v.scfg.MustVerifyConfig().FetchAttempts
	if maxAttempts <= 0 {
		maxAttempts = policy.DefaultFetchAttempts
	}

	bo := &backoff.Backoff{
		Min:    policy.FetchBackoffMin,
		Max:    policy.FetchBackoffMax,
		Factor: policy.FetchBackoffFactor,
		Jitter: true,
	}

	var merr *multierror.Error
	tried := map[string]struct{}{}

	attempts := 0
	for attempts < maxAttempts {
		node := v.nextCandidate(tried)
		attempts++

		data, err := v.transport.ReadFrom(ctx, node, blobID)
		if err == nil {
			v.registry.RecordOutcome(node, true)
			return data, attempts, nil
		}

		v.registry.RecordOutcome(node, false)
		tried[node] = struct{}{}
		merr = multierror.Append(merr, err)

		log.Warnw("fetch attempt failed", "blob", blobID, "node", node, "attempt", attempts, "err", err)

		if attempts < maxAttempts {
			if err := sleepCtx(ctx, bo.Duration()); err != nil {
				return nil, attempts, err
			}
		}
	}

	return nil, attempts, fmt.Errorf(
		"%w: blob %s after %d attempts: %s",
		core.ErrRetryExhausted, blobID, attempts, merr.ErrorOrNil(),
	)
}

func (v *Verifier) nextCandidate(tried map[string]struct{}) string {
	cands := v.registry.Candidates()
	for _, cand := range cands {
		if _, ok := tried[cand]; !ok {
			return cand
		}
	}

	// every node failed this round; start over at the preferred one
	for url := range tried {
		delete(tried, url)
	}
	return cands[0]
}

// blobObject returns the ledger object, served from a short-TTL cache
// unless fresh is set.
func (v *Verifier) blobObject(ctx context.Context, blobID core.BlobID, fresh bool) (*core.BlobObject, error) {
	key := blobID.String()
	if !fresh {
		if cached, ok := v.objCache.Get(key); ok {
			return cached.(*core.BlobObject), nil
		}
	}

	obj, err := v.ledger.GetBlobObject(ctx, blobID)
	if err != nil {
		return nil, err
	}

	v.objCache.Set(key, obj, cache.DefaultExpiration)
	return obj, nil
}

// attributeMismatches cross-checks ledger metadata against the caller's
// expectations. Mismatches are soft: reported, not fatal.
func attributeMismatches(obj *core.BlobObject, expected []byte, meta *core.BlobMetadata) []string {
	var mismatches []string

	variant, err := obj.Metadata.Version()
	if err != nil {
		return []string{"metadata-version"}
	}
	if variant != "V1" {
		return []string{"metadata-version"}
	}

	v1 := obj.Metadata.V1

	if obj.Storage.Size != 0 && obj.Storage.Size < uint64(len(expected)) {
		mismatches = append(mismatches, "storage-size")
	}

	if meta == nil {
		return mismatches
	}

	if meta.FileName != "" && v1.FileName != meta.FileName {
		mismatches = append(mismatches, "file-name")
	}
	if meta.Size != 0 && v1.Size != meta.Size {
		mismatches = append(mismatches, "size")
	}
	if meta.MimeType != "" && v1.MimeType != meta.MimeType {
		mismatches = append(mismatches, "mime-type")
	}

	return mismatches
}

// StorageProviders enumerates the providers currently holding the blob.
func (v *Verifier) StorageProviders(ctx context.Context, blobID core.BlobID) ([]string, error) {
	if _, err := core.ParseBlobID(blobID.String()); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrVerificationFailed, err)
	}

	return v.transport.Providers(ctx, blobID)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
