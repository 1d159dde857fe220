package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/modules/impl/hasher"
	"github.com/coho-storage/blobwarden/modules/policy"
)

// VerifyUpload writes the payload to the network and immediately verifies
// the write: read-back digest comparison, optional bounded wait for
// certification, and an advisory minimum-provider check.
func (v *Verifier) VerifyUpload(ctx context.Context, data []byte, opts core.UploadOptions) (*core.UploadResult, error) {
	// write failures propagate unmodified; retries, if any, belong to the
	// transport layer
	blobID, err := v.transport.Write(ctx, data)
	if err != nil {
		return nil, err
	}

	// read back right away to catch silent corruption at write time
	if _, err := v.VerifyBlob(ctx, blobID, data, nil, core.VerificationOptions{}); err != nil {
		return nil, fmt.Errorf("read-back verification of blob %s: %w", blobID, err)
	}

	result := &core.UploadResult{
		BlobID:    blobID,
		Checksums: hasher.Digest(data),
	}

	eg, ectx := errgroup.WithContext(ctx)

	if opts.WaitForCertification {
		eg.Go(func() error {
			return v.waitCertified(ectx, blobID, opts.WaitTimeout, result)
		})
	}

	eg.Go(func() error {
		providers, err := v.transport.Providers(ectx, blobID)
		if err != nil {
			log.Warnw("provider enumeration failed", "blob", blobID, "err", err)
			return nil
		}
		result.Providers = len(providers)
		return nil
	})

	eg.Go(func() error {
		ok, err := v.ledger.VerifyAvailability(ectx, blobID)
		if err != nil {
			log.Warnw("proof-of-availability check failed", "blob", blobID, "err", err)
			return nil
		}
		result.PoAComplete = ok
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result.HasMinProviders = opts.MinProviders <= 0 || result.Providers >= opts.MinProviders

	v.recordUpload(ctx, result, data)

	return result, nil
}

func (v *Verifier) waitCertified(ctx context.Context, blobID core.BlobID, waitTimeout time.Duration, result *core.UploadResult) error {
	if waitTimeout <= 0 {
		waitTimeout = time.Duration(policy.DefaultMonitorMaxAttempts) * policy.DefaultMonitorInterval
	}

	interval := v.scfg.MustVerifyConfig().MonitorInterval.Std()
	if interval <= 0 {
		interval = policy.DefaultMonitorInterval
	}
	// keep several polls within the window even for tight timeouts
	if interval > waitTimeout/4 {
		interval = waitTimeout / 4
		if interval < time.Millisecond {
			interval = time.Millisecond
		}
	}

	wctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()

	mres, err := v.MonitorBlobAvailability(wctx, blobID, core.MonitorOptions{
		Interval:    interval,
		MaxAttempts: int(waitTimeout/interval) + 1,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: blob %s within %s", core.ErrCertificationTimeout, blobID, waitTimeout)
		}
		return err
	}

	if !mres.Certified {
		return fmt.Errorf("%w: blob %s within %s", core.ErrCertificationTimeout, blobID, waitTimeout)
	}

	result.Certified = true
	return nil
}

// recordUpload persists a BlobRecord for the verified upload when a vault
// is wired in. Bookkeeping only; failures are logged, never surfaced.
func (v *Verifier) recordUpload(ctx context.Context, result *core.UploadResult, data []byte) {
	if v.vault == nil {
		return
	}

	now := time.Now()
	expiry := now.Add(time.Duration(policy.DefaultRenewalPeriodDays) * policy.EpochDuration)
	if obj, err := v.blobObject(ctx, result.BlobID, false); err == nil {
		if leased := obj.Storage.EndEpoch - obj.Storage.StartEpoch; leased > 0 {
			expiry = now.Add(time.Duration(leased) * policy.EpochDuration)
		}
	}

	record := &core.BlobRecord{
		BlobID:     result.BlobID,
		VaultID:    core.DefaultVaultID,
		Size:       uint64(len(data)),
		Checksum:   result.Checksums[core.AlgoSha256],
		UploadedAt: now,
		ExpiresAt:  expiry,
	}

	if err := v.vault.PutBlobRecord(ctx, record); err != nil {
		log.Warnw("record upload in vault", "blob", result.BlobID, "err", err)
	}
}
