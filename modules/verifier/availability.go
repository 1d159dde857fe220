package verifier

import (
	"context"
	"fmt"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/modules/policy"
)

// MonitorBlobAvailability polls the blob's ledger object until a
// certification epoch appears or the attempt budget is spent. Only
// metadata is fetched per poll; blob bytes are never re-read. Exhausting
// the budget is not an error; the caller inspects the last observed state.
func (v *Verifier) MonitorBlobAvailability(
	ctx context.Context,
	blobID core.BlobID,
	opts core.MonitorOptions,
) (*core.MonitorResult, error) {
	if _, err := core.ParseBlobID(blobID.String()); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrVerificationFailed, err)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = v.scfg.MustVerifyConfig().MonitorInterval.Std()
	}
	if interval <= 0 {
		interval = policy.DefaultMonitorInterval
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = v.scfg.MustVerifyConfig().MonitorMaxAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = policy.DefaultMonitorMaxAttempts
	}

	result := &core.MonitorResult{}

	for result.Attempts < maxAttempts {
		result.Attempts++

		obj, err := v.blobObject(ctx, blobID, true)
		if err != nil {
			// not on the ledger yet, or a transient query failure; either
			// way the next poll may succeed
			log.Debugw("availability poll", "blob", blobID, "attempt", result.Attempts, "err", err)
		} else {
			result.Object = obj
			if obj.Certified() {
				result.Certified = true
				log.Infow("blob certified", "blob", blobID, "attempts", result.Attempts, "epoch", *obj.CertifiedEpoch)
				return result, nil
			}
		}

		if result.Attempts < maxAttempts {
			if err := sleepCtx(ctx, interval); err != nil {
				return result, err
			}
		}
	}

	log.Warnw("poll budget exhausted without certification", "blob", blobID, "attempts", result.Attempts)
	return result, nil
}
