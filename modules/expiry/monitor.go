// Package expiry watches the vault's blob records and keeps their storage
// leases alive: records nearing expiry raise warnings, records inside the
// auto-renew window get their leases extended on-ledger, subject to the
// account's storage quota.
package expiry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.opencensus.io/stats"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/metrics"
	"github.com/coho-storage/blobwarden/modules"
	"github.com/coho-storage/blobwarden/modules/policy"
	"github.com/coho-storage/blobwarden/pkg/ledger"
	"github.com/coho-storage/blobwarden/pkg/logging"
	"github.com/coho-storage/blobwarden/pkg/txexec"
)

var log = logging.New("expiry")

// WarningFunc is invoked for records nearing expiry that are not yet inside
// the auto-renew window.
type WarningFunc func(record core.BlobRecord, remaining time.Duration)

// RenewalFunc is invoked after a lease extension has been committed.
type RenewalFunc func(record core.BlobRecord, digest core.TxDigest, newExpiry time.Time)

func New(
	scfg *modules.SafeConfig,
	vault core.VaultStore,
	lapi ledger.API,
	executor txexec.API,
) *Monitor {
	return &Monitor{
		scfg:   scfg,
		vault:  vault,
		ledger: lapi,
		exec:   executor,
	}
}

// Monitor runs the periodic expiry check. Start and Stop may be called at
// most once each; Stop waits for an in-flight check to finish.
type Monitor struct {
	scfg   *modules.SafeConfig
	vault  core.VaultStore
	ledger ledger.API
	exec   txexec.API

	// optional notification hooks, set before Start
	OnWarning WarningFunc
	OnRenewal RenewalFunc

	// ForceEnabled starts the loop even when the config disables it.
	ForceEnabled bool

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func (m *Monitor) Start(ctx context.Context) error {
	cfg := m.scfg.MustExpiryConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !cfg.Enabled && !m.ForceEnabled {
		log.Info("expiry monitor disabled")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("expiry monitor already started")
	}
	m.started = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run(ctx)

	log.Infow("expiry monitor started",
		"interval", cfg.CheckInterval.Std(),
		"warning-days", cfg.WarningThresholdDays,
		"auto-renew-days", cfg.AutoRenewThresholdDays,
	)
	return nil
}

// Stop shuts the check loop down. A check already underway runs to
// completion before Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-doneCh
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.doneCh)

	interval := m.scfg.MustExpiryConfig().CheckInterval.Std()
	if interval <= 0 {
		interval = policy.DefaultCheckIntervalMinutes * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case <-m.stopCh:
			return

		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs a single expiry pass: list records inside the warning window,
// warn for the distant ones and renew the urgent ones. The whole renewal
// batch is skipped when quota usage sits above the configured threshold.
func (m *Monitor) Check(ctx context.Context) {
	cfg := m.scfg.MustExpiryConfig()

	warnWindow := time.Duration(cfg.WarningThresholdDays) * policy.EpochDuration
	records, err := m.vault.ExpiringBlobs(ctx, warnWindow)
	if err != nil {
		log.Errorw("list expiring blobs", "window", warnWindow, "err", err)
		return
	}

	if len(records) == 0 {
		log.Debugw("no blobs nearing expiry", "window", warnWindow)
		return
	}

	now := time.Now()
	renewWindow := time.Duration(cfg.AutoRenewThresholdDays) * policy.EpochDuration

	renewNow, warnOnly := lo.FilterReject(records, func(r core.BlobRecord, _ int) bool {
		return r.Remaining(now) <= renewWindow
	})

	for _, record := range warnOnly {
		remaining := record.Remaining(now)
		log.Warnw("blob lease nearing expiry",
			"blob", record.BlobID, "vault", record.VaultID, "remaining", remaining)
		if m.OnWarning != nil {
			m.OnWarning(record, remaining)
		}
	}

	if len(renewNow) == 0 {
		return
	}

	// one quota check gates the whole batch; renewing a subset under
	// pressure would only hasten the exhaustion
	if err := m.checkQuota(ctx, cfg); err != nil {
		stats.Record(ctx, metrics.ExpiryRenewalSkips.M(1))
		log.Errorw("renewal batch skipped", "blobs", len(renewNow), "err", err)
		return
	}

	for _, record := range renewNow {
		if ctx.Err() != nil {
			return
		}

		available, err := m.ledger.VerifyAvailability(ctx, record.BlobID)
		if err != nil {
			log.Errorw("availability check before renewal", "blob", record.BlobID, "err", err)
			continue
		}
		if !available {
			log.Warnw("skip renewal, blob not proven available", "blob", record.BlobID)
			continue
		}

		if _, err := m.renew(ctx, &record, cfg); err != nil {
			log.Errorw("renew blob lease", "blob", record.BlobID, "err", err)
		}
	}
}

func (m *Monitor) checkQuota(ctx context.Context, cfg modules.ExpiryConfig) error {
	usage, err := m.ledger.GetStorageUsage(ctx)
	if err != nil {
		return fmt.Errorf("query storage usage: %w", err)
	}

	usedPercentage := usage.UsedPercent()
	if usedPercentage > cfg.Storage.CheckThreshold {
		return fmt.Errorf(
			"%w: insufficient storage for renewal, usedPercentage %.1f exceeds threshold %.1f",
			core.ErrQuotaExceeded, usedPercentage, cfg.Storage.CheckThreshold,
		)
	}

	if free := usage.Total - usage.Used; free < cfg.Storage.MinAllocation {
		return fmt.Errorf(
			"%w: free space %d below minimum allocation %d",
			core.ErrQuotaExceeded, free, cfg.Storage.MinAllocation,
		)
	}

	return nil
}

// renew extends the blob's lease on-ledger and moves the vault record's
// expiry forward by the same span.
func (m *Monitor) renew(ctx context.Context, record *core.BlobRecord, cfg modules.ExpiryConfig) (*core.BlobRecord, error) {
	additional := core.Epoch(cfg.RenewalPeriodDays * policy.EpochsPerDay)
	signer := core.StaticSigner(cfg.SignerAddress)

	digest, err := m.exec.CreateStorageExtension(ctx, record.BlobID, additional, signer)
	if err != nil {
		return nil, fmt.Errorf("create storage extension: %w", err)
	}

	newExpiry := record.ExpiresAt.Add(time.Duration(additional) * policy.EpochDuration)
	if err := m.vault.UpdateBlobExpiry(ctx, record.BlobID, record.VaultID, newExpiry); err != nil {
		// the extension is already committed; the record catches up on a
		// later pass
		log.Warnw("vault expiry update failed after extension",
			"blob", record.BlobID, "tx", digest, "err", err)
	}

	stats.Record(ctx, metrics.ExpiryRenewals.M(1))
	log.Infow("storage lease extended",
		"blob", record.BlobID, "vault", record.VaultID, "tx", digest, "expires", newExpiry)

	if m.OnRenewal != nil {
		m.OnRenewal(*record, digest, newExpiry)
	}

	renewed := *record
	renewed.ExpiresAt = newExpiry
	return &renewed, nil
}

// RenewBlob renews a single blob on demand, regardless of how far off its
// expiry is. The quota gate still applies.
func (m *Monitor) RenewBlob(ctx context.Context, blobID core.BlobID, vaultID string) (*core.BlobRecord, error) {
	cfg := m.scfg.MustExpiryConfig()

	if err := m.checkQuota(ctx, cfg); err != nil {
		return nil, err
	}

	record, err := m.vault.BlobRecord(ctx, blobID, vaultID)
	if err != nil {
		return nil, err
	}

	return m.renew(ctx, record, cfg)
}

// ExpiringBlobs lists vault records whose leases end within the window. A
// non-positive window defaults to the configured warning threshold.
func (m *Monitor) ExpiringBlobs(ctx context.Context, within time.Duration) ([]core.BlobRecord, error) {
	if within <= 0 {
		within = time.Duration(m.scfg.MustExpiryConfig().WarningThresholdDays) * policy.EpochDuration
	}

	return m.vault.ExpiringBlobs(ctx, within)
}
