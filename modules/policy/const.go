package policy

import "time"

// The storage network advances one epoch per day. Lease durations
// configured in days convert 1:1 into additional epochs.
const (
	EpochDuration = 24 * time.Hour
	EpochsPerDay  = 1
)

const (
	// DefaultFetchAttempts bounds the verifier's fetch-with-failover loop.
	DefaultFetchAttempts = 3

	// Backoff curve between fetch attempts.
	FetchBackoffMin    = 200 * time.Millisecond
	FetchBackoffMax    = 5 * time.Second
	FetchBackoffFactor = 2

	DefaultMonitorInterval    = 2 * time.Second
	DefaultMonitorMaxAttempts = 30

	// Ledger blob objects are cached briefly so that availability polls and
	// attribute checks against the same object stay cheap.
	LedgerObjectCacheTTL = 1 * time.Second
)

const (
	DefaultWarningThresholdDays   = 7
	DefaultAutoRenewThresholdDays = 3
	DefaultRenewalPeriodDays      = 30
	DefaultCheckIntervalMinutes   = 60

	DefaultStorageMinAllocation  = 1 << 20 // 1 MiB
	DefaultStorageCheckThreshold = 80      // percent
)
