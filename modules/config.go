package modules

import (
	"encoding"
	"fmt"
	"sync"
	"time"

	"github.com/coho-storage/blobwarden/modules/policy"
	"github.com/coho-storage/blobwarden/pkg/logging"
)

var log = logging.New("config")

const ConfigKey = "warden"

var (
	_ encoding.TextMarshaler   = Duration(0)
	_ encoding.TextUnmarshaler = (*Duration)(nil)
)

type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	td, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = Duration(td)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type SafeConfig struct {
	*Config
	sync.Locker
}

func (sc *SafeConfig) MustCommonConfig() CommonConfig {
	sc.Lock()
	defer sc.Unlock()

	return sc.Common
}

func (sc *SafeConfig) MustVerifyConfig() VerifyConfig {
	sc.Lock()
	defer sc.Unlock()

	return sc.Verify
}

func (sc *SafeConfig) MustExpiryConfig() ExpiryConfig {
	sc.Lock()
	defer sc.Unlock()

	return sc.Expiry
}

type CommonAPIConfig struct {
	Ledger      string
	LedgerToken string
	TxExec      string
	TxExecToken string
}

func defaultCommonAPIConfig() CommonAPIConfig {
	return CommonAPIConfig{}
}

type TransportConfig struct {
	// Publisher accepts writes; Primary and Replicas serve reads. Primary
	// is always tried first on a cold registry.
	Publisher string
	Primary   string
	Replicas  []string
	Timeout   Duration
}

func defaultTransportConfig(example bool) TransportConfig {
	cfg := TransportConfig{
		Timeout: Duration(30 * time.Second),
	}

	if example {
		cfg.Publisher = "http://publisher.example.com"
		cfg.Primary = "http://aggregator-0.example.com"
		cfg.Replicas = []string{
			"http://aggregator-1.example.com",
			"http://aggregator-2.example.com",
		}
	}

	return cfg
}

type BadgerDBConfig struct {
	BaseDir string
}

type DBConfig struct {
	Driver string
	Badger *BadgerDBConfig
}

func DefaultDBConfig() *DBConfig {
	return &DBConfig{
		Driver: "badger",
		Badger: &BadgerDBConfig{},
	}
}

type CommonConfig struct {
	API       CommonAPIConfig
	Transport TransportConfig
	DB        *DBConfig
}

func defaultCommonConfig(example bool) CommonConfig {
	return CommonConfig{
		API:       defaultCommonAPIConfig(),
		Transport: defaultTransportConfig(example),
		DB:        DefaultDBConfig(),
	}
}

type VerifyConfig struct {
	FetchAttempts      int
	MonitorInterval    Duration
	MonitorMaxAttempts int
}

func defaultVerifyConfig() VerifyConfig {
	return VerifyConfig{
		FetchAttempts:      policy.DefaultFetchAttempts,
		MonitorInterval:    Duration(policy.DefaultMonitorInterval),
		MonitorMaxAttempts: policy.DefaultMonitorMaxAttempts,
	}
}

type StorageQuotaConfig struct {
	// MinAllocation is the smallest allocation worth renewing, in bytes.
	MinAllocation uint64
	// CheckThreshold is the quota usage percentage above which renewals
	// are skipped entirely.
	CheckThreshold float64
}

type ExpiryConfig struct {
	Enabled                bool
	CheckInterval          Duration
	WarningThresholdDays   uint64
	AutoRenewThresholdDays uint64
	RenewalPeriodDays      uint64
	Storage                StorageQuotaConfig
	SignerAddress          string
}

func defaultExpiryConfig() ExpiryConfig {
	return ExpiryConfig{
		Enabled:                false,
		CheckInterval:          Duration(policy.DefaultCheckIntervalMinutes * time.Minute),
		WarningThresholdDays:   policy.DefaultWarningThresholdDays,
		AutoRenewThresholdDays: policy.DefaultAutoRenewThresholdDays,
		RenewalPeriodDays:      policy.DefaultRenewalPeriodDays,
		Storage: StorageQuotaConfig{
			MinAllocation:  policy.DefaultStorageMinAllocation,
			CheckThreshold: policy.DefaultStorageCheckThreshold,
		},
	}
}

func (c ExpiryConfig) Validate() error {
	if c.AutoRenewThresholdDays > c.WarningThresholdDays {
		return fmt.Errorf(
			"expiry config: auto-renew threshold (%dd) exceeds warning threshold (%dd)",
			c.AutoRenewThresholdDays,
			c.WarningThresholdDays,
		)
	}

	if c.RenewalPeriodDays == 0 {
		return fmt.Errorf("expiry config: renewal period must be positive")
	}

	return nil
}

type Config struct {
	Common CommonConfig
	Verify VerifyConfig
	Expiry ExpiryConfig
}

func DefaultConfig(example bool) Config {
	return Config{
		Common: defaultCommonConfig(example),
		Verify: defaultVerifyConfig(),
		Expiry: defaultExpiryConfig(),
	}
}
