package testmodules

import (
	"sync"

	"github.com/coho-storage/blobwarden/modules"
)

// MockSafeConfig builds a SafeConfig around the defaults, letting the test
// tweak fields through the initializer before the config is shared.
func MockSafeConfig(initializer func(cfg *modules.Config)) (*modules.SafeConfig, sync.Locker) {
	cfg := modules.DefaultConfig(false)
	if initializer != nil {
		initializer(&cfg)
	}

	var lock sync.RWMutex

	return &modules.SafeConfig{
		Config: &cfg,
		Locker: lock.RLocker(),
	}, &lock
}
