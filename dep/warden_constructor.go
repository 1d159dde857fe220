package dep

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/filecoin-project/go-jsonrpc"
	"go.uber.org/fx"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/modules"
	"github.com/coho-storage/blobwarden/modules/expiry"
	"github.com/coho-storage/blobwarden/modules/impl/nodes"
	"github.com/coho-storage/blobwarden/modules/impl/vault"
	"github.com/coho-storage/blobwarden/modules/verifier"
	"github.com/coho-storage/blobwarden/pkg/confmgr"
	"github.com/coho-storage/blobwarden/pkg/homedir"
	"github.com/coho-storage/blobwarden/pkg/kvstore"
	"github.com/coho-storage/blobwarden/pkg/ledger"
	"github.com/coho-storage/blobwarden/pkg/transport"
	"github.com/coho-storage/blobwarden/pkg/txexec"
)

type (
	UnderlyingKV  kvstore.KVStore
	ListenAddress string
	ConfDirPath   string
)

func BuildConfDirPath(home *homedir.Home) ConfDirPath {
	return ConfDirPath(home.Dir())
}

func BuildLocalConfigManager(gctx GlobalContext, lc fx.Lifecycle, confDir ConfDirPath) (confmgr.ConfigManager, error) {
	cfgmgr, err := confmgr.NewLocal(string(confDir))
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return cfgmgr.Run(gctx)
		},
		OnStop: func(ctx context.Context) error {
			return cfgmgr.Close(ctx)
		},
	})

	return cfgmgr, nil
}

func ProvideConfig(gctx GlobalContext, lc fx.Lifecycle, cfgmgr confmgr.ConfigManager, locker confmgr.WLocker) (*modules.Config, error) {
	cfg := modules.DefaultConfig(false)
	if err := cfgmgr.Load(gctx, modules.ConfigKey, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Expiry.Validate(); err != nil {
		return nil, err
	}

	buf := bytes.Buffer{}
	encode := toml.NewEncoder(&buf)
	encode.Indent = ""
	if err := encode.Encode(cfg); err != nil {
		return nil, err
	}

	log.Infof("initial cfg: \n%s\n", buf.String())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return cfgmgr.Watch(gctx, modules.ConfigKey, &cfg, locker, func() interface{} {
				c := modules.DefaultConfig(false)
				return &c
			})
		},
	})

	return &cfg, nil
}

func ProvideSafeConfig(cfg *modules.Config, locker confmgr.RLocker) (*modules.SafeConfig, error) {
	return &modules.SafeConfig{
		Config: cfg,
		Locker: locker,
	}, nil
}

func BuildUnderlyingKV(lc fx.Lifecycle, scfg *modules.SafeConfig, home *homedir.Home) (UnderlyingKV, error) {
	dbCfg := scfg.MustCommonConfig().DB
	if dbCfg == nil {
		dbCfg = modules.DefaultDBConfig()
	}

	switch dbCfg.Driver {
	case "badger", "Badger":
		baseDir := ""
		if dbCfg.Badger != nil {
			baseDir = dbCfg.Badger.BaseDir
		}
		if baseDir == "" {
			baseDir = home.Dir()
		}

		kv, err := kvstore.OpenBadger(kvstore.DefaultBadgerOption(filepath.Join(baseDir, "vault.db")))
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return kv.Run(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return kv.Close(ctx)
			},
		})

		return kv, nil

	case "mem", "Mem":
		return kvstore.NewMemKVStore(), nil

	default:
		return nil, fmt.Errorf("unsupported db driver '%s'", dbCfg.Driver)
	}
}

func BuildVaultStore(kv UnderlyingKV) core.VaultStore {
	return vault.New(kv)
}

func BuildTransportClient(scfg *modules.SafeConfig) transport.Client {
	tcfg := scfg.MustCommonConfig().Transport
	return transport.NewHTTP(transport.HTTPConfig{
		Publisher: tcfg.Publisher,
		Timeout:   tcfg.Timeout.Std(),
	})
}

func BuildNodeRegistry(scfg *modules.SafeConfig) *nodes.Registry {
	tcfg := scfg.MustCommonConfig().Transport
	return nodes.NewRegistry(tcfg.Primary, tcfg.Replicas)
}

func BuildLedgerClient(gctx GlobalContext, lc fx.Lifecycle, cfg *modules.Config, locker confmgr.RLocker) (ledger.API, error) {
	locker.Lock()
	api, token := extractAPIInfo(cfg.Common.API.Ledger, cfg.Common.API.LedgerToken)
	locker.Unlock()

	lcli, lcloser, err := ledger.New(gctx, api, token)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			lcloser()
			return nil
		},
	})

	return lcli, nil
}

func BuildTxExecClient(gctx GlobalContext, lc fx.Lifecycle, cfg *modules.Config, locker confmgr.RLocker) (txexec.API, error) {
	locker.Lock()
	api, token := extractAPIInfo(cfg.Common.API.TxExec, cfg.Common.API.TxExecToken)
	locker.Unlock()

	ecli, ecloser, err := txexec.New(gctx, api, token)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			ecloser()
			return nil
		},
	})

	return ecli, nil
}

func BuildVerifier(
	scfg *modules.SafeConfig,
	tclient transport.Client,
	lapi ledger.API,
	vstore core.VaultStore,
) *verifier.Verifier {
	return verifier.New(scfg, tclient, lapi, BuildNodeRegistry(scfg), vstore)
}

// ExpiryForceEnabled lets the daemon's --expiry flag start the monitor even
// when the config leaves it disabled.
type ExpiryForceEnabled bool

func BuildExpiryMonitor(
	gctx GlobalContext,
	lc fx.Lifecycle,
	scfg *modules.SafeConfig,
	vstore core.VaultStore,
	lapi ledger.API,
	executor txexec.API,
	force ExpiryForceEnabled,
) (*expiry.Monitor, error) {
	mon := expiry.New(scfg, vstore, lapi, executor)
	mon.ForceEnabled = bool(force)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return mon.Start(gctx)
		},
		OnStop: func(ctx context.Context) error {
			mon.Stop()
			return nil
		},
	})

	return mon, nil
}

func BuildWardenAPI(v *verifier.Verifier, mon *expiry.Monitor) core.APIFull {
	return &struct {
		core.VerifierAPI
		core.LifecycleAPI
	}{v, mon}
}

func BuildWardenAPIClient(gctx GlobalContext, lc fx.Lifecycle, listen ListenAddress) (*core.APIClient, error) {
	addr, err := net.ResolveTCPAddr("tcp", string(listen))
	if err != nil {
		return nil, err
	}

	ip := addr.IP
	if ip == nil || ip.Equal(net.IPv4zero) {
		ip = net.IPv4(127, 0, 0, 1)
	}

	endpoint := fmt.Sprintf("http://%s:%d/rpc/v%d", ip, addr.Port, core.MajorVersion)

	var client core.APIClient
	closer, err := jsonrpc.NewMergeClient(
		gctx,
		endpoint,
		core.APINamespace,
		[]interface{}{&client.VerifierAPIClient.Internal, &client.LifecycleAPIClient.Internal},
		nil,
		jsonrpc.WithRetry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("dial warden rpc %s: %w", endpoint, err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			closer()
			return nil
		},
	})

	return &client, nil
}
