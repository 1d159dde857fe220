package dep

import (
	"sync"

	"github.com/dtynn/dix"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/modules"
	"github.com/coho-storage/blobwarden/modules/expiry"
	"github.com/coho-storage/blobwarden/modules/verifier"
	"github.com/coho-storage/blobwarden/pkg/confmgr"
	"github.com/coho-storage/blobwarden/pkg/ledger"
	"github.com/coho-storage/blobwarden/pkg/transport"
	"github.com/coho-storage/blobwarden/pkg/txexec"
)

// Product wires the shared infrastructure of the daemon: config management
// with hot reload, the local kv store, the vault, and the remote service
// clients.
func Product() dix.Option {
	cfgmu := &sync.RWMutex{}
	return dix.Options(
		dix.Override(new(confmgr.WLocker), cfgmu),
		dix.Override(new(confmgr.RLocker), cfgmu.RLocker()),
		dix.Override(new(confmgr.ConfigManager), BuildLocalConfigManager),
		dix.Override(new(ConfDirPath), BuildConfDirPath),
		dix.Override(new(*modules.Config), ProvideConfig),
		dix.Override(new(*modules.SafeConfig), ProvideSafeConfig),
		dix.Override(new(UnderlyingKV), BuildUnderlyingKV),
		dix.Override(new(core.VaultStore), BuildVaultStore),
		dix.Override(new(transport.Client), BuildTransportClient),
		dix.Override(new(ledger.API), BuildLedgerClient),
		dix.Override(new(txexec.API), BuildTxExecClient),
	)
}

// Warden wires the verification and lifecycle engines on top of Product.
func Warden(target ...interface{}) dix.Option {
	return dix.Options(
		dix.Override(new(*verifier.Verifier), BuildVerifier),
		dix.Override(new(ExpiryForceEnabled), ExpiryForceEnabled(false)),
		dix.Override(new(*expiry.Monitor), BuildExpiryMonitor),
		dix.Override(new(core.APIFull), BuildWardenAPI),
		dix.If(len(target) > 0, dix.Populate(InvokePopulate, target...)),
	)
}

// Offline swaps the remote service clients for in-memory ones, for tests
// and local experiments without a network.
func Offline() dix.Option {
	return dix.Options(
		dix.Override(new(transport.Client), func() transport.Client { return transport.NewMem() }),
		dix.Override(new(ledger.API), func() ledger.API { return ledger.NewMem() }),
		dix.Override(new(txexec.API), func() txexec.API { return txexec.NewMem() }),
	)
}

// APIClient wires a jsonrpc client against a running daemon, for cli
// commands.
func APIClient(target ...interface{}) dix.Option {
	cfgmu := &sync.RWMutex{}
	return dix.Options(
		dix.Override(new(confmgr.WLocker), cfgmu),
		dix.Override(new(confmgr.RLocker), cfgmu.RLocker()),
		dix.Override(new(confmgr.ConfigManager), BuildLocalConfigManager),
		dix.Override(new(ConfDirPath), BuildConfDirPath),
		dix.Override(new(*modules.Config), ProvideConfig),
		dix.Override(new(*modules.SafeConfig), ProvideSafeConfig),
		dix.Override(new(*core.APIClient), BuildWardenAPIClient),
		dix.If(len(target) > 0, dix.Populate(InvokePopulate, target...)),
	)
}
