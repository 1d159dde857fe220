package main

import (
	"context"
	"fmt"

	"github.com/dtynn/dix"
	"github.com/urfave/cli/v2"

	"github.com/coho-storage/blobwarden/cmd/blobwarden/internal"
	"github.com/coho-storage/blobwarden/dep"
	"github.com/coho-storage/blobwarden/modules"
	"github.com/coho-storage/blobwarden/pkg/confmgr"
)

var daemonCmd = &cli.Command{
	Name:  "daemon",
	Usage: "Commands for the blobwarden daemon",
	Subcommands: []*cli.Command{
		daemonInitCmd,
		daemonRunCmd,
	},
}

var daemonInitCmd = &cli.Command{
	Name:  "init",
	Usage: "Init the blobwarden configuration files",
	Action: func(cctx *cli.Context) error {
		home, err := internal.HomeFromCLICtx(cctx)
		if err != nil {
			return err
		}

		cfgmgr, err := confmgr.NewLocal(home.Dir())
		if err != nil {
			return fmt.Errorf("construct config manager: %w", err)
		}

		cfg := modules.DefaultConfig(true)
		if err := cfgmgr.SetDefault(cctx.Context, modules.ConfigKey, cfg); err != nil {
			return fmt.Errorf("init warden config: %w", err)
		}

		log.Info("initialized")
		return nil
	},
}

var daemonRunCmd = &cli.Command{
	Name:  "run",
	Usage: "Run the blobwarden daemon",
	Flags: []cli.Flag{
		internal.ListenFlag,
		&cli.BoolFlag{
			Name:  "offline",
			Value: false,
			Usage: "use in-memory service backends instead of remote endpoints",
		},
		&cli.BoolFlag{
			Name:  "expiry",
			Value: false,
			Usage: "enable the expiry monitor regardless of config",
		},
	},
	Action: func(cctx *cli.Context) error {
		gctx, gcancel := internal.NewSigContext(context.Background())
		defer gcancel()

		var apiService *APIService
		stopper, err := dix.New(
			gctx,
			dep.Product(),
			internal.DepsFromCLICtx(cctx),
			dix.Override(new(dep.GlobalContext), gctx),
			dix.If(cctx.Bool("offline"), dep.Offline()),
			dep.Warden(),
			dix.If(
				cctx.Bool("expiry"),
				dix.Override(new(dep.ExpiryForceEnabled), dep.ExpiryForceEnabled(true)),
			),
			dix.Override(new(*APIService), NewAPIService),
			dix.Populate(dep.InvokePopulate, &apiService),
		)
		if err != nil {
			return fmt.Errorf("construct api: %w", err)
		}

		return serveAPI(gctx, stopper, apiService, cctx.String("listen"))
	},
}
