package internal

import (
	"github.com/urfave/cli/v2"

	"github.com/coho-storage/blobwarden/pkg/logging"
)

var UtilCmd = &cli.Command{
	Name:  "util",
	Usage: "Commandline tools for blobwarden",
	Subcommands: []*cli.Command{
		utilBlobCmd,
	},
	Flags: []cli.Flag{
		ListenFlag,
	},
	Before: func(cctx *cli.Context) error {
		logging.SetupForSub("blobwarden")
		return nil
	},
}
