package main

import (
	"github.com/urfave/cli/v2"

	"github.com/coho-storage/blobwarden/cmd/blobwarden/internal"
	"github.com/coho-storage/blobwarden/pkg/logging"
	"github.com/coho-storage/blobwarden/ver"
)

var log = internal.Log

func main() {
	logging.Setup()

	app := &cli.App{
		Name:    "blobwarden",
		Usage:   "Blob integrity and lifecycle warden for decentralized storage",
		Version: ver.VersionStr(),
		Commands: []*cli.Command{
			daemonCmd,
			internal.UtilCmd,
		},
		Flags: []cli.Flag{
			internal.HomeFlag,
		},
	}

	internal.RunApp(app)
}
