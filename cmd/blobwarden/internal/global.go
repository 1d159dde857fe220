package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/dtynn/dix"
	"github.com/urfave/cli/v2"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/dep"
	"github.com/coho-storage/blobwarden/pkg/homedir"
	"github.com/coho-storage/blobwarden/pkg/logging"
)

var Log = logging.New("blobwarden")

var HomeFlag = &cli.StringFlag{
	Name:  "home",
	Value: "~/.blobwarden",
}

var ListenFlag = &cli.StringFlag{
	Name:  "listen",
	Value: ":1789",
}

type stopper = func()

func NewSigContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGABRT, syscall.SIGTERM, syscall.SIGINT)
}

func DepsFromCLICtx(cctx *cli.Context) dix.Option {
	return dix.Options(
		dix.Override(new(*cli.Context), cctx),
		dix.Override(new(*homedir.Home), HomeFromCLICtx),
	)
}

func HomeFromCLICtx(cctx *cli.Context) (*homedir.Home, error) {
	home, err := homedir.Open(cctx.String(HomeFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("open home: %w", err)
	}

	if err := home.Init(); err != nil {
		return nil, fmt.Errorf("init home: %w", err)
	}

	return home, nil
}

// extractAPI dials the rpc endpoint of a running daemon for cli commands.
func extractAPI(cctx *cli.Context) (*core.APIClient, context.Context, stopper, error) {
	logging.SetupForSub("blobwarden")

	gctx, gcancel := NewSigContext(cctx.Context)

	var client *core.APIClient

	stopper, err := dix.New(
		gctx,
		DepsFromCLICtx(cctx),
		dix.Override(new(dep.GlobalContext), gctx),
		dix.Override(new(dep.ListenAddress), dep.ListenAddress(cctx.String(ListenFlag.Name))),
		dep.APIClient(&client),
	)
	if err != nil {
		gcancel()
		return nil, nil, nil, fmt.Errorf("construct warden api client: %w", err)
	}

	return client, gctx, func() {
		stopper(cctx.Context) // nolint: errcheck
		gcancel()
	}, nil
}

func RPCCallError(method string, err error) error {
	return fmt.Errorf("rpc %s: %w", method, err)
}

func OutputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
