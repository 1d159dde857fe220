package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"github.com/urfave/cli/v2"

	"github.com/coho-storage/blobwarden/core"
)

var utilBlobCmd = &cli.Command{
	Name:  "blob",
	Usage: "Inspect and manage blobs tracked by the warden",
	Subcommands: []*cli.Command{
		utilBlobVerifyCmd,
		utilBlobUploadCmd,
		utilBlobMonitorCmd,
		utilBlobProvidersCmd,
		utilBlobRenewCmd,
		utilBlobExpiringCmd,
	},
}

var utilBlobVerifyCmd = &cli.Command{
	Name:      "verify",
	Usage:     "Verify a stored blob against a local file",
	ArgsUsage: "<blob-id> <file>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "require-certification",
			Usage: "fail unless the blob has a certified epoch on the ledger",
		},
		&cli.BoolFlag{
			Name:  "verify-attributes",
			Usage: "cross-check ledger metadata against the local file",
		},
		&cli.StringFlag{
			Name:  "file-name",
			Usage: "expected file name recorded on the ledger",
		},
		&cli.StringFlag{
			Name:  "mime-type",
			Usage: "expected mime type recorded on the ledger",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return IncorrectNumArgs(cctx)
		}

		blobID, err := core.ParseBlobID(cctx.Args().Get(0))
		if err != nil {
			return ShowHelp(cctx, err)
		}

		data, err := os.ReadFile(cctx.Args().Get(1))
		if err != nil {
			return fmt.Errorf("read local file: %w", err)
		}

		api, gctx, stop, err := extractAPI(cctx)
		if err != nil {
			return err
		}
		defer stop()

		var meta *core.BlobMetadata
		if cctx.Bool("verify-attributes") {
			meta = &core.BlobMetadata{
				FileName: cctx.String("file-name"),
				Size:     uint64(len(data)),
				MimeType: cctx.String("mime-type"),
			}
		}

		res, err := api.VerifyBlob(gctx, blobID, data, meta, core.VerificationOptions{
			RequireCertification: cctx.Bool("require-certification"),
			VerifyAttributes:     cctx.Bool("verify-attributes"),
		})
		if err != nil {
			return RPCCallError("VerifyBlob", err)
		}

		if res.Success {
			color.Green("OK: blob verified in %d attempt(s)", res.Attempts)
		} else {
			color.Red("FAILED after %d attempt(s)", res.Attempts)
		}

		if res.Details != nil {
			fmt.Printf("Certified: %v\n", res.Details.Certified)
			for _, mismatch := range res.Details.AttributeMismatches {
				fmt.Println(color.YellowString("attribute mismatch: %s", mismatch))
			}
		}

		return nil
	},
}

var utilBlobUploadCmd = &cli.Command{
	Name:      "upload",
	Usage:     "Upload a file and verify the write",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "wait-certification",
			Usage: "block until the network certifies the blob",
		},
		&cli.DurationFlag{
			Name:  "wait-timeout",
			Value: time.Minute,
			Usage: "upper bound for the certification wait",
		},
		&cli.IntFlag{
			Name:  "min-providers",
			Usage: "advisory minimum provider count",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return IncorrectNumArgs(cctx)
		}

		data, err := os.ReadFile(cctx.Args().First())
		if err != nil {
			return fmt.Errorf("read local file: %w", err)
		}

		api, gctx, stop, err := extractAPI(cctx)
		if err != nil {
			return err
		}
		defer stop()

		res, err := api.VerifyUpload(gctx, data, core.UploadOptions{
			WaitForCertification: cctx.Bool("wait-certification"),
			WaitTimeout:          cctx.Duration("wait-timeout"),
			MinProviders:         cctx.Int("min-providers"),
		})
		if err != nil {
			return RPCCallError("VerifyUpload", err)
		}

		color.Green("uploaded %s as %s", units.BytesSize(float64(len(data))), res.BlobID)
		fmt.Printf("Certified: %v\n", res.Certified)
		fmt.Printf("PoA complete: %v\n", res.PoAComplete)
		fmt.Printf("Providers: %d\n", res.Providers)
		if !res.HasMinProviders {
			fmt.Println(color.YellowString("provider count below the requested minimum"))
		}
		fmt.Printf("sha256: %s\n", res.Checksums[core.AlgoSha256])

		return nil
	},
}

var utilBlobMonitorCmd = &cli.Command{
	Name:      "monitor",
	Usage:     "Poll the ledger until the blob is certified",
	ArgsUsage: "<blob-id>",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "delay between polls",
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "poll attempt budget",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return IncorrectNumArgs(cctx)
		}

		blobID, err := core.ParseBlobID(cctx.Args().First())
		if err != nil {
			return ShowHelp(cctx, err)
		}

		api, gctx, stop, err := extractAPI(cctx)
		if err != nil {
			return err
		}
		defer stop()

		res, err := api.MonitorBlobAvailability(gctx, blobID, core.MonitorOptions{
			Interval:    cctx.Duration("interval"),
			MaxAttempts: cctx.Int("max-attempts"),
		})
		if err != nil {
			return RPCCallError("MonitorBlobAvailability", err)
		}

		if res.Certified {
			color.Green("certified after %d poll(s) at epoch %d", res.Attempts, *res.Object.CertifiedEpoch)
		} else {
			color.Yellow("not certified after %d poll(s)", res.Attempts)
		}

		return nil
	},
}

var utilBlobProvidersCmd = &cli.Command{
	Name:      "providers",
	Usage:     "List the providers currently holding a blob",
	ArgsUsage: "<blob-id>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return IncorrectNumArgs(cctx)
		}

		blobID, err := core.ParseBlobID(cctx.Args().First())
		if err != nil {
			return ShowHelp(cctx, err)
		}

		api, gctx, stop, err := extractAPI(cctx)
		if err != nil {
			return err
		}
		defer stop()

		providers, err := api.StorageProviders(gctx, blobID)
		if err != nil {
			return RPCCallError("StorageProviders", err)
		}

		return OutputJSON(os.Stdout, providers)
	},
}

var utilBlobRenewCmd = &cli.Command{
	Name:      "renew",
	Usage:     "Extend the storage lease of a tracked blob",
	ArgsUsage: "<blob-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "vault",
			Usage: "vault holding the blob record",
			Value: core.DefaultVaultID,
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return IncorrectNumArgs(cctx)
		}

		blobID, err := core.ParseBlobID(cctx.Args().First())
		if err != nil {
			return ShowHelp(cctx, err)
		}

		api, gctx, stop, err := extractAPI(cctx)
		if err != nil {
			return err
		}
		defer stop()

		record, err := api.RenewBlob(gctx, blobID, cctx.String("vault"))
		if err != nil {
			return RPCCallError("RenewBlob", err)
		}

		color.Green("renewed %s", record.BlobID)
		fmt.Printf("expires: %s (in %s)\n",
			record.ExpiresAt.Format(time.RFC3339),
			durafmt.Parse(record.Remaining(time.Now())).LimitFirstN(2),
		)

		return nil
	},
}

var utilBlobExpiringCmd = &cli.Command{
	Name:  "expiring",
	Usage: "List tracked blobs whose leases end soon",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "within",
			Usage: "lookahead window, defaults to the configured warning threshold",
		},
	},
	Action: func(cctx *cli.Context) error {
		api, gctx, stop, err := extractAPI(cctx)
		if err != nil {
			return err
		}
		defer stop()

		records, err := api.ExpiringBlobs(gctx, cctx.Duration("within"))
		if err != nil {
			return RPCCallError("ExpiringBlobs", err)
		}

		if len(records) == 0 {
			fmt.Println("no blobs nearing expiry")
			return nil
		}

		now := time.Now()
		for _, record := range records {
			remaining := record.Remaining(now)
			line := fmt.Sprintf("%s  vault=%s  size=%s  expires in %s",
				record.BlobID,
				record.VaultID,
				units.BytesSize(float64(record.Size)),
				durafmt.Parse(remaining).LimitFirstN(2),
			)
			if remaining <= 0 {
				line = color.RedString("%s  vault=%s  size=%s  EXPIRED",
					record.BlobID, record.VaultID, units.BytesSize(float64(record.Size)))
			}
			fmt.Println(line)
		}

		return nil
	},
}
