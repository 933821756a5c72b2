// Command fishframes is the CLI entrypoint for the training-frame extractor.
//
// It resolves configuration from defaults, an optional YAML file, the
// environment and flags, then either runs system diagnostics (check),
// prints frame names (name), or runs the selection and sampling pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/fishframes/internal/check"
	"github.com/backmassage/fishframes/internal/config"
	"github.com/backmassage/fishframes/internal/display"
	"github.com/backmassage/fishframes/internal/ffmpeg"
	"github.com/backmassage/fishframes/internal/logging"
	"github.com/backmassage/fishframes/internal/metrics"
	"github.com/backmassage/fishframes/internal/naming"
	"github.com/backmassage/fishframes/internal/pipeline"
	"github.com/backmassage/fishframes/internal/probe"
	"github.com/backmassage/fishframes/internal/remote"
	"github.com/backmassage/fishframes/internal/tracing"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

// errReported means the failure was already logged; only the exit status
// is left to set.
var errReported = errors.New("run failed")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := config.DefaultConfig()
	root := newRootCmd(&cfg)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "fishframes: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "fishframes",
		Short: "Sample training frames from recorded tank videos",
		Long: `fishframes selects recording projects by name and creation date, downloads
their videos, writes one JPEG frame every --timestep minutes and uploads the
images to the training data tree.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), cfg)
		},
	}
	flags := config.BindFlags(root.PersistentFlags(), cfg)

	// Every subcommand sees the fully resolved configuration.
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := config.Resolve(cfg, cmd.Flags(), flags); err != nil {
			return err
		}
		return cfg.Validate()
	}

	root.AddCommand(newCheckCmd(cfg), newNameCmd(cfg))
	return root
}

func newCheckCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that rclone, ffmpeg and ffprobe are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			display.PrintBanner(cmd.OutOrStdout(), version)
			if !check.RunCheck(cfg, log) {
				return errReported
			}
			return nil
		},
	}
}

func newNameCmd(cfg *config.Config) *cobra.Command {
	var fps int
	var parse bool
	cmd := &cobra.Command{
		Use:   "name PROJECT VIDEO INDEX | name --parse FILE...",
		Short: "Print the image name of a frame, or parse image names",
		Long: `Print the image file name the pipeline writes for frame INDEX of VIDEO in
PROJECT at the configured --timestep. With --parse, split existing image
names back into their fields.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if parse {
				return cobra.MinimumNArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if parse {
				for _, a := range args {
					id, err := naming.ParseFrameName(a)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "project=%s video=%s interval=%d index=%d time=%s\n",
						id.Project, id.Video, id.Interval, id.Index, id.Timestamp)
				}
				return nil
			}
			index, err := strconv.Atoi(args[2])
			if err != nil || index < 0 {
				return fmt.Errorf("invalid frame index %q", args[2])
			}
			fmt.Fprintln(out, naming.FrameName(args[0], args[1], cfg.Timestep, index, fps))
			return nil
		},
	}
	cmd.Flags().IntVar(&fps, "fps", 30, "Rounded frame rate of the video")
	cmd.Flags().BoolVar(&parse, "parse", false, "Parse image names instead of building one")
	return cmd
}

// runPipeline wires the configured backend, ffmpeg and observability into
// one pipeline run.
//
// Flow:
//  1. Logger and banner
//  2. Fail fast on missing tools
//  3. Signal handling, tracing, metrics
//  4. Gateway, decoder and remuxer
//  5. Run, export metrics, map the outcome to an exit status
func runPipeline(ctx context.Context, cfg *config.Config) error {
	// --- 1. Logger ---
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	if cfg.LogFormat == config.LogFormatText {
		display.PrintBanner(os.Stdout, version)
	}
	log.Info("=== fishframes v%s (%s) ===", version, commit)
	log.Info("Local:  %s", cfg.LocalRoot)
	log.Info("Remote: %s (%s)", cfg.RemoteRoot, cfg.Backend)
	if cfg.DryRun {
		log.Warn("DRY RUN: nothing is downloaded, written or uploaded")
	}

	// --- 2. Dependencies ---
	if err := check.CheckDeps(cfg); err != nil {
		log.Error("%v", err)
		return errReported
	}

	// --- 3. Signals and observability ---
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.Init(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		log.Error("%v", err)
		return errReported
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("Flush traces: %v", err)
		}
	}()
	rec := metrics.New()

	// --- 4. Collaborators ---
	gw, err := newGateway(cfg, log)
	if err != nil {
		log.Error("%v", err)
		return errReported
	}
	deps := pipeline.Deps{
		Gateway: remote.Instrument(gw, rec),
		Decoder: &ffmpeg.Decoder{
			Bin:     cfg.FFmpegBin,
			Prober:  probe.Prober{Bin: cfg.FFprobeBin},
			Quality: cfg.JPEGQuality,
		},
		Remuxer: &ffmpeg.Remuxer{Bin: cfg.FFmpegBin, Verbose: cfg.Verbose, Log: log},
		Metrics: rec,
		Log:     log,
	}

	// --- 5. Run ---
	stats, err := pipeline.Run(ctx, cfg, deps)
	if cfg.MetricsFile != "" {
		if werr := rec.WriteTextfile(cfg.MetricsFile); werr != nil {
			log.Warn("Write metrics: %v", werr)
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		log.Warn("Interrupted")
		return errReported
	case err != nil:
		log.Error("%v", err)
		return errReported
	case stats.Failed():
		return errReported
	}
	return nil
}

func newGateway(cfg *config.Config, log *logging.Logger) (remote.Gateway, error) {
	if cfg.Backend == config.BackendS3 {
		return remote.NewS3(cfg.LocalRoot, remote.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.RemoteRoot,
		}, log)
	}
	return remote.NewRclone(cfg.LocalRoot, cfg.RemoteRoot, remote.RcloneOptions{
		Bin:             cfg.RcloneBin,
		Retries:         cfg.Retries,
		Backoff:         cfg.RetryBackoff,
		TransfersPerSec: cfg.TransfersPerSec,
		Log:             log,
	}), nil
}
