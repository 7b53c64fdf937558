package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/ddx/internal/config"
	"github.com/bamsammich/ddx/internal/engine"
	"github.com/bamsammich/ddx/internal/event"
	"github.com/bamsammich/ddx/internal/metrics"
	"github.com/bamsammich/ddx/internal/operand"
	"github.com/bamsammich/ddx/internal/resume"
	"github.com/bamsammich/ddx/internal/stats"
	"github.com/bamsammich/ddx/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// hashFlag is a pflag.Value that accepts only supported digest names.
type hashFlag struct {
	name string
}

var _ pflag.Value = (*hashFlag)(nil)

func (h *hashFlag) String() string { return h.name }
func (*hashFlag) Type() string     { return "algorithm" }

func (h *hashFlag) Set(val string) error {
	if err := engine.ValidateHash(val); err != nil {
		return err
	}
	h.name = val
	return nil
}

type options struct {
	verbose     bool
	showVersion bool
	resume      bool
	logFile     string
	bwLimitStr  string
	metricsAddr string
	hash        hashFlag
}

func run(args []string, stderr io.Writer) int {
	rootCmd := newRootCmd(stderr)
	rootCmd.SetArgs(args)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "ddx: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "ddx [flags] [operand]...",
		Short: "Copy and convert data in fixed-size blocks",
		Long: `Copy a file, converting and formatting according to the operands.

  bs=BYTES        read and write up to BYTES bytes at a time
  cbs=BYTES       convert BYTES bytes at a time
  conv=CONVS      convert the file as per the comma separated symbol list
  count=N         copy only N input blocks
  ibs=BYTES       read up to BYTES bytes at a time (default: 512)
  if=FILE         read from FILE instead of stdin
  iflag=FLAGS     read as per the comma separated symbol list
  obs=BYTES       write BYTES bytes at a time (default: 512)
  of=FILE         write to FILE instead of stdout
  oflag=FLAGS     write as per the comma separated symbol list
  seek=N          skip N obs-sized blocks at start of output (alias oseek)
  skip=N          skip N ibs-sized blocks at start of input (alias iseek)
  status=LEVEL    none, noxfer or progress

Send SIGUSR1 to print I/O statistics to standard error and resume copying.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "ddx %s\n", version)
				return nil
			}
			return copyMain(cmd, args, &opts, stderr)
		},
	}

	rootCmd.Flags().BoolVar(&opts.showVersion, "version", false, "print version and exit")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().Var(&opts.hash, "hash", "print a digest of the output (blake3 or xxhash)")
	rootCmd.Flags().StringVar(&opts.bwLimitStr, "bwlimit", "", "output bandwidth limit per second (e.g. 100M, 1G)")
	rootCmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on ADDR during the copy")
	rootCmd.Flags().BoolVar(&opts.resume, "resume", false, "checkpoint progress and resume an interrupted file copy")

	rootCmd.AddCommand(newDocsCmd())
	return rootCmd
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: CLI entry point wires every collaborator
func copyMain(cmd *cobra.Command, args []string, opts *options, stderr io.Writer) error {
	ops, err := operand.Parse(args)
	if err != nil {
		return err
	}

	fileCfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "path", config.Path(), "error", err)
	}
	if err := applyConfigDefaults(cmd, ops, fileCfg.Defaults, opts); err != nil {
		return fmt.Errorf("config %s: %w", config.Path(), err)
	}

	// Configure logging.
	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	} else if ops.Status == engine.StatusNone {
		logLevel = slog.LevelError
	}
	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	if opts.logFile != "" {
		lf, lfErr := os.Create(opts.logFile)
		if lfErr != nil {
			return fmt.Errorf("open log file: %w", lfErr)
		}
		defer lf.Close()
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))

	var bwLimit int64
	if opts.bwLimitStr != "" {
		bwLimit, err = operand.ParseSize(opts.bwLimitStr)
		if err != nil {
			return fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)
	statusFlag := &engine.StatusFlag{}

	cfg := ops.Config()
	cfg.Events = events
	cfg.Stats = collector
	cfg.StatusFlag = statusFlag
	cfg.BWLimit = bwLimit
	cfg.Hash = opts.hash.name

	var store *resume.Store
	if opts.resume {
		store, err = resume.Open(fileCfg.StateDir(), &cfg)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		if n := store.Records(); n > 0 {
			slog.Info("resuming copy", "records", n, "checkpoint", store.Path())
		}
		store.Apply(&cfg)
		cfg.Checkpoint = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopStatus := engine.NotifyStatus(ctx, statusFlag)
	defer stopStatus()

	if opts.metricsAddr != "" {
		srv := metrics.NewServer(opts.metricsAddr, metrics.NewRegistry(collector))
		metricsCtx, cancelMetrics := context.WithCancel(context.Background())
		defer cancelMetrics()
		go func() {
			if err := srv.Start(metricsCtx); err != nil {
				slog.Warn("metrics server", "error", err)
			}
		}()
		if cfg.Status != engine.StatusProgress {
			go metrics.Sample(metricsCtx, collector, time.Second)
		}
	}

	// When --log is set, tee events through a logging goroutine that
	// writes structured records before forwarding to the presenter.
	presenterEvents := (<-chan event.Event)(events)
	if opts.logFile != "" {
		teed := make(chan event.Event, 256)
		go func() {
			for ev := range events {
				attrs := []slog.Attr{
					slog.String("type", ev.Type.String()),
					slog.String("path", ev.Path),
					slog.Int64("offset", ev.Offset),
					slog.Int64("count", ev.Count),
					slog.String("stats", ev.Stats.String()),
				}
				if ev.Error != nil {
					attrs = append(attrs, slog.String("error", ev.Error.Error()))
				}
				slog.LogAttrs(context.Background(), slog.LevelDebug, "ddx.event", attrs...)
				teed <- ev
			}
			close(teed)
		}()
		presenterEvents = teed
	}

	presenter := ui.NewPresenter(ui.Config{
		ErrWriter: stderr,
		Stats:     collector,
		Level:     cfg.Status,
		IsTTY:     ui.IsTTY(os.Stderr.Fd()),
		Width:     ui.TermWidth(os.Stderr.Fd()),
	})

	slog.Debug("starting copy",
		"input", cfg.Input,
		"output", cfg.Output,
		"ibs", cfg.IBS,
		"obs", cfg.OBS,
		"conv", cfg.Conv.String(),
		"count", cfg.Count,
	)

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	d := engine.Run(ctx, cfg)
	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(stderr, "presenter: %v\n", presenterErr)
	}

	if store != nil {
		if err := store.Close(); err != nil {
			slog.Warn("close checkpoint", "error", err)
		}
		if d.OK() {
			if err := store.Remove(); err != nil {
				slog.Debug("remove checkpoint", "error", err)
			}
		}
	}

	if d.Err != nil {
		slog.Error("copy failed", "error", d.Err)
	}
	fmt.Fprint(stderr, presenter.Summary())
	if d.Digest != "" {
		fmt.Fprintf(stderr, "%s  %s (%s)\n", d.Digest, outputName(cfg.Output), cfg.Hash)
	}
	slog.Debug("copy finished",
		"elapsed", ui.FormatDuration(d.Stats.Elapsed),
		"stats", d.Stats.String(),
		"skip_shortfall", d.SkipShortfall,
	)

	if !d.OK() {
		return &exitError{code: 1}
	}
	return nil
}

// applyConfigDefaults applies config file defaults for operands and flags
// not explicitly set on the command line.
func applyConfigDefaults(
	cmd *cobra.Command,
	ops *operand.Operands,
	defaults config.DefaultsConfig,
	opts *options,
) error {
	if defaults.BlockSize != nil {
		n, err := operand.ParseSize(*defaults.BlockSize)
		if err != nil {
			return fmt.Errorf("bs: %w", err)
		}
		ops.SetBlockSize(int(min(n, int64(1<<30))))
	}
	if !ops.IsSet("status") && defaults.Status != nil {
		level, err := operand.ParseStatus(*defaults.Status)
		if err != nil {
			return err
		}
		ops.Status = level
	}
	if !cmd.Flags().Changed("hash") && defaults.Hash != nil {
		if err := opts.hash.Set(*defaults.Hash); err != nil {
			return fmt.Errorf("hash: %w", err)
		}
	}
	if !cmd.Flags().Changed("bwlimit") && defaults.BWLimit != nil {
		opts.bwLimitStr = *defaults.BWLimit
	}
	if !cmd.Flags().Changed("metrics-addr") && defaults.MetricsAddr != nil {
		opts.metricsAddr = *defaults.MetricsAddr
	}
	return nil
}

func outputName(path string) string {
	if path == "" {
		return "-"
	}
	return path
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
