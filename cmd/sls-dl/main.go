package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/apple/ml-spatial-librispeech/internal/config"
	"github.com/apple/ml-spatial-librispeech/internal/download"
	ioutils "github.com/apple/ml-spatial-librispeech/internal/io"
	"github.com/apple/ml-spatial-librispeech/internal/logging"
	"github.com/schollz/progressbar/v3"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options holds the command line flags.
type options struct {
	configPath      string
	metadataPath    string
	targetPath      string
	logDir          string
	logLevel        string
	baseURL         string
	concurrency     int
	timeout         float64
	acceptAnyStatus bool
	atomicWrites    bool
	playlist        bool
	playlistFormat  string
	noProgress      bool
	dryRun          bool
	verbose         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nDownload cancelled.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	stop()
	os.Exit(exitCode(err))
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "sls-dl",
		Short: "Download the Spatial LibriSpeech audio files",
		Long: "sls-dl reads the sample ids of the Spatial LibriSpeech metadata table and\n" +
			"downloads every ambisonics recording that is not yet present in the target\n" +
			"directory. Rerun it to resume after a failure.\n\n" +
			"For interactive mode, use: sls-tui",
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd, opts, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (json, yaml or toml)")
	pf.StringVarP(&opts.metadataPath, "metadata", "m", "", "Metadata file or http(s) URL (overrides config)")
	pf.StringVarP(&opts.targetPath, "target-path", "o", "", "Directory the samples are written to (overrides config)")
	pf.StringVar(&opts.baseURL, "base-url", "", "Dataset base URL (overrides config)")

	f := root.Flags()
	f.StringVar(&opts.logDir, "log-dir", "", "Directory of downloader.log (overrides config)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.IntVarP(&opts.concurrency, "concurrency", "j", 0, "Number of parallel downloads")
	f.Float64Var(&opts.timeout, "timeout", 0, "Per-request timeout in seconds, 0 for none")
	f.BoolVar(&opts.acceptAnyStatus, "accept-any-status", false, "Save response bodies whatever their HTTP status")
	f.BoolVar(&opts.atomicWrites, "atomic-writes", true, "Write through a temporary file and rename")
	f.BoolVar(&opts.playlist, "playlist", false, "Create a playlist of the downloaded samples")
	f.StringVar(&opts.playlistFormat, "playlist-format", "", "Playlist format: m3u, pls, wpl, zpl")
	f.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Read the metadata without downloading")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Show verbose output")

	root.AddCommand(newPlanCmd(opts, stdout), newStatusCmd(opts, stdout), newConfigCmd(stdout))

	return root
}

// loadSettings loads the config file and applies the flags that were set.
func loadSettings(cmd *cobra.Command, opts *options) (*config.Settings, error) {
	settings, err := config.Load(opts.configPath)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("loading config: %w", err))
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("metadata") {
		settings.MetadataPath = opts.metadataPath
	}
	if changed("target-path") {
		settings.TargetPath = opts.targetPath
	}
	if changed("base-url") {
		settings.BaseURL = opts.baseURL
	}
	if changed("log-dir") {
		settings.LogDir = opts.logDir
	}
	if changed("log-level") {
		settings.LogLevel = opts.logLevel
	}
	if changed("concurrency") {
		settings.MaxConcurrentDownloads = opts.concurrency
	}
	if changed("timeout") {
		settings.RequestTimeout = opts.timeout
	}
	if changed("accept-any-status") {
		settings.AcceptAnyStatus = opts.acceptAnyStatus
	}
	if changed("atomic-writes") {
		settings.AtomicWrites = opts.atomicWrites
	}
	if changed("playlist") {
		settings.CreatePlaylist = opts.playlist
	}
	if changed("playlist-format") {
		settings.PlaylistFormat = opts.playlistFormat
	}
	if changed("no-progress") {
		settings.ShowProgress = !opts.noProgress
	}

	if err := settings.Validate(); err != nil {
		return nil, withCode(exitUsage, err)
	}
	return settings, nil
}

func runDownload(cmd *cobra.Command, opts *options, stdout, stderr io.Writer) error {
	ctx := cmd.Context()

	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}

	runID := ksuid.New().String()

	logger, cleanup, err := logging.New(logging.Options{
		Dir:     settings.LogDir,
		Level:   settings.LogLevel,
		Console: settings.LogToStderr,
	})
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("initializing logger: %w", err))
	}
	defer cleanup()

	sugar := logger.With(zap.String("run", runID)).Sugar()
	sugar.Debugf("Metadata %s, target %s, base URL %s, concurrency %d",
		settings.MetadataPath, settings.TargetPath, settings.BaseURL, settings.MaxConcurrentDownloads)

	out := &printer{w: stdout, verbose: opts.verbose}

	manager := download.NewManager(settings, out.print, download.WithLogger(sugar), download.WithRunID(runID))

	fmt.Fprintln(stdout, "Spatial LibriSpeech Downloader")
	fmt.Fprintln(stdout, "------------------------------")
	fmt.Fprintln(stdout)

	if err := manager.Initialize(ctx, settings.MetadataPath); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sugar.Errorf("Failed to load metadata %s: %v", settings.MetadataPath, err)
		return withCode(exitMetadata, err)
	}

	if opts.dryRun {
		fmt.Fprintf(stdout, "\n[Dry run - not downloading] %d samples would be downloaded to %s\n",
			len(manager.Pending()), settings.TargetPath)
		return nil
	}

	if settings.ShowProgress && !opts.verbose && len(manager.Pending()) > 0 {
		out.setBar(progressbar.NewOptions(len(manager.Samples()),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("Downloading"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetPredictTime(true),
		))
	}

	fmt.Fprintln(stdout, "\nStarting downloads...")
	fmt.Fprintln(stdout)

	summary, err := manager.StartDownloads(ctx)
	out.finish()

	printSummary(stdout, summary)

	if err != nil {
		return err
	}
	return nil
}

func printSummary(w io.Writer, s *download.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "------------------------------")
	fmt.Fprintf(w, "Run %s: downloaded %d, skipped %d, failed %d of %d samples (%.2f MB)\n",
		s.RunID, s.Downloaded, s.Skipped, s.Failed, s.Total, float64(s.Bytes)/1024/1024)
	if s.Playlist != "" {
		fmt.Fprintf(w, "Playlist: %s\n", s.Playlist)
	}
}

// printer renders progress events, either as lines or through a progress bar.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	bar     *progressbar.ProgressBar
}

func (p *printer) setBar(bar *progressbar.ProgressBar) {
	p.mu.Lock()
	p.bar = bar
	p.mu.Unlock()
}

func (p *printer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func (p *printer) print(event download.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		if event.Finished {
			_ = p.bar.Add(1)
		}
		// Only problems interrupt the bar.
		if event.Level != download.LevelError && event.Level != download.LevelWarning {
			return
		}
		_ = p.bar.Clear()
	}

	if event.Level == download.LevelVerbose && !p.verbose {
		return
	}

	prefix := ""
	switch event.Level {
	case download.LevelError:
		prefix = "[error] "
	case download.LevelWarning:
		prefix = "[warn]  "
	case download.LevelSuccess:
		prefix = "[ok]    "
	case download.LevelInfo:
		prefix = "[info]  "
	default:
		prefix = "        "
	}

	fmt.Fprintln(p.w, prefix+event.Message)
}

func newPlanCmd(opts *options, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the URL of every sample that would be downloaded",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := initializeReadOnly(cmd, opts)
			if err != nil {
				return err
			}
			for _, s := range manager.Pending() {
				fmt.Fprintln(stdout, s.URL)
			}
			return nil
		},
	}
}

func newStatusCmd(opts *options, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how many samples are present in the target directory",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := initializeReadOnly(cmd, opts)
			if err != nil {
				return err
			}

			present, pending := len(manager.Present()), len(manager.Pending())
			distinct := present + pending

			fmt.Fprintf(stdout, "Target:   %s\n", manager.TargetPath())
			fmt.Fprintf(stdout, "Samples:  %d (%d distinct)\n", len(manager.Samples()), distinct)
			fmt.Fprintf(stdout, "Present:  %d\n", present)
			fmt.Fprintf(stdout, "Pending:  %d\n", pending)
			if distinct > 0 {
				fmt.Fprintf(stdout, "Complete: %.1f%%\n", 100*float64(present)/float64(distinct))
			}
			return nil
		},
	}
}

// initializeReadOnly reads the metadata without creating directories or
// log files.
func initializeReadOnly(cmd *cobra.Command, opts *options) (*download.Manager, error) {
	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return nil, err
	}

	manager := download.NewManager(settings, nil)
	if err := manager.Initialize(cmd.Context(), settings.MetadataPath); err != nil {
		if ctxErr := cmd.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, withCode(exitMetadata, err)
	}
	return manager, nil
}

func newConfigCmd(stdout io.Writer) *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config file with the default settings",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			if ioutils.Exists(path) && !force {
				return withCode(exitUsage, fmt.Errorf("%s already exists, use --force to overwrite", path))
			}
			if err := config.DefaultSettings().Save(path); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Fprintf(stdout, "Wrote default settings to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	cfg.AddCommand(initCmd)
	return cfg
}
