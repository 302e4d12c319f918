package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"imgshrink/internal/compressor"
	"imgshrink/internal/config"
	"imgshrink/internal/logger"
	"imgshrink/internal/statistics"
	"imgshrink/internal/watcher"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	cfgFile    string
	verbose    bool
	quiet      bool
	jsonOutput bool
	version    = "dev"
)

// v carries flag values into config loading.
var v = viper.New()

// rootCmd compresses the given files and directories.
var rootCmd = &cobra.Command{
	Use:   "imgshrink [files or directories...]",
	Short: "Downsample and re-encode images into a bounding box",
	Long: `imgshrink shrinks images so they still cover a target bounding box,
using power-of-two downsampling, then re-encodes them as JPEG, PNG or WEBP.

Each input file produces one output file in the destination directory.
Directories are searched recursively for supported image extensions.`,
	Args:    cobra.MinimumNArgs(1),
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd.Context(), cmd.OutOrStdout(), args)
	},
	SilenceUsage: true,
}

// probeCmd reports an image's size and the reduction it would get.
var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Show image dimensions and the planned reduction factor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd.OutOrStdout(), args[0])
	},
}

// watchCmd compresses images as they are added to a directory.
var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Compress images as they appear in a directory",
	Long: `Watches a directory and compresses every new or modified image once it
has been quiet for the configured debounce interval. Output files keep the
source's base name. The destination must differ from the watched directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	defaults := config.DefaultConfig()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	pf.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	pf.BoolVar(&quiet, "quiet", false, "suppress non-error output")
	pf.BoolVar(&jsonOutput, "json", false, "print results as JSON")

	pf.Float64("max-width", defaults.Compression.MaxWidth, "bounding box width in pixels")
	pf.Float64("max-height", defaults.Compression.MaxHeight, "bounding box height in pixels")
	pf.String("format", defaults.Compression.Format, "output format: jpeg, png or webp")
	pf.String("layout", defaults.Compression.Layout, "pixel layout: nrgba, rgba, nrgba64 or gray")
	pf.Int("quality", defaults.Compression.Quality, "encoder quality 0-100 (lossy formats)")
	pf.String("dest", "", "destination directory (default is the user cache directory)")
	pf.String("prefix", "", "output file name prefix")
	pf.Int64("max-size", 0, "lower quality until output is at most this many bytes (0 disables)")
	pf.Int("workers", 0, "parallel workers (0 means one per CPU)")

	for flag, key := range map[string]string{
		"max-width":  "compression.max_width",
		"max-height": "compression.max_height",
		"format":     "compression.format",
		"layout":     "compression.layout",
		"quality":    "compression.quality",
		"dest":       "compression.destination_dir",
		"prefix":     "compression.file_name_prefix",
		"max-size":   "compression.max_file_size",
		"workers":    "performance.worker_threads",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(watchCmd)
}

// app bundles what every command needs.
type app struct {
	cfg   *config.Config
	opts  *compressor.Options
	log   *logrus.Logger
	stats *statistics.Statistics
	comp  *compressor.Compressor
}

func setup() (*app, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	opts, err := cfg.CompressionOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid compression settings: %w", err)
	}

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()
	comp := compressor.New(
		compressor.WithLogger(log),
		compressor.WithStatistics(stats),
		compressor.WithWorkers(cfg.Performance.WorkerThreads),
	)
	return &app{cfg: cfg, opts: opts, log: log, stats: stats, comp: comp}, nil
}

// runCompress compresses every image named by args.
func runCompress(ctx context.Context, out io.Writer, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	files := compressor.CollectImageFiles(args, a.cfg.Watch.Extensions)
	if len(files) == 0 {
		return fmt.Errorf("no supported images found in %v", args)
	}
	a.log.WithField("files", len(files)).Info("Starting compression")

	results := a.comp.CompressBatch(ctx, files, a.opts)
	a.stats.Finalize()

	if err := writeResults(out, results, a.stats); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// runProbe prints the source dimensions, planned factor and output size.
func runProbe(out io.Writer, path string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	dims, err := compressor.NewImagingDecoder().Probe(path)
	if err != nil {
		return err
	}
	p := newProbeReport(path, dims, a.opts)

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	_, err = fmt.Fprintf(out, "%s: %dx%d, factor 1/%d, output %dx%d\n",
		p.Path, p.Width, p.Height, p.Factor, p.OutputWidth, p.OutputHeight)
	return err
}

// runWatch blocks until interrupted, compressing images added to dir.
func runWatch(ctx context.Context, out io.Writer, dir string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	w, err := watcher.New(dir, a.comp, a.opts, watcher.Settings{
		Extensions: a.cfg.Watch.Extensions,
		Debounce:   a.cfg.Watch.Debounce,
		Handler: func(ev watcher.Event) {
			if quiet {
				return
			}
			if jsonOutput {
				_ = enc.Encode(newWatchReport(ev))
				return
			}
			if ev.Err == nil {
				fmt.Fprintln(out, ev.Output)
			}
		},
	}, a.log)
	if err != nil {
		return err
	}

	err = w.Run(ctx)
	a.stats.Finalize()
	if !quiet && !jsonOutput {
		fmt.Fprintln(os.Stderr, "\n"+a.stats.GetSummary())
	}
	return err
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := cfg.LoggerConfig()
	loggerCfg.Console = !quiet

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
