package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	uap "github.com/jamesainslie/go-uap"
	"github.com/jamesainslie/go-uap/inference"
	"github.com/jamesainslie/go-uap/internal/bench"
	"github.com/jamesainslie/go-uap/internal/config"
	"github.com/jamesainslie/go-uap/internal/dataset"
	"github.com/jamesainslie/go-uap/internal/features"
	"github.com/jamesainslie/go-uap/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "uap-bench",
		Short: "Grid search for unsupervised temporal action proposals",
		Long: `uap-bench sweeps the proposal generator's hyperparameters over a
partition of the (rank-pooling threshold, error threshold, C) grid, writes
one ResultSet per grid point and appends AR-AN and tIoU scores to the
partition's score log.

Run 'uap-bench sweep --partition 1' to sweep the first partition.`,
		SilenceUsage: true,
	}

	// No shorthand for --config: -c belongs to the SVM constant of run.
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file path (YAML)")
	pf.String("env", ".env", "dotenv file loaded before UAP_* variables")
	pf.String("dataset", "", "dataset name (ActivityNet, Thumos14, Charades)")
	pf.String("subset", "", "dataset subset")
	pf.String("format", "", "result file format (json, pb)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json)")

	rootCmd.AddCommand(
		sweepCmd(),
		runCmd(),
		scoreCmd(),
		gridCmd(),
		bestCmd(),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	envPath, _ := flags.GetString("env")

	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return nil, nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"dataset", &cfg.Dataset},
		{"subset", &cfg.Subset},
		{"format", &cfg.Output.Format},
		{"log-level", &cfg.Log.Level},
		{"log-format", &cfg.Log.Format},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst, _ = flags.GetString(o.flag)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr), nil
}

// newDriver loads both ground truths and, when generate is set, the ONNX
// generator and feature store. The returned func releases the generator.
func newDriver(cfg *config.Config, generate bool, log *slog.Logger) (*bench.Driver, func(), error) {
	dc, err := cfg.Driver(generate)
	if err != nil {
		return nil, nil, err
	}

	truth, err := dataset.Load(cfg.GroundTruth)
	if err != nil {
		return nil, nil, err
	}
	index, err := bench.LoadIndex(cfg.Annotations)
	if err != nil {
		return nil, nil, err
	}
	log.Info("ground truth loaded", "videos", truth.Len(), "subset", cfg.Subset,
		"subset_videos", len(truth.Videos(cfg.Subset)), "annotated_videos", len(index))

	cleanup := func() {}
	var (
		gen uap.Generator
		src uap.FeatureSource
	)
	if generate {
		g, err := inference.NewGenerator(cfg.Model.Path, cfg.Model.PoolSize, cfg.Model.IntraOpThreads)
		if err != nil {
			return nil, nil, fmt.Errorf("loading generator: %w", err)
		}
		cleanup = func() { _ = g.Close() }
		gen = g
		src = features.NewStore(cfg.FeatureDir, features.WithFallbackFPS(truth.FPS))
	}

	d, err := bench.NewDriver(dc, truth, index, gen, src, bench.WithDriverLogger(log))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return d, cleanup, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "uap-bench %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
