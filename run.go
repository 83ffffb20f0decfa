package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wildstyl3r/comptsplit/internal/biasing"
	"github.com/wildstyl3r/comptsplit/internal/config"
	"github.com/wildstyl3r/comptsplit/internal/hits"
	"github.com/wildstyl3r/comptsplit/internal/random"
	"github.com/wildstyl3r/comptsplit/internal/stats"
	"github.com/wildstyl3r/comptsplit/internal/transport"
	"github.com/wildstyl3r/comptsplit/internal/utils"
)

var runFlags struct {
	threads int
	seed    int64
	events  int
	runs    int
	metrics string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation",
	Long: `Run the simulation described by the configuration file.

Flags override the matching configuration keys.

Examples:
  comptsplit run --config phantom.toml
  comptsplit run -c phantom.yaml --threads 8 --events 100000 --seed 42
  comptsplit run -c phantom.toml --metrics run.prom`,
	Args: cobra.NoArgs,
	RunE: runSimulation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runFlags.threads, "threads", "t", 0, "override number of worker threads")
	runCmd.Flags().Int64VarP(&runFlags.seed, "seed", "s", 0, "override master seed (0 draws a random one)")
	runCmd.Flags().IntVarP(&runFlags.events, "events", "n", 0, "override number of events per run")
	runCmd.Flags().IntVar(&runFlags.runs, "runs", 0, "override number of runs")
	runCmd.Flags().StringVar(&runFlags.metrics, "metrics", "", "write run metrics in Prometheus text format to this file")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("threads") {
		cfg.Threads = runFlags.threads
	}
	if flags.Changed("seed") {
		cfg.Seed = runFlags.seed
	}
	if flags.Changed("events") {
		cfg.Events = runFlags.events
	}
	if flags.Changed("runs") {
		cfg.Runs = runFlags.runs
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	verbose = verbose || cfg.Verbose

	logger := newLogger().With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	master := cfg.Seed
	if master == 0 {
		if master, err = random.NewSeed(); err != nil {
			return err
		}
		logger.Info("drew random seed", "seed", master)
	}

	var recorder *hits.Recorder
	if cfg.Hits.Volume != "" {
		recorder, err = hits.NewRecorder(hits.NewRegistry(), cfg.Hits.Volume, cfg.Hits.Attributes)
		if err != nil {
			return err
		}
	}
	collector := stats.NewCollector(nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger.Info("simulation started",
		"config", cfgFile,
		"seed", master,
		"runs", cfg.Runs,
		"events", cfg.Events,
		"threads", cfg.Threads,
		"splitting_volume", cfg.Splitting.Mother,
		"splitting_factor", cfg.Splitting.SplittingFactor,
	)
	for run := range cfg.Runs {
		runCfg := *cfg
		runCfg.Seed = master
		if cfg.Runs > 1 {
			runCfg.Seed = random.DeriveSeed(master, uint64(run))
		}
		engine, err := transport.NewEngine(&runCfg, transport.Options{
			RunID:    run,
			Recorder: recorder,
			Stats:    collector,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		result, err := engine.Run(ctx)
		logResult(logger, result)
		if err != nil {
			return err
		}
	}

	if recorder != nil {
		if err := writeHits(ctx, cfg, recorder); err != nil {
			return err
		}
		logger.Info("hits written", "rows", recorder.Len(), "format", cfg.Hits.Format)
	}
	if runFlags.metrics != "" {
		if err := collector.WriteTextfile(runFlags.metrics); err != nil {
			return err
		}
	}
	return nil
}

func logResult(logger *slog.Logger, r transport.RunResult) {
	ratio := 0.
	if r.WeightIn > 0 {
		ratio = r.WeightOut / r.WeightIn
	}
	logger.Info("run finished",
		"run", r.RunID,
		"seed", r.Seed,
		"events", r.Events,
		"tracks", r.Tracks,
		"steps", r.Steps,
		"hits", r.Hits,
		"split", r.Decisions[biasing.Split],
		"survived", r.Decisions[biasing.Survived],
		"killed", r.Decisions[biasing.Killed],
		"unbiased", r.Decisions[biasing.Unbiased],
		"daughters", r.Daughters,
		"weight_ratio", ratio,
		"energy_deposit_mev", r.EnergyDeposit,
		"deposit_per_event_mev", fmt.Sprintf("%.6g ± %.2g", r.MeanDeposit, r.DepositError),
		"duration", r.Duration,
	)
	if r.Stuck > 0 {
		logger.Warn("tracks killed in navigation", "run", r.RunID, "count", r.Stuck)
	}
}

func writeHits(ctx context.Context, cfg *config.Config, rec *hits.Recorder) error {
	switch cfg.Hits.Format {
	case "sqlite":
		path, err := utils.OutputPath(cfg.MakeDir, cfg.OutputDir, cfg.Hits.File+".db")
		if err != nil {
			return err
		}
		return hits.WriteSQLite(ctx, path, "hits", rec)
	default:
		file, err := utils.OpenFile(cfg.MakeDir, cfg.OutputDir, cfg.Hits.File+".csv")
		if err != nil {
			return fmt.Errorf("unable to save hits: %w", err)
		}
		if err := hits.WriteCSV(file, rec); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}
}
