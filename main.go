package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/cortex/config"
	"github.com/pthm-cable/cortex/game"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "Utility decision engine with a headless village demo",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		// JSON to stdout for structured logging
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

var (
	seed        int64
	maxTicks    int
	outputDir   string
	logStats    bool
	statsWindow float64
	setsDir     string
	watchSets   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the village simulation headless",
	RunE:  runVillage,
}

var validateCmd = &cobra.Command{
	Use:   "validate [dir...]",
	Short: "Load and validate action-set directories",
	Long: `Parses every action-set file in each directory, resolves curves and
checks that every fetcher, consideration and handler key is registered by the
village host. With no arguments the embedded sets are validated.`,
	RunE: runValidate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	runCmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (0 = time-based)")
	runCmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory for CSV logs and config snapshot")
	runCmd.Flags().BoolVar(&logStats, "log-stats", false, "Output stats via slog")
	runCmd.Flags().Float64Var(&statsWindow, "stats-window", 0, "Stats window size in seconds (0 = use config)")
	runCmd.Flags().StringVar(&setsDir, "action-sets", "", "Action-set directory (empty = use config)")
	runCmd.Flags().BoolVar(&watchSets, "watch", false, "Reload action sets when files change")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

func runVillage(cmd *cobra.Command, args []string) error {
	cfg := config.Cfg()
	if statsWindow > 0 {
		cfg.Telemetry.StatsWindow = statsWindow
	}
	if setsDir != "" {
		cfg.ActionSets.Dir = setsDir
	}
	if watchSets {
		cfg.ActionSets.Watch = true
	}

	rngSeed := seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	g, err := game.NewGame(ctx, cfg, game.Options{
		Seed:      rngSeed,
		OutputDir: outputDir,
		LogStats:  logStats,
		Logger:    slog.Default(),
	})
	if err != nil {
		return err
	}
	defer g.Close()

	slog.Info("starting headless simulation",
		"seed", rngSeed,
		"stats_window", cfg.Telemetry.StatsWindow,
		"max_ticks", maxTicks,
		"action_sets", cfg.ActionSets.Dir,
		"watch", cfg.ActionSets.Watch,
	)

	start := time.Now()
	if err := g.Run(ctx, maxTicks); err != nil {
		return err
	}
	slog.Info("simulation stopped",
		"tick", g.Tick(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
		"village", g.Stats(),
	)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Cfg()
	dirs := args
	if len(dirs) == 0 {
		dirs = []string{""}
	}

	failed := 0
	for _, dir := range dirs {
		name := dir
		if name == "" {
			name = "(embedded)"
		}
		report, err := game.ValidateActionSets(cmd.Context(), cfg, dir)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "ERROR in %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %s (%d sets, %d templates)\n", name, report.Sets, report.Templates)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d action-set directories invalid", failed, len(dirs))
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
