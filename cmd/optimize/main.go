package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/cortex/config"
)

// evalRecord is one row of optimize_log.csv.
type evalRecord struct {
	Eval             int     `csv:"eval"`
	Fitness          float64 `csv:"fitness"`
	Needs            float64 `csv:"needs"`
	SwitchRate       float64 `csv:"switch_rate"`
	Hysteresis       float64 `csv:"hysteresis"`
	SmartObjectRange float64 `csv:"smart_object_range"`
	WalkSpeed        float64 `csv:"walk_speed"`
	EatRate          float64 `csv:"eat_rate"`
	FoodRegrowth     float64 `csv:"food_regrowth"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

var (
	configPath string
	maxTicks   int
	seeds      int
	maxEvals   int
	population int
	outputDir  string
)

var rootCmd = &cobra.Command{
	Use:          "optimize",
	Short:        "Tune engine and village parameters with CMA-ES",
	RunE:         runOptimize,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Base config YAML file (empty = use defaults)")
	rootCmd.Flags().IntVar(&maxTicks, "max-ticks", 3000, "Simulation duration in ticks per run")
	rootCmd.Flags().IntVar(&seeds, "seeds", 3, "Number of seeds per evaluation")
	rootCmd.Flags().IntVar(&maxEvals, "max-evals", 200, "Maximum number of evaluations")
	rootCmd.Flags().IntVar(&population, "population", 0, "CMA-ES population size (0 = auto)")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "Output directory for results")
	_ = rootCmd.MarkFlagRequired("output")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	baseCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	params := NewParamVector()

	evalSeeds := make([]int64, seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, maxTicks, evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	popSize := population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	logPath := filepath.Join(outputDir, "optimize_log.csv")
	var records []evalRecord
	var bestFitness = 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)
			clamped := params.Clamp(raw)
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			needs, switchRate := evaluator.LastBreakdown()
			records = append(records, evalRecord{
				Eval:             len(records) + 1,
				Fitness:          fitness,
				Needs:            needs,
				SwitchRate:       switchRate,
				Hysteresis:       clamped[0],
				SmartObjectRange: clamped[1],
				WalkSpeed:        clamped[2],
				EatRate:          clamped[3],
				FoodRegrowth:     clamped[4],
			})
			if err := writeLog(logPath, records); err != nil {
				slog.Error("failed to write optimize log", "error", err)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(len(records))
			remaining := time.Duration(maxEvals-len(records)) * avgPerEval
			fmt.Printf("Eval %d/%d: needs=%.1f switch=%.3f (best=%.2f) | elapsed: %s, ETA: %s\n",
				len(records), maxEvals, needs, switchRate, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))
			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds already run in parallel
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per run: %d\n", seeds, maxTicks)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		return fmt.Errorf("no evaluations completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", len(records), formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.3f\n", bestFitness)
	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		return fmt.Errorf("failed to write best config: %w", err)
	}
	fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	return nil
}

// writeLog rewrites the evaluation log with every record so far.
func writeLog(path string, records []evalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&records, f)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
