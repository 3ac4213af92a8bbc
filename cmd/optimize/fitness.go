package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/cortex/config"
	"github.com/pthm-cable/cortex/game"
	"github.com/pthm-cable/cortex/telemetry"
)

// switchPenalty weights the per-pick switch rate against mean need levels.
const switchPenalty = 50.0

// FitnessEvaluator runs headless villages and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastNeeds   float64
	lastSwitch  float64
	bestFitness float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// LastBreakdown returns the mean need level and switch rate of the most
// recent evaluation.
func (fe *FitnessEvaluator) LastBreakdown() (needs, switchRate float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastNeeds, fe.lastSwitch
}

// runResult holds the results from a single simulation run.
type runResult struct {
	needs      float64 // mean hunger + fatigue at the end of the run
	switchRate float64 // mean over stats windows
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Failed runs score +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds))
	g, ctx := errgroup.WithContext(context.Background())
	for i, seed := range fe.seeds {
		g.Go(func() error {
			r, err := fe.runSimulation(ctx, cfg, seed)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("evaluation failed", "error", err)
		return math.Inf(1)
	}

	var needs, switches float64
	for _, r := range results {
		needs += r.needs
		switches += r.switchRate
	}
	n := float64(len(results))
	needs /= n
	switches /= n
	fitness := needs + switchPenalty*switches

	fe.mu.Lock()
	fe.lastNeeds = needs
	fe.lastSwitch = switches
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
	}
	fe.mu.Unlock()

	return fitness
}

// runSimulation runs one seeded village to maxTicks.
func (fe *FitnessEvaluator) runSimulation(ctx context.Context, cfg *config.Config, seed int64) (runResult, error) {
	var windows []telemetry.WindowStats
	g, err := game.NewGame(ctx, cfg, game.Options{
		Seed:          seed,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})
	if err != nil {
		return runResult{}, err
	}
	defer g.Close()

	if err := g.Run(ctx, fe.maxTicks); err != nil {
		return runResult{}, err
	}

	stats := g.Stats()
	var switchRate float64
	for _, w := range windows {
		switchRate += w.SwitchRate
	}
	if len(windows) > 0 {
		switchRate /= float64(len(windows))
	}
	return runResult{needs: stats.MeanHunger + stats.MeanFatigue, switchRate: switchRate}, nil
}

// copyConfig returns a copy of the base config. Config holds only values, so
// a struct copy is deep.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
