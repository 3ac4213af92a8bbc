package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated decision statistics for a time window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Decisions during window
	Decisions int `csv:"decisions"`
	Picked    int `csv:"picked"`
	Idle      int `csv:"idle"`
	Skipped   int `csv:"skipped"`
	Aborted   int `csv:"aborted"`
	Switches  int `csv:"switches"`
	Held      int `csv:"held"`

	// Contained failures
	DispatchFailures  int `csv:"dispatch_failures"`
	ContainedErrors   int `csv:"contained_errors"`
	InvalidCandidates int `csv:"invalid_candidates"`
	PrunedCandidates  int `csv:"pruned_candidates"`

	IdleRate   float64 `csv:"idle_rate"`
	SwitchRate float64 `csv:"switch_rate"`

	// Winning score distribution
	ScoreMean float64 `csv:"score_mean"`
	ScoreStd  float64 `csv:"score_std"`
	ScoreP10  float64 `csv:"score_p10"`
	ScoreP50  float64 `csv:"score_p50"`
	ScoreP90  float64 `csv:"score_p90"`

	// Most picked action
	TopAction      string  `csv:"top_action"`
	TopActionShare float64 `csv:"top_action_share"`
}

// ComputeScoreStats calculates mean, standard deviation and percentiles.
func ComputeScoreStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std = stat.MeanStdDev(sorted, nil)
	if n == 1 {
		std = 0
	}
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, std, p10, p50, p90
}

// topAction returns the most picked action and its share of picks. Ties
// go to the lexically smallest name.
func topAction(picks map[string]int, total int) (string, float64) {
	if total == 0 {
		return "", 0
	}
	best, bestN := "", -1
	for name, n := range picks {
		if n > bestN || (n == bestN && name < best) {
			best, bestN = name, n
		}
	}
	return best, float64(bestN) / float64(total)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("decisions", s.Decisions),
		slog.Int("picked", s.Picked),
		slog.Int("idle", s.Idle),
		slog.Int("switches", s.Switches),
		slog.Int("held", s.Held),
		slog.Int("contained_errors", s.ContainedErrors),
		slog.Float64("score_p50", s.ScoreP50),
		slog.String("top_action", s.TopAction),
		slog.Float64("top_action_share", s.TopActionShare),
	)
}
