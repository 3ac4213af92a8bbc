package game

import (
	"log/slog"

	"github.com/pthm-cable/cortex/registry"
)

// VillageStats summarises the village at one tick.
type VillageStats struct {
	Tick        uint64
	Villagers   int
	MeanHunger  float64
	MeanFatigue float64
	FoodStock   float64
	BedsInUse   int
	Eaten       float64 // Total food eaten since start
	Activities  map[string]int
}

// LogValue implements slog.LogValuer.
func (s VillageStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Uint64("tick", s.Tick),
		slog.Int("villagers", s.Villagers),
		slog.Float64("mean_hunger", s.MeanHunger),
		slog.Float64("mean_fatigue", s.MeanFatigue),
		slog.Float64("food_stock", s.FoodStock),
		slog.Int("beds_in_use", s.BedsInUse),
		slog.Float64("eaten", s.Eaten),
	}
	for action, n := range s.Activities {
		attrs = append(attrs, slog.Int("doing_"+action, n))
	}
	return slog.GroupValue(attrs...)
}

// Stats samples the village.
func (g *Game) Stats() VillageStats {
	s := VillageStats{Tick: g.tick, Eaten: g.eaten, Activities: make(map[string]int)}

	pq := g.pawnFilter.Query()
	for pq.Next() {
		_, _, _, needs, act := pq.Get()
		s.Villagers++
		s.MeanHunger += float64(needs.Hunger)
		s.MeanFatigue += float64(needs.Fatigue)
		if act.Action != "" {
			s.Activities[act.Action]++
		}
	}
	if s.Villagers > 0 {
		s.MeanHunger /= float64(s.Villagers)
		s.MeanFatigue /= float64(s.Villagers)
	}

	fq := g.foodFilter.Query()
	for fq.Next() {
		_, _, food := fq.Get()
		s.FoodStock += float64(food.Stock)
	}

	bq := g.bedFilter.Query()
	for bq.Next() {
		_, _, bed := bq.Get()
		if bed.Occupant != registry.None {
			s.BedsInUse++
		}
	}
	return s
}

// flushTelemetry flushes the stats window when it is due.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick)
	perfStats := g.perf.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		g.logger.Info("decisions", "window", stats)
		g.logger.Info("village", "stats", g.Stats())
		perfStats.LogStats(g.phases)
		if g.trackers != nil {
			g.logger.Info("trackers", "active", g.trackers.Len())
		}
	}

	if err := g.output.WriteStats(stats); err != nil {
		g.logger.Error("failed to write stats", "error", err)
	}
	if err := g.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
}
