package telemetry

import "github.com/pthm-cable/cortex/decision"

// Collector accumulates decisions within time windows and produces
// WindowStats. It implements decision.Observer.
type Collector struct {
	windowDurationTicks uint64
	dt                  float64

	// Current window tracking
	windowStartTick uint64

	counts    [numEventTypes]int
	decisions int
	invalid   int
	pruned    int
	scores    []float64
	picks     map[string]int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := uint64(windowDurationSec/dt + 0.5)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		picks:               make(map[string]int),
	}
}

// ObserveDecision implements decision.Observer.
func (c *Collector) ObserveDecision(d *decision.Decision) {
	c.decisions++
	c.invalid += d.Invalid
	c.pruned += d.Pruned
	for _, e := range EventsFromDecision(d) {
		c.Record(e)
	}
}

// Record counts a single event.
func (c *Collector) Record(e Event) {
	if e.Type >= numEventTypes {
		return
	}
	c.counts[e.Type]++
	if e.Type == EventPicked {
		c.scores = append(c.scores, e.Score)
		c.picks[e.Action]++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick uint64) WindowStats {
	picked := c.counts[EventPicked]
	var idleRate, switchRate float64
	if c.decisions > 0 {
		idleRate = float64(c.counts[EventIdle]) / float64(c.decisions)
	}
	if picked > 0 {
		switchRate = float64(c.counts[EventSwitched]) / float64(picked)
	}
	mean, std, p10, p50, p90 := ComputeScoreStats(c.scores)
	top, share := topAction(c.picks, picked)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Decisions: c.decisions,
		Picked:    picked,
		Idle:      c.counts[EventIdle],
		Skipped:   c.counts[EventSkipped],
		Aborted:   c.counts[EventAborted],
		Switches:  c.counts[EventSwitched],
		Held:      c.counts[EventHeld],

		DispatchFailures:  c.counts[EventDispatchFailed],
		ContainedErrors:   c.counts[EventContainedError],
		InvalidCandidates: c.invalid,
		PrunedCandidates:  c.pruned,

		IdleRate:   idleRate,
		SwitchRate: switchRate,

		ScoreMean: mean,
		ScoreStd:  std,
		ScoreP10:  p10,
		ScoreP50:  p50,
		ScoreP90:  p90,

		TopAction:      top,
		TopActionShare: share,
	}

	c.reset(currentTick)
	return stats
}

func (c *Collector) reset(tick uint64) {
	c.windowStartTick = tick
	c.counts = [numEventTypes]int{}
	c.decisions = 0
	c.invalid = 0
	c.pruned = 0
	c.scores = c.scores[:0]
	clear(c.picks)
}
