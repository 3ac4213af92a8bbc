package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/config"
	"github.com/pthm-cable/cortex/decision"
	"github.com/pthm-cable/cortex/registry"
)

func picked(controller uint64, name string, score float64, retained bool) *decision.Decision {
	return &decision.Decision{
		Controller: registry.EntityID(controller),
		Outcome:    decision.OutcomePicked,
		Action:     decision.Action{Template: &actions.ActionTemplate{Name: name, Key: name}, Score: score},
		Retained:   retained,
	}
}

func TestEventsFromDecision(t *testing.T) {
	d := picked(1, "Eat", 3, false)
	d.Held = false
	d.Errors = []error{errors.New("a"), errors.New("b")}

	var types []EventType
	for _, e := range EventsFromDecision(d) {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{EventPicked, EventSwitched, EventContainedError, EventContainedError}, types)

	idle := &decision.Decision{Outcome: decision.OutcomeIdle}
	require.Len(t, EventsFromDecision(idle), 1)
	assert.Equal(t, EventIdle, EventsFromDecision(idle)[0].Type)
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(1.0, 0.1)
	assert.False(t, c.ShouldFlush(9))
	assert.True(t, c.ShouldFlush(10))

	c.ObserveDecision(picked(1, "Eat", 1, false))
	c.ObserveDecision(picked(2, "Eat", 2, true))
	c.ObserveDecision(picked(3, "Sleep", 3, false))
	held := picked(4, "Eat", 4, true)
	held.Held = true
	c.ObserveDecision(held)
	c.ObserveDecision(&decision.Decision{Outcome: decision.OutcomeIdle, Invalid: 2, Pruned: 5})
	c.ObserveDecision(&decision.Decision{Outcome: decision.OutcomeSkipped})

	stats := c.Flush(10)
	assert.Equal(t, uint64(10), stats.WindowEndTick)
	assert.InDelta(t, 1.0, stats.SimTimeSec, 1e-9)
	assert.Equal(t, 6, stats.Decisions)
	assert.Equal(t, 4, stats.Picked)
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, stats.Switches)
	assert.Equal(t, 1, stats.Held)
	assert.Equal(t, 2, stats.InvalidCandidates)
	assert.Equal(t, 5, stats.PrunedCandidates)
	assert.InDelta(t, 2.5, stats.ScoreMean, 1e-12)
	assert.InDelta(t, 0.5, stats.SwitchRate, 1e-12)
	assert.Equal(t, "Eat", stats.TopAction)
	assert.InDelta(t, 0.75, stats.TopActionShare, 1e-12)

	// Counters reset for the next window
	assert.False(t, c.ShouldFlush(15))
	next := c.Flush(20)
	assert.Equal(t, uint64(10), next.WindowStartTick)
	assert.Zero(t, next.Decisions)
	assert.Empty(t, next.TopAction)
}

func TestComputeScoreStats(t *testing.T) {
	mean, std, p10, p50, p90 := ComputeScoreStats(nil)
	assert.Zero(t, mean+std+p10+p50+p90)

	mean, std, _, p50, _ = ComputeScoreStats([]float64{4})
	assert.Equal(t, 4.0, mean)
	assert.Equal(t, 0.0, std)
	assert.Equal(t, 4.0, p50)

	values := []float64{5, 1, 4, 2, 3, 6, 8, 7, 10, 9}
	mean, _, p10, p50, p90 = ComputeScoreStats(values)
	assert.InDelta(t, 5.5, mean, 1e-12)
	assert.Equal(t, 1.0, p10)
	assert.Equal(t, 5.0, p50)
	assert.Equal(t, 9.0, p90)
	// Input is not reordered
	assert.Equal(t, 5.0, values[0])
}

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestPerfCollector(t *testing.T) {
	pc := NewPerfCollector(3)
	pc.now = stepClock(time.Millisecond)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseScoring)
		pc.StartPhase(PhaseApply)
		pc.EndTick()
	}

	stats := pc.Stats()
	assert.Equal(t, 3*time.Millisecond, stats.AvgTickDuration)
	assert.Equal(t, time.Millisecond, stats.PhaseAvg[PhaseScoring])
	assert.Equal(t, time.Millisecond, stats.PhaseAvg[PhaseApply])
	assert.InDelta(t, 100.0/3, stats.PhasePct[PhaseScoring], 1e-9)
	assert.InDelta(t, 1000.0/3, stats.TicksPerSecond, 1e-9)

	row := stats.ToCSV(42)
	assert.Equal(t, uint64(42), row.WindowEnd)
	assert.Equal(t, int64(3000), row.AvgTickUS)
	assert.InDelta(t, 100.0/3, row.ScoringPct, 1e-9)
}

func TestPerfCollectorEmpty(t *testing.T) {
	stats := NewPerfCollector(0).Stats()
	assert.Zero(t, stats.AvgTickDuration)
	assert.NotNil(t, stats.PhasePct)
}

func TestPhaseRegistry(t *testing.T) {
	reg := NewPhaseRegistry()
	assert.Equal(t, PhaseSnapshot, reg.IDs()[0])
	assert.Equal(t, "Scoring", reg.GetName(PhaseScoring))
	assert.Equal(t, []string{PhaseSnapshot, PhaseGathering, PhaseScoring, PhaseSelecting, PhaseDispatching, PhaseApply, PhaseNeeds, PhaseTelemetry}, reg.IDs())
	assert.Equal(t, "custom", reg.GetName("custom"))

	n := len(reg.IDs())
	reg.Register(PhaseInfo{ID: PhaseScoring, Name: "Score"})
	assert.Len(t, reg.IDs(), n)
	info, ok := reg.Get(PhaseScoring)
	require.True(t, ok)
	assert.Equal(t, "Score", info.Name)
}

func TestOutputManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, om.Dir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, om.WriteConfig(cfg))
	require.NoError(t, om.WriteStats(WindowStats{WindowEndTick: 10, Decisions: 3, TopAction: "Eat"}))
	require.NoError(t, om.WriteStats(WindowStats{WindowEndTick: 20, Decisions: 4}))
	require.NoError(t, om.WritePerf(PerfStats{AvgTickDuration: time.Millisecond}, 20))
	require.NoError(t, om.Close())

	data, err := os.ReadFile(filepath.Join(dir, "decisions.csv"))
	require.NoError(t, err)
	var rows []WindowStats
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(20), rows[1].WindowEndTick)
	assert.Equal(t, "Eat", rows[0].TopAction)

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err)
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	assert.Nil(t, om)
	assert.NoError(t, om.WriteStats(WindowStats{}))
	assert.NoError(t, om.WritePerf(PerfStats{}, 0))
	assert.NoError(t, om.Close())
	assert.Empty(t, om.Dir())
}
