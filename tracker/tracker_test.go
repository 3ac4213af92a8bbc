package tracker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/cortex/registry"
)

// fakeClock advances by step on every call.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestStateClassification(t *testing.T) {
	tests := []struct {
		s                                       State
		initial, progressed, terminal, processs bool
	}{
		{Queued, true, false, false, false},
		{Ready, true, false, false, true},
		{Running, false, true, false, true},
		{Paused, false, true, false, false},
		{Succeeded, false, false, true, false},
		{Failed, false, false, true, false},
		{Cancelled, false, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.s.String(), func(t *testing.T) {
			assert.Equal(t, tt.initial, tt.s.IsInitial())
			assert.Equal(t, tt.progressed, tt.s.IsProgressed())
			assert.Equal(t, tt.terminal, tt.s.IsTerminal())
			assert.Equal(t, tt.processs, tt.s.ShouldProcess())
		})
	}
}

func TestTrackerAllOptions(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	table := NewTable(Options{EnableTimestamp: true, EnableTickMarker: true, EnableTimer: true})
	table.SetClock(fakeClock(start, 100*time.Millisecond))

	tr, replaced := table.Start(1, 2, "Eat", "eat", 9, 10)
	assert.Nil(t, replaced)
	assert.NotEqual(t, uuid.Nil, tr.ID)
	assert.Equal(t, Ready, tr.State)
	assert.Equal(t, start, tr.CreatedAt)
	assert.Equal(t, start, tr.LastUpdate)
	assert.False(t, tr.TickFlag)

	tr, ok := table.Refresh(1, 11)
	require.True(t, ok)
	assert.Equal(t, Running, tr.State)
	assert.True(t, tr.TickFlag)
	assert.Equal(t, 100*time.Millisecond, tr.ElapsedSinceLastTick)
	assert.Equal(t, start.Add(100*time.Millisecond), tr.LastUpdate)
	assert.Equal(t, start, tr.CreatedAt)

	tr, _ = table.Refresh(1, 12)
	assert.False(t, tr.TickFlag)
	assert.Equal(t, 200*time.Millisecond, tr.Elapsed)
	assert.Equal(t, uint64(2), tr.Refreshes)
	assert.Equal(t, uint64(12), tr.LastTick)
	assert.Equal(t, uint64(10), tr.StartTick)
}

func TestTrackerOptionsDisabled(t *testing.T) {
	table := NewTable(Options{})
	table.SetClock(fakeClock(time.Unix(100, 0), time.Second))

	table.Start(1, 0, "Idle", "idle", 0, 1)
	tr, ok := table.Refresh(1, 2)
	require.True(t, ok)
	assert.True(t, tr.CreatedAt.IsZero())
	assert.True(t, tr.LastUpdate.IsZero())
	assert.False(t, tr.TickFlag)
	assert.Zero(t, tr.ElapsedSinceLastTick)
	assert.Zero(t, tr.Elapsed)
}

func TestTrackerReplacement(t *testing.T) {
	table := NewTable(Options{})
	first, _ := table.Start(1, 0, "Eat", "eat", 5, 1)
	second, replaced := table.Start(1, 0, "Sleep", "sleep", 6, 2)

	require.NotNil(t, replaced)
	assert.Equal(t, first.ID, replaced.ID)
	assert.Equal(t, Cancelled, replaced.State)
	assert.NotEqual(t, first.ID, second.ID)

	got, ok := table.Get(1)
	require.True(t, ok)
	assert.True(t, got.Same("Sleep", "sleep", 6))
	assert.False(t, got.Same("Sleep", "sleep", 7))
	assert.Equal(t, 1, table.Len())
}

func TestTrackerStateTransitions(t *testing.T) {
	table := NewTable(Options{})
	table.Start(1, 0, "Eat", "eat", 5, 1)

	require.NoError(t, table.SetState(1, Paused))
	require.NoError(t, table.SetState(1, Succeeded))
	assert.ErrorIs(t, table.SetState(1, Running), ErrTerminal)
	assert.Error(t, table.SetState(99, Running))
	_, ok := table.Refresh(1, 2)
	assert.False(t, ok, "finished actions are not refreshed")

	ended, ok := table.End(1, Cancelled)
	require.True(t, ok)
	assert.Equal(t, Succeeded, ended.State, "finished actions keep their state")
	_, ok = table.Get(1)
	assert.False(t, ok)
	_, ok = table.Refresh(1, 3)
	assert.False(t, ok)
}

func TestTrackerPrune(t *testing.T) {
	table := NewTable(Options{})
	for id := registry.EntityID(1); id <= 4; id++ {
		table.Start(id, 0, "Idle", "idle", 0, 1)
	}
	n := table.Prune(func(id registry.EntityID) bool { return id%2 == 0 })
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, table.Len())
}
