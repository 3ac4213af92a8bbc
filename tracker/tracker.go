// Package tracker keeps bookkeeping for the action each controller is
// currently executing.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/cortex/registry"
)

// ErrTerminal is returned when changing the state of a finished action.
var ErrTerminal = errors.New("action already finished")

// State is the lifecycle stage of a tracked action.
type State uint8

const (
	Queued State = iota
	Ready
	Running
	Paused
	Succeeded
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Queued:
		return "queued"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// IsInitial reports whether the action has not started yet.
func (s State) IsInitial() bool { return s == Queued || s == Ready }

// IsProgressed reports whether the action has started but not finished.
func (s State) IsProgressed() bool { return s == Running || s == Paused }

// IsTerminal reports whether the action has finished.
func (s State) IsTerminal() bool { return s >= Succeeded }

// ShouldProcess reports whether the host should advance the action this tick.
func (s State) ShouldProcess() bool { return s == Ready || s == Running }

// Options selects the optional fields a tracker maintains.
type Options struct {
	EnableTimestamp  bool `yaml:"enable_timestamp"`
	EnableTickMarker bool `yaml:"enable_tick_marker"`
	EnableTimer      bool `yaml:"enable_timer"`
}

// Tracker records one controller's current action.
type Tracker struct {
	ID         uuid.UUID
	Controller registry.EntityID
	Pawn       registry.EntityID
	Name       string
	Key        string
	Context    registry.ContextID
	State      State

	StartTick uint64
	LastTick  uint64
	Refreshes uint64

	// Set when EnableTimestamp is on.
	CreatedAt  time.Time
	LastUpdate time.Time

	// Flipped on every refresh when EnableTickMarker is on.
	TickFlag bool

	// Set when EnableTimer is on.
	ElapsedSinceLastTick time.Duration
	Elapsed              time.Duration

	lastRefresh time.Time
}

// Same reports whether the tracker is for the given action and context.
func (t *Tracker) Same(name, key string, ctx registry.ContextID) bool {
	return t.Name == name && t.Key == key && t.Context == ctx
}

// LogValue implements slog.LogValuer.
func (t Tracker) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", t.ID.String()),
		slog.Uint64("controller", uint64(t.Controller)),
		slog.String("action", t.Name),
		slog.String("key", t.Key),
		slog.Uint64("context", uint64(t.Context)),
		slog.String("state", t.State.String()),
		slog.Uint64("refreshes", t.Refreshes),
		slog.Duration("elapsed", t.Elapsed),
	)
}

func (t *Tracker) transition(to State) error {
	if t.State.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrTerminal, t.State, to)
	}
	t.State = to
	return nil
}

// Table holds the active tracker of every controller. It is safe for
// concurrent use.
type Table struct {
	mu     sync.Mutex
	opts   Options
	clock  func() time.Time
	active map[registry.EntityID]*Tracker
}

// NewTable creates an empty table.
func NewTable(opts Options) *Table {
	return &Table{
		opts:   opts,
		clock:  time.Now,
		active: make(map[registry.EntityID]*Tracker),
	}
}

// SetClock replaces the time source.
func (t *Table) SetClock(clock func() time.Time) {
	t.mu.Lock()
	t.clock = clock
	t.mu.Unlock()
}

// Options returns the table's options.
func (t *Table) Options() Options { return t.opts }

// Start begins tracking a new action for controller. A previous unfinished
// action is cancelled and returned.
func (t *Table) Start(controller, pawn registry.EntityID, name, key string, ctx registry.ContextID, tick uint64) (started Tracker, replaced *Tracker) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.active[controller]; ok {
		if !prev.State.IsTerminal() {
			prev.State = Cancelled
		}
		replaced = prev
	}

	tr := &Tracker{
		ID:         uuid.New(),
		Controller: controller,
		Pawn:       pawn,
		Name:       name,
		Key:        key,
		Context:    ctx,
		State:      Ready,
		StartTick:  tick,
		LastTick:   tick,
	}
	now := t.clock()
	if t.opts.EnableTimestamp {
		tr.CreatedAt = now
		tr.LastUpdate = now
	}
	if t.opts.EnableTimer {
		tr.lastRefresh = now
	}
	t.active[controller] = tr
	return *tr, replaced
}

// Refresh records another tick of the controller's current action. A
// finished action is not refreshed; the caller should Start a new one.
func (t *Table) Refresh(controller registry.EntityID, tick uint64) (Tracker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.active[controller]
	if !ok || tr.State.IsTerminal() {
		return Tracker{}, false
	}
	if tr.State == Ready || tr.State == Queued {
		tr.State = Running
	}
	tr.LastTick = tick
	tr.Refreshes++

	now := t.clock()
	if t.opts.EnableTimestamp {
		tr.LastUpdate = now
	}
	if t.opts.EnableTickMarker {
		tr.TickFlag = !tr.TickFlag
	}
	if t.opts.EnableTimer {
		tr.ElapsedSinceLastTick = now.Sub(tr.lastRefresh)
		tr.Elapsed += tr.ElapsedSinceLastTick
		tr.lastRefresh = now
	}
	return *tr, true
}

// Get returns a copy of the controller's tracker.
func (t *Table) Get(controller registry.EntityID) (Tracker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.active[controller]
	if !ok {
		return Tracker{}, false
	}
	return *tr, true
}

// SetState moves the controller's action to a new state. Finished actions
// cannot change state.
func (t *Table) SetState(controller registry.EntityID, s State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.active[controller]
	if !ok {
		return fmt.Errorf("controller %d: no tracked action", controller)
	}
	return tr.transition(s)
}

// End stops tracking the controller's action, recording final as its state
// unless it had already finished.
func (t *Table) End(controller registry.EntityID, final State) (Tracker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.active[controller]
	if !ok {
		return Tracker{}, false
	}
	if !tr.State.IsTerminal() {
		tr.State = final
	}
	delete(t.active, controller)
	return *tr, true
}

// Prune ends the trackers of controllers for which alive returns false.
func (t *Table) Prune(alive func(registry.EntityID) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, tr := range t.active {
		if !alive(id) {
			if !tr.State.IsTerminal() {
				tr.State = Cancelled
			}
			delete(t.active, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked controllers.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
