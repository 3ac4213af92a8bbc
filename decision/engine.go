package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/cortex/registry"
	"github.com/pthm-cable/cortex/scoring"
	"github.com/pthm-cable/cortex/tracker"
)

// Options configures an Engine.
type Options struct {
	// Workers in the scoring pool; 0 uses GOMAXPROCS.
	Workers int
	// ParallelThreshold is the controller count at which scoring moves to
	// the worker pool; 0 uses the default, negative disables the pool.
	ParallelThreshold int
	// Hysteresis keeps the previous action while it scores within this
	// absolute distance of the best candidate. 0 disables it.
	Hysteresis float64
	// Prune skips templates and contexts that cannot win.
	Prune bool

	// Tracker, when set, is started or refreshed for every dispatch.
	Tracker  *tracker.Table
	Observer Observer
	Perf     PhaseTimer
	Logger   *slog.Logger
}

// TickResult is the outcome of one engine tick.
type TickResult struct {
	Tick      uint64
	Decisions []Decision
	// Commands emitted by handlers, in controller order. The host applies
	// them after the tick.
	Commands []registry.Command
}

// Engine runs the decision loop for a population of controllers.
type Engine struct {
	reg       *registry.Registry
	opts      Options
	logger    *slog.Logger
	suppliers []Supply

	tick    uint64
	memory  map[registry.EntityID]memo
	jobs    []job
	results []Decision
	cands   []candidates
	cmds    registry.Commands
	serial  *scratch
	pool    *pool

	// reported dedupes missing-key errors per registry version
	reported map[string]uint64
}

// NewEngine creates an engine over reg.
func NewEngine(reg *registry.Registry, opts Options) *Engine {
	if opts.ParallelThreshold == 0 {
		opts.ParallelThreshold = defaultParallelThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		reg:      reg,
		opts:     opts,
		logger:   logger,
		memory:   make(map[registry.EntityID]memo),
		serial:   newScratch(),
		pool:     newPool(opts.Workers),
		reported: make(map[string]uint64),
	}
}

// AddSupply registers a source of extra action sets. Not safe to call
// during Tick.
func (e *Engine) AddSupply(s Supply) {
	e.suppliers = append(e.suppliers, s)
}

// CurrentTick returns the number of completed ticks.
func (e *Engine) CurrentTick() uint64 { return e.tick }

// Forget drops everything remembered about controller.
func (e *Engine) Forget(controller registry.EntityID) {
	delete(e.memory, controller)
	if e.opts.Tracker != nil {
		e.opts.Tracker.End(controller, tracker.Cancelled)
	}
}

// Close stops the worker pool.
func (e *Engine) Close() {
	e.pool.stop()
}

// Tick decides for every controller. Scoring runs in parallel against w and
// a registry snapshot taken at the start of the tick; dispatch runs
// afterwards in controller order.
func (e *Engine) Tick(ctx context.Context, w World, controllers []registry.EntityID) (TickResult, error) {
	if err := ctx.Err(); err != nil {
		return TickResult{}, err
	}
	e.tick++
	snap := e.reg.Snapshot()
	scorer := &scoring.Scorer{Snapshot: snap, Prune: e.opts.Prune}

	// Phase A: build jobs (single-threaded)
	e.startPhase(PhaseGathering)
	e.jobs = e.jobs[:0]
	for _, id := range controllers {
		prev, ok := e.memory[id]
		e.jobs = append(e.jobs, job{controller: id, prev: prev, hasPrev: ok})
	}
	n := len(e.jobs)
	if cap(e.results) < n {
		e.results = make([]Decision, n)
		e.cands = make([]candidates, n)
	}
	e.results = e.results[:n]
	e.cands = e.cands[:n]

	// Phase B: score (parallel above threshold)
	e.startPhase(PhaseScoring)
	if e.opts.ParallelThreshold < 0 || n < e.opts.ParallelThreshold {
		e.decideRange(w, scorer, 0, n, e.serial)
	} else {
		e.pool.run(e, w, scorer, n)
	}

	if err := ctx.Err(); err != nil {
		return TickResult{Tick: e.tick}, err
	}

	// Selecting (single-threaded)
	e.startPhase(PhaseSelecting)
	for i := range e.results {
		e.selectAction(e.jobs[i], &e.cands[i], &e.results[i])
	}

	// Phase C: dispatch (single-threaded, preserves determinism)
	e.startPhase(PhaseDispatching)
	for i := range e.results {
		e.dispatch(w, snap, &e.results[i])
	}
	e.forgetGone(w)

	res := TickResult{
		Tick:      e.tick,
		Decisions: append([]Decision(nil), e.results...),
		Commands:  e.cmds.Drain(),
	}
	if e.opts.Observer != nil {
		for i := range res.Decisions {
			e.opts.Observer.ObserveDecision(&res.Decisions[i])
		}
	}
	return res, nil
}

func (e *Engine) dispatch(w World, snap *registry.Snapshot, d *Decision) {
	for _, err := range d.Errors {
		e.report(snap, d, err)
	}
	if d.Outcome == OutcomeAborted {
		e.Forget(d.Controller)
		return
	}
	if d.Outcome != OutcomePicked {
		if d.Outcome == OutcomeIdle {
			e.Forget(d.Controller)
		}
		return
	}

	// The host may have removed the controller or pawn since scoring.
	if !w.Alive(d.Controller) || (d.Pawn != registry.None && !w.Alive(d.Pawn)) {
		d.Outcome = OutcomeAborted
		d.Err = ErrControllerGone
		if d.Pawn != registry.None && w.Alive(d.Controller) {
			d.Err = ErrPawnGone
		}
		e.Forget(d.Controller)
		return
	}

	key := d.Action.Key()
	handler, err := snap.Handler(key)
	if err != nil {
		d.DispatchErr = err
		e.report(snap, d, err)
		return
	}

	req := registry.Dispatch{
		Controller: d.Controller,
		Pawn:       d.Pawn,
		Context:    d.Action.Context,
		Name:       d.Action.Name(),
		Key:        key,
		Score:      d.Action.Score,
		Tick:       d.Tick,
		Retained:   d.Retained,
	}
	if err := safeHandle(handler, w, req, &e.cmds); err != nil {
		d.DispatchErr = err
		e.logger.Error("action handler failed",
			"controller", uint64(d.Controller), "action", req.Name, "key", key, "error", err)
		return
	}

	e.memory[d.Controller] = memo{name: req.Name, key: key, ctx: req.Context}
	if t := e.opts.Tracker; t != nil {
		if d.Retained {
			if _, ok := t.Refresh(d.Controller, d.Tick); ok {
				return
			}
		}
		t.Start(d.Controller, d.Pawn, req.Name, key, req.Context, d.Tick)
	}
}

// report logs a contained error. Missing keys are logged once per registry
// version; invalid outputs go to debug.
func (e *Engine) report(snap *registry.Snapshot, d *Decision, err error) {
	switch {
	case errors.Is(err, registry.ErrKeyNotFound):
		msg := err.Error()
		if v, seen := e.reported[msg]; seen && v == snap.Version() {
			return
		}
		e.reported[msg] = snap.Version()
		e.logger.Error("missing registry key", "controller", uint64(d.Controller), "error", err)
	case errors.Is(err, scoring.ErrInvalidOutput):
		e.logger.Debug("candidate discarded", "controller", uint64(d.Controller), "error", err)
	default:
		e.logger.Warn("candidate rejected", "controller", uint64(d.Controller), "error", err)
	}
}

func (e *Engine) forgetGone(w World) {
	for id := range e.memory {
		if !w.Alive(id) {
			delete(e.memory, id)
		}
	}
	if e.opts.Tracker != nil {
		e.opts.Tracker.Prune(w.Alive)
	}
}

func (e *Engine) startPhase(p Phase) {
	if e.opts.Perf != nil {
		e.opts.Perf.StartPhase(p.String())
	}
}

func safeHandle(h registry.ActionHandler, w World, d registry.Dispatch, cmds *registry.Commands) (err error) {
	mark := cmds.Len()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action handler panicked: %v", r)
		}
		if err != nil {
			cmds.Truncate(mark)
		}
	}()
	return h.Handle(w, d, cmds)
}
