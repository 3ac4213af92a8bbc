// Package decision runs the per-tick utility decision loop: gather the
// candidate templates for each controller, score them, select the best
// action and dispatch it.
package decision

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/registry"
)

var (
	// ErrControllerGone aborts a pass whose controller no longer exists.
	ErrControllerGone = errors.New("controller no longer exists")
	// ErrPawnGone aborts a pass whose pawn no longer exists.
	ErrPawnGone = errors.New("pawn no longer exists")
)

// World is the host's read-only view for one tick. Every method may be
// called from several goroutines at once.
type World interface {
	registry.WorldView
	// Pawn returns the pawn driven by controller, or registry.None.
	Pawn(controller registry.EntityID) registry.EntityID
	// LOD returns the controller's current level of detail.
	LOD(controller registry.EntityID) actions.LOD
	// ActionSets returns the sets the pawn itself offers.
	ActionSets(controller, pawn registry.EntityID) []*actions.ActionSet
}

// Supply contributes action sets from outside the pawn, typically smart
// objects near it. Implementations must be safe for concurrent reads.
type Supply interface {
	Contribute(v registry.WorldView, controller, pawn registry.EntityID) []*actions.ActionSet
}

// SupplyFunc adapts a function to Supply.
type SupplyFunc func(v registry.WorldView, controller, pawn registry.EntityID) []*actions.ActionSet

// Contribute implements Supply.
func (f SupplyFunc) Contribute(v registry.WorldView, controller, pawn registry.EntityID) []*actions.ActionSet {
	return f(v, controller, pawn)
}

// Observer receives every decision once its tick has been dispatched.
// It is called from a single goroutine.
type Observer interface {
	ObserveDecision(d *Decision)
}

// PhaseTimer is notified when the engine moves between phases.
type PhaseTimer interface {
	StartPhase(phase string)
}

// Phase is a step of the decision loop.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseGathering
	PhaseScoring
	PhaseSelecting
	PhaseDispatching
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseGathering:
		return "gathering"
	case PhaseScoring:
		return "scoring"
	case PhaseSelecting:
		return "selecting"
	case PhaseDispatching:
		return "dispatching"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Action is a template bound to a context, with the score it won with.
type Action struct {
	Template *actions.ActionTemplate
	Context  registry.ContextID
	Score    float64
}

// Name returns the template name, or "" for the zero Action.
func (a Action) Name() string {
	if a.Template == nil {
		return ""
	}
	return a.Template.Name
}

// Key returns the handler key, or "" for the zero Action.
func (a Action) Key() string {
	if a.Template == nil {
		return ""
	}
	return a.Template.Key
}

// Outcome classifies a controller's decision.
type Outcome uint8

const (
	// OutcomeIdle means no candidate scored above zero.
	OutcomeIdle Outcome = iota
	// OutcomePicked means an action was selected.
	OutcomePicked
	// OutcomeSkipped means the controller is inactive at its level of detail.
	OutcomeSkipped
	// OutcomeAborted means the controller or pawn disappeared.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomePicked:
		return "picked"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAborted:
		return "aborted"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// Decision is the result of one controller pass.
type Decision struct {
	Controller registry.EntityID
	Pawn       registry.EntityID
	Tick       uint64
	Outcome    Outcome
	Action     Action

	// Retained is set when the action equals the previous tick's action.
	Retained bool
	// Held is set when hysteresis kept the previous action over a
	// higher-scoring candidate.
	Held bool

	Templates  int // Templates scored
	Candidates int // Contexts fetched across all templates
	Invalid    int // Candidates discarded for invalid consideration output
	Pruned     int // Templates and candidates skipped because they could not win

	// Errors holds contained per-template failures such as missing keys.
	Errors []error
	// Err is the reason an aborted pass stopped.
	Err error
	// DispatchErr is set when the handler was missing or failed.
	DispatchErr error
}

// Idle reports whether the controller ended the tick without an action.
func (d *Decision) Idle() bool { return d.Outcome != OutcomePicked }

// LogValue implements slog.LogValuer.
func (d Decision) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Uint64("controller", uint64(d.Controller)),
		slog.Uint64("tick", d.Tick),
		slog.String("outcome", d.Outcome.String()),
	}
	if d.Outcome == OutcomePicked {
		attrs = append(attrs,
			slog.String("action", d.Action.Name()),
			slog.String("key", d.Action.Key()),
			slog.Uint64("context", uint64(d.Action.Context)),
			slog.Float64("score", d.Action.Score),
			slog.Bool("retained", d.Retained),
		)
	}
	if d.Err != nil {
		attrs = append(attrs, slog.String("error", d.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}
