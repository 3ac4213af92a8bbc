// Package telemetry provides decision statistics, performance timing and
// CSV output.
package telemetry

import "github.com/pthm-cable/cortex/decision"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventPicked EventType = iota
	EventSwitched
	EventHeld
	EventIdle
	EventSkipped
	EventAborted
	EventDispatchFailed
	EventContainedError
	numEventTypes
)

func (t EventType) String() string {
	switch t {
	case EventPicked:
		return "picked"
	case EventSwitched:
		return "switched"
	case EventHeld:
		return "held"
	case EventIdle:
		return "idle"
	case EventSkipped:
		return "skipped"
	case EventAborted:
		return "aborted"
	case EventDispatchFailed:
		return "dispatch_failed"
	case EventContainedError:
		return "contained_error"
	}
	return "unknown"
}

// Event represents a single telemetry event.
type Event struct {
	Type       EventType
	Tick       uint64
	Controller uint64

	// Optional fields depending on event type
	Action string
	Score  float64
}

// EventsFromDecision expands a decision into the events it represents.
func EventsFromDecision(d *decision.Decision) []Event {
	base := Event{Tick: d.Tick, Controller: uint64(d.Controller)}
	with := func(t EventType) Event {
		e := base
		e.Type = t
		return e
	}

	var events []Event
	switch d.Outcome {
	case decision.OutcomePicked:
		e := with(EventPicked)
		e.Action = d.Action.Name()
		e.Score = d.Action.Score
		events = append(events, e)
		if !d.Retained {
			events = append(events, with(EventSwitched))
		}
		if d.Held {
			events = append(events, with(EventHeld))
		}
		if d.DispatchErr != nil {
			events = append(events, with(EventDispatchFailed))
		}
	case decision.OutcomeIdle:
		events = append(events, with(EventIdle))
	case decision.OutcomeSkipped:
		events = append(events, with(EventSkipped))
	case decision.OutcomeAborted:
		events = append(events, with(EventAborted))
	}
	for range d.Errors {
		events = append(events, with(EventContainedError))
	}
	return events
}
