// Package components defines ECS components for the village host.
package components

import (
	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/registry"
)

// ObjectKind distinguishes smart objects.
type ObjectKind uint8

const (
	KindFood ObjectKind = iota
	KindBed
)

func (k ObjectKind) String() string {
	switch k {
	case KindFood:
		return "food"
	case KindBed:
		return "bed"
	}
	return "unknown"
}

// Controller is the decision-making half of a villager.
type Controller struct {
	ID   registry.EntityID
	Pawn registry.EntityID // registry.None when the controller has no body
	LOD  actions.LOD
}

// Pawn is the body a controller drives. Sets names the action sets the pawn
// offers its controller.
type Pawn struct {
	ID         registry.EntityID
	Controller registry.EntityID
	Sets       []string
}

// Needs are a pawn's drives in [0, 100]. Higher is more urgent.
type Needs struct {
	Hunger  float32
	Fatigue float32
}

// Activity is what a pawn is physically doing, as set by the last command
// applied to it.
type Activity struct {
	Action string
	Target registry.EntityID
	Since  uint64 // tick the activity started
}

// SmartObject advertises action sets to controllers whose pawn is nearby.
type SmartObject struct {
	ID   registry.EntityID
	Kind ObjectKind
	Sets []string
}

// Food is a stall's consumable stock.
type Food struct {
	Stock    float32
	Capacity float32
}

// Bed can hold one sleeper.
type Bed struct {
	Occupant registry.EntityID
}
