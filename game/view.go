package game

import (
	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/components"
	"github.com/pthm-cable/cortex/registry"
	"github.com/pthm-cable/cortex/systems"
)

// controllerState captures a controller for one tick.
type controllerState struct {
	Pawn registry.EntityID
	LOD  actions.LOD
}

// pawnState captures a pawn for one tick.
type pawnState struct {
	Controller registry.EntityID
	Pos        components.Position
	Needs      components.Needs
	Sets       []*actions.ActionSet
}

// objectState captures a smart object for one tick.
type objectState struct {
	Kind     components.ObjectKind
	Pos      components.Position
	Stock    float32
	Capacity float32
	Occupant registry.EntityID
	Sets     []*actions.ActionSet
}

// view is the read-only copy of the village the engine scores against.
// It is rebuilt between ticks and never written while a tick runs.
type view struct {
	controllers map[registry.EntityID]controllerState
	pawns       map[registry.EntityID]pawnState
	objects     map[registry.EntityID]objectState
	grid        *systems.SpatialGrid
	objectRange float32
}

func newView(width, height, objectRange float32) *view {
	cell := objectRange / 2
	if cell <= 0 {
		cell = 16
	}
	return &view{
		controllers: make(map[registry.EntityID]controllerState),
		pawns:       make(map[registry.EntityID]pawnState),
		objects:     make(map[registry.EntityID]objectState),
		grid:        systems.NewSpatialGrid(width, height, cell),
		objectRange: objectRange,
	}
}

func (v *view) reset() {
	clear(v.controllers)
	clear(v.pawns)
	clear(v.objects)
	v.grid.Clear()
}

func (v *view) addObject(id registry.EntityID, o objectState) {
	v.objects[id] = o
	v.grid.Insert(id, o.Pos.X, o.Pos.Y)
}

// Alive implements registry.WorldView.
func (v *view) Alive(id registry.EntityID) bool {
	if _, ok := v.controllers[id]; ok {
		return true
	}
	if _, ok := v.pawns[id]; ok {
		return true
	}
	_, ok := v.objects[id]
	return ok
}

// Pawn implements decision.World.
func (v *view) Pawn(controller registry.EntityID) registry.EntityID {
	return v.controllers[controller].Pawn
}

// LOD implements decision.World.
func (v *view) LOD(controller registry.EntityID) actions.LOD {
	c, ok := v.controllers[controller]
	if !ok {
		return actions.LODInactive
	}
	return c.LOD
}

// ActionSets implements decision.World.
func (v *view) ActionSets(_, pawn registry.EntityID) []*actions.ActionSet {
	return v.pawns[pawn].Sets
}

func (v *view) pawn(id registry.EntityID) (pawnState, bool) {
	p, ok := v.pawns[id]
	return p, ok
}

func (v *view) object(id registry.EntityID) (objectState, bool) {
	o, ok := v.objects[id]
	return o, ok
}

// nearbyObjects returns smart objects of kind within range of pawn, closest
// first. A negative kind matches every object.
func (v *view) nearbyObjects(pawn registry.EntityID, kind int) []registry.EntityID {
	p, ok := v.pawns[pawn]
	if !ok {
		return nil
	}
	neighbors := v.grid.QueryRadiusInto(nil, p.Pos.X, p.Pos.Y, v.objectRange)
	ids := make([]registry.EntityID, 0, len(neighbors))
	for _, n := range neighbors {
		if kind >= 0 && v.objects[n.ID].Kind != components.ObjectKind(kind) {
			continue
		}
		ids = append(ids, n.ID)
	}
	return ids
}

// smartObjects contributes the action sets of every smart object within
// range of the pawn.
type smartObjects struct{}

// Contribute implements decision.Supply.
func (smartObjects) Contribute(w registry.WorldView, _, pawn registry.EntityID) []*actions.ActionSet {
	v, ok := w.(*view)
	if !ok {
		return nil
	}
	var sets []*actions.ActionSet
	for _, id := range v.nearbyObjects(pawn, anyKind) {
		sets = append(sets, v.objects[id].Sets...)
	}
	return sets
}

const anyKind = -1
