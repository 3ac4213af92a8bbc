package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/cortex/components"
	"github.com/pthm-cable/cortex/config"
	"github.com/pthm-cable/cortex/registry"
	"github.com/pthm-cable/cortex/systems"
)

// Registry keys used by the village action sets.
const (
	fetchSelf       = "self"
	fetchNearbyFood = "nearby_food"
	fetchNearbyBeds = "nearby_beds"

	considerHunger    = "hunger"
	considerFatigue   = "fatigue"
	considerDistance  = "distance"
	considerFoodStock = "food_stock"
	considerBedFree   = "bed_free"

	actionEat    = "eat"
	actionSleep  = "sleep"
	actionWander = "wander"
	actionIdle   = "idle"
)

var (
	errForeignView = errors.New("world view is not a village view")
	errNoPawn      = errors.New("pawn not in view")
	errBadTarget   = errors.New("invalid action target")
)

// wanderPeriod is how many ticks a wander heading is held.
const wanderPeriod = 50

type behaviors struct {
	reach float32
}

// registerBehaviors binds the village fetchers, considerations and handlers.
func registerBehaviors(reg *registry.Registry, sim config.SimConfig) error {
	b := &behaviors{reach: float32(sim.InteractRange)}
	return errors.Join(
		reg.RegisterFetcher(fetchSelf, registry.FetcherFunc(fetchSelfContext)),
		reg.RegisterFetcher(fetchNearbyFood, objectFetcher(components.KindFood)),
		reg.RegisterFetcher(fetchNearbyBeds, objectFetcher(components.KindBed)),

		reg.RegisterConsideration(considerHunger, needConsideration(func(n components.Needs) float32 { return n.Hunger })),
		reg.RegisterConsideration(considerFatigue, needConsideration(func(n components.Needs) float32 { return n.Fatigue })),
		reg.RegisterConsideration(considerDistance, registry.ConsiderationFunc(distance)),
		reg.RegisterConsideration(considerFoodStock, registry.ConsiderationFunc(foodStock)),
		reg.RegisterConsideration(considerBedFree, registry.ConsiderationFunc(bedFree)),

		reg.RegisterHandler(actionEat, registry.HandlerFunc(b.eat)),
		reg.RegisterHandler(actionSleep, registry.HandlerFunc(b.sleep)),
		reg.RegisterHandler(actionWander, registry.HandlerFunc(wander)),
		reg.RegisterHandler(actionIdle, registry.HandlerFunc(idle)),
	)
}

func asView(w registry.WorldView) (*view, error) {
	v, ok := w.(*view)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errForeignView, w)
	}
	return v, nil
}

// Fetchers

func fetchSelfContext(_ registry.WorldView, _, pawn registry.EntityID) []registry.ContextID {
	if pawn == registry.None {
		return nil
	}
	return []registry.ContextID{registry.ContextID(pawn)}
}

func objectFetcher(kind components.ObjectKind) registry.FetcherFunc {
	return func(w registry.WorldView, _, pawn registry.EntityID) []registry.ContextID {
		v, err := asView(w)
		if err != nil {
			return nil
		}
		ids := v.nearbyObjects(pawn, int(kind))
		out := make([]registry.ContextID, len(ids))
		for i, id := range ids {
			out[i] = registry.ContextID(id)
		}
		return out
	}
}

// Considerations

func needConsideration(need func(components.Needs) float32) registry.ConsiderationFunc {
	return func(w registry.WorldView, _, pawn registry.EntityID, _ registry.ContextID) (float64, bool) {
		v, err := asView(w)
		if err != nil {
			return 0, false
		}
		p, ok := v.pawn(pawn)
		if !ok {
			return 0, false
		}
		return float64(need(p.Needs)), true
	}
}

// distance is how far the pawn is from the context. A pawn is zero distance
// from itself.
func distance(w registry.WorldView, _, pawn registry.EntityID, ctx registry.ContextID) (float64, bool) {
	v, err := asView(w)
	if err != nil {
		return 0, false
	}
	p, ok := v.pawn(pawn)
	if !ok {
		return 0, false
	}
	if registry.EntityID(ctx) == pawn {
		return 0, true
	}
	o, ok := v.object(registry.EntityID(ctx))
	if !ok {
		return 0, false
	}
	return float64(systems.Distance(p.Pos, o.Pos)), true
}

func foodStock(w registry.WorldView, _, _ registry.EntityID, ctx registry.ContextID) (float64, bool) {
	v, err := asView(w)
	if err != nil {
		return 0, false
	}
	o, ok := v.object(registry.EntityID(ctx))
	if !ok || o.Kind != components.KindFood {
		return 0, false
	}
	return float64(o.Stock), true
}

// bedFree is 1 when the bed is empty or already held by the pawn, else 0.
func bedFree(w registry.WorldView, _, pawn registry.EntityID, ctx registry.ContextID) (float64, bool) {
	v, err := asView(w)
	if err != nil {
		return 0, false
	}
	o, ok := v.object(registry.EntityID(ctx))
	if !ok || o.Kind != components.KindBed {
		return 0, false
	}
	if o.Occupant == registry.None || o.Occupant == pawn {
		return 1, true
	}
	return 0, true
}

// Handlers

func (b *behaviors) eat(w registry.WorldView, d registry.Dispatch, cmds *registry.Commands) error {
	return b.useObject(w, d, cmds, components.KindFood, func(target registry.EntityID) registry.Command {
		return Consume{Pawn: d.Pawn, Stall: target}
	})
}

func (b *behaviors) sleep(w registry.WorldView, d registry.Dispatch, cmds *registry.Commands) error {
	return b.useObject(w, d, cmds, components.KindBed, func(target registry.EntityID) registry.Command {
		return Rest{Pawn: d.Pawn, Bed: target}
	})
}

// useObject walks to the context object, or uses it once within reach.
func (b *behaviors) useObject(w registry.WorldView, d registry.Dispatch, cmds *registry.Commands, kind components.ObjectKind, use func(registry.EntityID) registry.Command) error {
	v, err := asView(w)
	if err != nil {
		return err
	}
	p, ok := v.pawn(d.Pawn)
	if !ok {
		return fmt.Errorf("%w: %d", errNoPawn, d.Pawn)
	}
	target := registry.EntityID(d.Context)
	o, ok := v.object(target)
	if !ok || o.Kind != kind {
		return fmt.Errorf("%w: %s needs a %s, got context %d", errBadTarget, d.Key, kind, d.Context)
	}
	if systems.Distance(p.Pos, o.Pos) > b.reach {
		cmds.Push(MoveToward{Pawn: d.Pawn, X: o.Pos.X, Y: o.Pos.Y, Action: d.Key, Target: target})
		return nil
	}
	cmds.Push(use(target))
	return nil
}

func wander(_ registry.WorldView, d registry.Dispatch, cmds *registry.Commands) error {
	if d.Pawn == registry.None {
		return fmt.Errorf("%w: controller %d has no pawn", errNoPawn, d.Controller)
	}
	cmds.Push(Wander{Pawn: d.Pawn, Heading: wanderHeading(d.Controller, d.Tick)})
	return nil
}

func idle(_ registry.WorldView, d registry.Dispatch, cmds *registry.Commands) error {
	if d.Pawn != registry.None {
		cmds.Push(Stop{Pawn: d.Pawn})
	}
	return nil
}

// wanderHeading derives a heading from the controller and the current
// wander period so replays are deterministic.
func wanderHeading(controller registry.EntityID, tick uint64) float32 {
	x := uint64(controller)*0x9E3779B97F4A7C15 ^ (tick / wanderPeriod)
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return float32(float64(x>>11) / (1 << 53) * 2 * math.Pi)
}
