package game

import (
	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/components"
	"github.com/pthm-cable/cortex/registry"
)

// spawnInitialPopulation creates the starting stalls, beds and villagers.
func (g *Game) spawnInitialPopulation() {
	sim := g.cfg.Sim
	for i := 0; i < sim.FoodStalls; i++ {
		g.spawnFoodStall(g.randomPosition(), float32(sim.FoodStock))
	}
	for i := 0; i < sim.Beds; i++ {
		g.spawnBed(g.randomPosition())
	}
	for i := 0; i < sim.Villagers; i++ {
		needs := components.Needs{
			Hunger:  g.rng.Float32() * 60,
			Fatigue: g.rng.Float32() * 60,
		}
		g.spawnVillager(g.randomPosition(), needs)
	}
}

func (g *Game) randomPosition() components.Position {
	return components.Position{
		X: g.rng.Float32() * float32(g.cfg.Sim.Width),
		Y: g.rng.Float32() * float32(g.cfg.Sim.Height),
	}
}

func (g *Game) newID() registry.EntityID {
	g.nextID++
	return g.nextID
}

// spawnVillager creates a controller and the pawn it drives. Returns the
// controller id.
func (g *Game) spawnVillager(pos components.Position, needs components.Needs) registry.EntityID {
	cid := g.newID()
	pid := g.newID()

	ctrl := components.Controller{ID: cid, Pawn: pid, LOD: actions.LODNormal}
	ce := g.controllerMapper.NewEntity(&ctrl)

	pawn := components.Pawn{ID: pid, Controller: cid, Sets: []string{setVillager}}
	vel := components.Velocity{}
	act := components.Activity{}
	pe := g.pawnMapper.NewEntity(&pawn, &pos, &vel, &needs, &act)

	g.handles[cid] = handle{e: ce, kind: kindController}
	g.handles[pid] = handle{e: pe, kind: kindPawn}
	return cid
}

// spawnFoodStall creates a stall holding stock food.
func (g *Game) spawnFoodStall(pos components.Position, stock float32) registry.EntityID {
	id := g.newID()
	so := components.SmartObject{ID: id, Kind: components.KindFood, Sets: []string{setFoodStall}}
	food := components.Food{Stock: stock, Capacity: stock}
	e := g.foodMapper.NewEntity(&so, &pos, &food)
	g.handles[id] = handle{e: e, kind: kindFood}
	return id
}

// spawnBed creates an empty bed.
func (g *Game) spawnBed(pos components.Position) registry.EntityID {
	id := g.newID()
	so := components.SmartObject{ID: id, Kind: components.KindBed, Sets: []string{setBed}}
	bed := components.Bed{}
	e := g.bedMapper.NewEntity(&so, &pos, &bed)
	g.handles[id] = handle{e: e, kind: kindBed}
	return id
}

// RemoveVillager despawns a controller and its pawn. The engine forgets the
// controller; beds it held are released on the next tick.
func (g *Game) RemoveVillager(controller registry.EntityID) bool {
	h, ok := g.handles[controller]
	if !ok || h.kind != kindController {
		return false
	}
	pawn := g.controllerMapper.Get(h.e).Pawn

	g.world.RemoveEntity(h.e)
	delete(g.handles, controller)
	if ph, ok := g.handles[pawn]; ok && ph.kind == kindPawn {
		g.world.RemoveEntity(ph.e)
		delete(g.handles, pawn)
	}
	g.engine.Forget(controller)
	return true
}

// lookup returns the live ark entity for id if it has the given kind.
func (g *Game) lookup(id registry.EntityID, kind entityKind) (handle, bool) {
	h, ok := g.handles[id]
	if !ok || h.kind != kind || !g.world.Alive(h.e) {
		return handle{}, false
	}
	return h, true
}

func (g *Game) pawnParts(id registry.EntityID) (*components.Position, *components.Velocity, *components.Needs, *components.Activity, bool) {
	h, ok := g.lookup(id, kindPawn)
	if !ok {
		return nil, nil, nil, nil, false
	}
	_, pos, vel, needs, act := g.pawnMapper.Get(h.e)
	return pos, vel, needs, act, true
}

func (g *Game) stallParts(id registry.EntityID) (*components.Position, *components.Food, bool) {
	h, ok := g.lookup(id, kindFood)
	if !ok {
		return nil, nil, false
	}
	_, pos, food := g.foodMapper.Get(h.e)
	return pos, food, true
}

func (g *Game) bedParts(id registry.EntityID) (*components.Position, *components.Bed, bool) {
	h, ok := g.lookup(id, kindBed)
	if !ok {
		return nil, nil, false
	}
	_, pos, bed := g.bedMapper.Get(h.e)
	return pos, bed, true
}
