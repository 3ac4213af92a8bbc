package game

import (
	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/components"
	"github.com/pthm-cable/cortex/registry"
	"github.com/pthm-cable/cortex/systems"
)

// updateMovement integrates pawn velocities inside the village bounds.
func (g *Game) updateMovement() {
	sim := g.cfg.Sim
	width, height, dt := float32(sim.Width), float32(sim.Height), float32(sim.DT)

	q := g.pawnFilter.Query()
	for q.Next() {
		_, pos, vel, _, _ := q.Get()
		systems.Integrate(pos, vel, width, height, dt)
	}
}

// updateNeeds grows hunger and fatigue, and lets sleepers recover.
func (g *Game) updateNeeds() {
	sim := g.cfg.Sim
	dt := float32(sim.DT)
	hungerRate, fatigueRate := float32(sim.HungerRate), float32(sim.FatigueRate)
	restRate := float32(sim.RestRate)

	q := g.pawnFilter.Query()
	for q.Next() {
		p, _, _, needs, act := q.Get()
		sleeping := g.sleepingIn(p.ID, act)
		systems.UpdateNeeds(needs, hungerRate, fatigueRate, sleeping, dt)
		if sleeping {
			systems.Rest(needs, restRate, dt)
		}
	}
}

// updateFood restocks stalls.
func (g *Game) updateFood() {
	rate, dt := float32(g.cfg.Sim.FoodRegrowth), float32(g.cfg.Sim.DT)
	q := g.foodFilter.Query()
	for q.Next() {
		_, _, food := q.Get()
		systems.Regrow(food, rate, dt)
	}
}

// releaseBeds frees beds whose occupant left or stopped sleeping in them.
func (g *Game) releaseBeds() {
	q := g.bedFilter.Query()
	for q.Next() {
		so, _, bed := q.Get()
		if bed.Occupant == registry.None {
			continue
		}
		_, _, _, act, ok := g.pawnParts(bed.Occupant)
		if !ok || act.Action != actionSleep || act.Target != so.ID {
			bed.Occupant = registry.None
		}
	}
}

// updateLOD sets each controller's level of detail: sleepers are minimal,
// villagers near the square are elevated.
func (g *Game) updateLOD() {
	sim := g.cfg.Sim
	centre := components.Position{X: float32(sim.Width / 2), Y: float32(sim.Height / 2)}
	elevated := float32(sim.ElevatedRange)

	q := g.controllerFilter.Query()
	for q.Next() {
		c := q.Get()
		pos, _, _, act, ok := g.pawnParts(c.Pawn)
		switch {
		case !ok:
			c.LOD = actions.LODNormal
		case g.sleepingIn(c.Pawn, act):
			c.LOD = actions.LODMinimal
		case systems.Distance(*pos, centre) <= elevated:
			c.LOD = actions.LODElevated
		default:
			c.LOD = actions.LODNormal
		}
	}
}

// sleepingIn reports whether pawn is asleep in the bed its activity names.
func (g *Game) sleepingIn(pawn registry.EntityID, act *components.Activity) bool {
	if act.Action != actionSleep {
		return false
	}
	_, bed, ok := g.bedParts(act.Target)
	return ok && bed.Occupant == pawn
}
