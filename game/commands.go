package game

import (
	"fmt"

	"github.com/pthm-cable/cortex/components"
	"github.com/pthm-cable/cortex/registry"
	"github.com/pthm-cable/cortex/systems"
)

// MoveToward walks a pawn toward a smart object it intends to use.
type MoveToward struct {
	Pawn   registry.EntityID
	X, Y   float32
	Action string
	Target registry.EntityID
}

// Consume eats from a food stall within reach.
type Consume struct {
	Pawn  registry.EntityID
	Stall registry.EntityID
}

// Rest claims a bed within reach and sleeps in it.
type Rest struct {
	Pawn registry.EntityID
	Bed  registry.EntityID
}

// Wander walks a pawn along a heading.
type Wander struct {
	Pawn    registry.EntityID
	Heading float32
}

// Stop halts a pawn in place.
type Stop struct {
	Pawn registry.EntityID
}

// applyCommands mutates the world with the commands handlers emitted this
// tick, in emission order. Commands whose targets vanished are dropped.
func (g *Game) applyCommands(cmds []registry.Command) {
	sim := g.cfg.Sim
	dt := float32(sim.DT)
	speed := float32(sim.WalkSpeed)
	reach := float32(sim.InteractRange)

	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case MoveToward:
			pos, vel, _, act, ok := g.pawnParts(c.Pawn)
			if !ok {
				continue
			}
			systems.SteerToward(*pos, vel, c.X, c.Y, speed, dt)
			g.setActivity(act, c.Action, c.Target)

		case Consume:
			pos, vel, needs, act, ok := g.pawnParts(c.Pawn)
			if !ok {
				continue
			}
			stallPos, food, ok := g.stallParts(c.Stall)
			if !ok {
				continue
			}
			vel.X, vel.Y = 0, 0
			if systems.Distance(*pos, *stallPos) > reach {
				systems.SteerToward(*pos, vel, stallPos.X, stallPos.Y, speed, dt)
				g.setActivity(act, actionEat, c.Stall)
				continue
			}
			g.eaten += float64(systems.Eat(needs, food, float32(sim.EatRate), dt))
			g.setActivity(act, actionEat, c.Stall)

		case Rest:
			pos, vel, _, act, ok := g.pawnParts(c.Pawn)
			if !ok {
				continue
			}
			bedPos, bed, ok := g.bedParts(c.Bed)
			if !ok {
				continue
			}
			if bed.Occupant != registry.None && bed.Occupant != c.Pawn {
				g.logger.Debug("bed taken", "pawn", c.Pawn, "bed", c.Bed, "occupant", bed.Occupant)
				vel.X, vel.Y = 0, 0
				continue
			}
			if systems.Distance(*pos, *bedPos) > reach {
				systems.SteerToward(*pos, vel, bedPos.X, bedPos.Y, speed, dt)
				g.setActivity(act, actionSleep, c.Bed)
				continue
			}
			vel.X, vel.Y = 0, 0
			bed.Occupant = c.Pawn
			g.setActivity(act, actionSleep, c.Bed)

		case Wander:
			_, vel, _, act, ok := g.pawnParts(c.Pawn)
			if !ok {
				continue
			}
			systems.SetHeading(vel, c.Heading, speed*0.5)
			g.setActivity(act, actionWander, registry.None)

		case Stop:
			_, vel, _, act, ok := g.pawnParts(c.Pawn)
			if !ok {
				continue
			}
			vel.X, vel.Y = 0, 0
			g.setActivity(act, actionIdle, registry.None)

		default:
			g.logger.Warn("unknown command", "type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (g *Game) setActivity(act *components.Activity, action string, target registry.EntityID) {
	if act.Action == action && act.Target == target {
		return
	}
	*act = components.Activity{Action: action, Target: target, Since: g.tick}
}
