package systems

import (
	"github.com/pthm-cable/cortex/components"
)

// MaxNeed is the ceiling of every need.
const MaxNeed = 100

// UpdateNeeds grows hunger and fatigue over dt seconds. A sleeping pawn
// recovers fatigue instead of accruing it.
func UpdateNeeds(n *components.Needs, hungerRate, fatigueRate float32, sleeping bool, dt float32) {
	n.Hunger = clampNeed(n.Hunger + hungerRate*dt)
	if !sleeping {
		n.Fatigue = clampNeed(n.Fatigue + fatigueRate*dt)
	}
}

// Eat takes up to rate*dt from the stall and removes it from hunger.
// Returns the amount eaten.
func Eat(n *components.Needs, food *components.Food, rate, dt float32) float32 {
	want := rate * dt
	if want > n.Hunger {
		want = n.Hunger
	}
	if want > food.Stock {
		want = food.Stock
	}
	if want <= 0 {
		return 0
	}
	food.Stock -= want
	n.Hunger = clampNeed(n.Hunger - want)
	return want
}

// Rest removes rate*dt fatigue. Returns true once fully rested.
func Rest(n *components.Needs, rate, dt float32) bool {
	n.Fatigue = clampNeed(n.Fatigue - rate*dt)
	return n.Fatigue == 0
}

// Regrow restocks a stall towards its capacity.
func Regrow(food *components.Food, rate, dt float32) {
	food.Stock += rate * dt
	if food.Stock > food.Capacity {
		food.Stock = food.Capacity
	}
}

func clampNeed(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > MaxNeed {
		return MaxNeed
	}
	return v
}
