package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/cortex/components"
	"github.com/pthm-cable/cortex/registry"
)

func TestSpatialGrid_QueryRadius(t *testing.T) {
	g := NewSpatialGrid(100, 100, 10)
	g.Insert(1, 50, 50)
	g.Insert(2, 55, 50)
	g.Insert(3, 80, 80)
	g.Insert(4, 45, 50)
	require.Equal(t, 4, g.Len())

	got := g.QueryRadiusInto(nil, 50, 50, 6)
	ids := make([]registry.EntityID, len(got))
	for i, n := range got {
		ids[i] = n.ID
	}
	// 2 and 4 are equidistant; lower id first
	assert.Equal(t, []registry.EntityID{1, 2, 4}, ids)
	assert.InDelta(t, 25, got[1].DistSq, 1e-4)
	assert.InDelta(t, 5, got[1].DX, 1e-4)
}

func TestSpatialGrid_AppendsToDst(t *testing.T) {
	g := NewSpatialGrid(100, 100, 10)
	g.Insert(7, 10, 10)

	dst := []Neighbor{{ID: 99}}
	dst = g.QueryRadiusInto(dst, 10, 10, 1)
	require.Len(t, dst, 2)
	assert.Equal(t, registry.EntityID(99), dst[0].ID)
	assert.Equal(t, registry.EntityID(7), dst[1].ID)
}

func TestSpatialGrid_OutOfBoundsClampsToEdge(t *testing.T) {
	g := NewSpatialGrid(50, 50, 10)
	g.Insert(1, -5, -5)
	g.Insert(2, 60, 60)

	near := g.QueryRadiusInto(nil, 0, 0, 8)
	require.Len(t, near, 1)
	assert.Equal(t, registry.EntityID(1), near[0].ID)

	far := g.QueryRadiusInto(nil, 50, 50, 15)
	require.Len(t, far, 1)
	assert.Equal(t, registry.EntityID(2), far[0].ID)
}

func TestSpatialGrid_Clear(t *testing.T) {
	g := NewSpatialGrid(100, 100, 10)
	g.Insert(1, 5, 5)
	g.Clear()
	assert.Zero(t, g.Len())
	assert.Empty(t, g.QueryRadiusInto(nil, 5, 5, 10))
}

func TestSpatialGrid_Cap(t *testing.T) {
	g := NewSpatialGrid(10, 10, 5)
	for i := 0; i < MaxQueryResults+20; i++ {
		g.Insert(registry.EntityID(i+1), 5, 5)
	}
	assert.Len(t, g.QueryRadiusInto(nil, 5, 5, 1), MaxQueryResults)
}

func TestUpdateNeeds(t *testing.T) {
	tests := []struct {
		name     string
		start    components.Needs
		sleeping bool
		want     components.Needs
	}{
		{"awake", components.Needs{Hunger: 10, Fatigue: 10}, false, components.Needs{Hunger: 12, Fatigue: 11}},
		{"sleeping keeps fatigue", components.Needs{Hunger: 10, Fatigue: 10}, true, components.Needs{Hunger: 12, Fatigue: 10}},
		{"clamped", components.Needs{Hunger: 99.5, Fatigue: 99.9}, false, components.Needs{Hunger: MaxNeed, Fatigue: MaxNeed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.start
			UpdateNeeds(&n, 2, 1, tt.sleeping, 1)
			assert.InDelta(t, tt.want.Hunger, n.Hunger, 1e-5)
			assert.InDelta(t, tt.want.Fatigue, n.Fatigue, 1e-5)
		})
	}
}

func TestEat(t *testing.T) {
	t.Run("limited by rate", func(t *testing.T) {
		n := components.Needs{Hunger: 50}
		f := components.Food{Stock: 100, Capacity: 100}
		got := Eat(&n, &f, 10, 0.5)
		assert.InDelta(t, 5, got, 1e-5)
		assert.InDelta(t, 45, n.Hunger, 1e-5)
		assert.InDelta(t, 95, f.Stock, 1e-5)
	})
	t.Run("limited by stock", func(t *testing.T) {
		n := components.Needs{Hunger: 50}
		f := components.Food{Stock: 2, Capacity: 100}
		assert.InDelta(t, 2, Eat(&n, &f, 10, 1), 1e-5)
		assert.Zero(t, f.Stock)
	})
	t.Run("not hungry", func(t *testing.T) {
		n := components.Needs{}
		f := components.Food{Stock: 10, Capacity: 10}
		assert.Zero(t, Eat(&n, &f, 10, 1))
		assert.InDelta(t, 10, f.Stock, 1e-5)
	})
}

func TestRestAndRegrow(t *testing.T) {
	n := components.Needs{Fatigue: 5}
	assert.False(t, Rest(&n, 2, 1))
	assert.True(t, Rest(&n, 10, 1))
	assert.Zero(t, n.Fatigue)

	f := components.Food{Stock: 9, Capacity: 10}
	Regrow(&f, 5, 1)
	assert.InDelta(t, 10, f.Stock, 1e-5)
}

func TestSteerToward(t *testing.T) {
	var vel components.Velocity
	dist := SteerToward(components.Position{}, &vel, 10, 0, 4, 1)
	assert.InDelta(t, 10, dist, 1e-5)
	assert.InDelta(t, 4, vel.X, 1e-5)
	assert.Zero(t, vel.Y)

	// no overshoot
	dist = SteerToward(components.Position{X: 9}, &vel, 10, 0, 4, 1)
	assert.InDelta(t, 1, dist, 1e-5)
	assert.InDelta(t, 1, vel.X, 1e-5)

	SteerToward(components.Position{X: 10}, &vel, 10, 0, 4, 1)
	assert.Equal(t, components.Velocity{}, vel)
}

func TestIntegrateBounds(t *testing.T) {
	pos := components.Position{X: 1, Y: 99}
	vel := components.Velocity{X: -5, Y: 5}
	Integrate(&pos, &vel, 100, 100, 1)
	assert.Equal(t, components.Position{X: 0, Y: 100}, pos)
	assert.Equal(t, components.Velocity{}, vel)

	pos = components.Position{X: 10, Y: 10}
	SetHeading(&vel, 0, 2)
	Integrate(&pos, &vel, 100, 100, 0.5)
	assert.InDelta(t, 11, pos.X, 1e-5)
	assert.InDelta(t, 10, pos.Y, 1e-5)
	assert.InDelta(t, 5, Distance(components.Position{}, components.Position{X: 3, Y: 4}), 1e-5)
}
