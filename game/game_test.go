package game

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/cortex/components"
	"github.com/pthm-cable/cortex/config"
	"github.com/pthm-cable/cortex/decision"
	"github.com/pthm-cable/cortex/registry"
	"github.com/pthm-cable/cortex/telemetry"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// emptyVillage returns the default config with nothing spawned.
func emptyVillage(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Sim.Villagers = 0
	cfg.Sim.FoodStalls = 0
	cfg.Sim.Beds = 0
	return cfg
}

func newTestGame(t *testing.T, cfg *config.Config) *Game {
	t.Helper()
	g, err := NewGame(context.Background(), cfg, Options{Seed: 1, Logger: discard})
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func decisionFor(t *testing.T, g *Game, controller registry.EntityID) decision.Decision {
	t.Helper()
	for _, d := range g.LastResult().Decisions {
		if d.Controller == controller {
			return d
		}
	}
	t.Fatalf("no decision for controller %d", controller)
	return decision.Decision{}
}

func TestEmbeddedActionSetsAreBound(t *testing.T) {
	cfg := emptyVillage(t)
	store, err := LoadActionSets(context.Background(), NewLoader(cfg.Curves, discard), "")
	require.NoError(t, err)
	assert.Equal(t, []string{setBed, setFoodStall, setVillager}, store.SortedNames())

	reg := registry.New()
	require.NoError(t, registerBehaviors(reg, cfg.Sim))
	snap := reg.Snapshot()

	for _, name := range store.Names() {
		set, _ := store.Get(name)
		for _, tmpl := range set.Templates() {
			assert.True(t, snap.Has(registry.KindFetcher, tmpl.Fetcher), "%s fetcher %q", tmpl.Name, tmpl.Fetcher)
			assert.True(t, snap.Has(registry.KindHandler, tmpl.Key), "%s handler %q", tmpl.Name, tmpl.Key)
			for _, c := range tmpl.Considerations {
				assert.True(t, snap.Has(registry.KindConsideration, c.Key), "%s consideration %q", tmpl.Name, c.Key)
			}
		}
	}
}

func TestVillageRuns(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Sim.Villagers = 20

	g := newTestGame(t, cfg)
	require.NoError(t, g.Run(context.Background(), 50))
	assert.Equal(t, uint64(50), g.Tick())

	res := g.LastResult()
	assert.Len(t, res.Decisions, 20)
	for _, d := range res.Decisions {
		assert.NoError(t, d.Err)
		assert.NoError(t, d.DispatchErr)
		assert.Empty(t, d.Errors)
	}
	assert.Positive(t, g.Trackers().Len())
	assert.Equal(t, 20, g.Stats().Villagers)
}

func TestHungryVillagerEats(t *testing.T) {
	g := newTestGame(t, emptyVillage(t))
	at := components.Position{X: 100, Y: 100}
	stall := g.spawnFoodStall(at, 100)
	villager := g.spawnVillager(at, components.Needs{Hunger: 90})

	require.NoError(t, g.Step(context.Background()))

	d := decisionFor(t, g, villager)
	require.Equal(t, decision.OutcomePicked, d.Outcome)
	assert.Equal(t, actionEat, d.Action.Key())
	assert.Equal(t, registry.ContextID(stall), d.Action.Context)

	_, _, needs, act, ok := g.pawnParts(d.Pawn)
	require.True(t, ok)
	assert.Less(t, needs.Hunger, float32(90))
	assert.Equal(t, components.Activity{Action: actionEat, Target: stall, Since: 1}, *act)

	_, food, ok := g.stallParts(stall)
	require.True(t, ok)
	assert.Less(t, food.Stock, float32(100))
	assert.Positive(t, g.Stats().Eaten)
}

func TestVillagerWalksToDistantStall(t *testing.T) {
	g := newTestGame(t, emptyVillage(t))
	stall := g.spawnFoodStall(components.Position{X: 130, Y: 100}, 100)
	villager := g.spawnVillager(components.Position{X: 100, Y: 100}, components.Needs{Hunger: 90})

	require.NoError(t, g.Step(context.Background()))

	d := decisionFor(t, g, villager)
	assert.Equal(t, actionEat, d.Action.Key())
	require.Len(t, g.LastResult().Commands, 1)
	assert.Equal(t, MoveToward{Pawn: d.Pawn, X: 130, Y: 100, Action: actionEat, Target: stall}, g.LastResult().Commands[0])

	pos, _, _, _, ok := g.pawnParts(d.Pawn)
	require.True(t, ok)
	assert.Greater(t, pos.X, float32(100))
	assert.InDelta(t, 100, pos.Y, 1e-4)
}

func TestTiredVillagerSleeps(t *testing.T) {
	g := newTestGame(t, emptyVillage(t))
	at := components.Position{X: 20, Y: 20}
	bed := g.spawnBed(at)
	villager := g.spawnVillager(at, components.Needs{Fatigue: 90})

	require.NoError(t, g.Step(context.Background()))

	d := decisionFor(t, g, villager)
	assert.Equal(t, actionSleep, d.Action.Key())

	_, occupied, ok := g.bedParts(bed)
	require.True(t, ok)
	assert.Equal(t, d.Pawn, occupied.Occupant)

	_, _, needs, _, _ := g.pawnParts(d.Pawn)
	assert.Less(t, needs.Fatigue, float32(90))

	h, _ := g.lookup(villager, kindController)
	assert.Equal(t, "minimal", g.controllerMapper.Get(h.e).LOD.String())
}

func TestBedContention(t *testing.T) {
	g := newTestGame(t, emptyVillage(t))
	at := components.Position{X: 20, Y: 20}
	bed := g.spawnBed(at)
	first := g.spawnVillager(at, components.Needs{Fatigue: 90})
	second := g.spawnVillager(at, components.Needs{Fatigue: 90})
	ctx := context.Background()

	require.NoError(t, g.Step(ctx))
	assert.Equal(t, actionSleep, decisionFor(t, g, first).Action.Key())
	assert.Equal(t, actionSleep, decisionFor(t, g, second).Action.Key())

	_, b, _ := g.bedParts(bed)
	assert.Equal(t, decisionFor(t, g, first).Pawn, b.Occupant)

	require.NoError(t, g.Step(ctx))
	assert.Equal(t, actionSleep, decisionFor(t, g, first).Action.Key())
	assert.True(t, decisionFor(t, g, first).Retained)
	assert.Equal(t, actionIdle, decisionFor(t, g, second).Action.Key())
	assert.Equal(t, 1, g.Stats().BedsInUse)
}

func TestRemoveVillager(t *testing.T) {
	g := newTestGame(t, emptyVillage(t))
	a := g.spawnVillager(components.Position{X: 10, Y: 10}, components.Needs{})
	b := g.spawnVillager(components.Position{X: 50, Y: 50}, components.Needs{})
	ctx := context.Background()

	require.NoError(t, g.Step(ctx))
	assert.Equal(t, 2, g.Trackers().Len())

	require.True(t, g.RemoveVillager(a))
	assert.False(t, g.RemoveVillager(a))
	_, tracked := g.Trackers().Get(a)
	assert.False(t, tracked)

	require.NoError(t, g.Step(ctx))
	require.Len(t, g.LastResult().Decisions, 1)
	assert.Equal(t, b, g.LastResult().Decisions[0].Controller)
	assert.Equal(t, 1, g.Stats().Villagers)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := emptyVillage(t)
	cfg.Sim.Villagers = 5
	g := newTestGame(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, g.Run(ctx, 0))
	assert.Zero(t, g.Tick())
}

func TestDeterministicReplay(t *testing.T) {
	run := func() VillageStats {
		cfg, err := config.Load("")
		require.NoError(t, err)
		cfg.Sim.Villagers = 80
		cfg.Engine.ParallelThreshold = 16
		cfg.Engine.Workers = 4
		g := newTestGame(t, cfg)
		require.NoError(t, g.Run(context.Background(), 40))
		return g.Stats()
	}

	first := run()
	second := run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("replay diverged (-first +second):\n%s", diff)
	}
}

func TestTelemetryOutput(t *testing.T) {
	cfg := emptyVillage(t)
	cfg.Sim.Villagers = 10
	cfg.Sim.FoodStalls = 2
	cfg.Telemetry.StatsWindow = 1

	dir := t.TempDir()
	var windows int
	g, err := NewGame(context.Background(), cfg, Options{
		Seed:          7,
		OutputDir:     dir,
		Logger:        discard,
		StatsCallback: func(telemetry.WindowStats) { windows++ },
	})
	require.NoError(t, err)
	require.NoError(t, g.Run(context.Background(), 25))
	require.NoError(t, g.Close())

	assert.Equal(t, 2, windows)
	for _, name := range []string{"config.yaml", "decisions.csv", "perf.csv"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func copyEmbeddedSets(t *testing.T, dir string) {
	t.Helper()
	entries, err := fs.ReadDir(embeddedSets, "actionsets")
	require.NoError(t, err)
	for _, e := range entries {
		data, err := fs.ReadFile(embeddedSets, "actionsets/"+e.Name())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), data, 0o644))
	}
}

const wellSet = `
action_sets:
  - name: well
    templates:
      - name: draw water
        key: idle
        priority: 0.1
        fetcher: self
        considerations:
          - { key: hunger, min: 0, max: 100, curve: Linear }
`

func TestReloadSwapsStoreBetweenTicks(t *testing.T) {
	dir := t.TempDir()
	copyEmbeddedSets(t, dir)
	cfg := emptyVillage(t)
	cfg.Sim.Villagers = 3
	cfg.ActionSets.Dir = dir

	g := newTestGame(t, cfg)
	before := g.ActionSets().TemplateCount()
	ctx := context.Background()

	r, err := NewReloader(NewLoader(cfg.Curves, discard), dir, discard)
	require.NoError(t, err)
	g.reloader = r

	require.NoError(t, os.WriteFile(filepath.Join(dir, "well.yaml"), []byte(wellSet), 0o644))
	require.NoError(t, r.Reload(ctx))
	assert.Equal(t, before, g.ActionSets().TemplateCount(), "swap waits for the next tick")

	require.NoError(t, g.Step(ctx))
	assert.Equal(t, before+1, g.ActionSets().TemplateCount())
	_, ok := g.ActionSets().Get("well")
	assert.True(t, ok)

	// a broken file keeps the previous store
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("action_sets: ["), 0o644))
	require.Error(t, r.Reload(ctx))
	_, ok = r.Take()
	assert.False(t, ok)
	require.NoError(t, g.Step(ctx))
	assert.Equal(t, before+1, g.ActionSets().TemplateCount())

	reloads, failures := r.Reloads()
	assert.Equal(t, int64(1), reloads)
	assert.Equal(t, int64(1), failures)
}

func TestReloaderWatchesDirectory(t *testing.T) {
	dir := t.TempDir()
	copyEmbeddedSets(t, dir)
	cfg := emptyVillage(t)

	r, err := NewReloader(NewLoader(cfg.Curves, discard), dir, discard)
	require.NoError(t, err)
	r.debounce = 20 * time.Millisecond
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "well.yaml"), []byte(wellSet), 0o644))
	require.Eventually(t, func() bool {
		store, ok := r.Take()
		if !ok {
			return false
		}
		_, has := store.Get("well")
		return has
	}, 5*time.Second, 20*time.Millisecond)
}

func TestValidateActionSets(t *testing.T) {
	cfg := emptyVillage(t)
	ctx := context.Background()

	report, err := ValidateActionSets(ctx, cfg, "")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Sets)
	assert.Positive(t, report.Templates)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`
action_sets:
  - name: bad
    templates:
      - name: fly
        key: fly
        priority: 1
        fetcher: sky
        considerations:
          - { key: altitude, min: 0, max: 1, curve: Linear }
`), 0o644))
	_, err = ValidateActionSets(ctx, cfg, dir)
	require.ErrorIs(t, err, registry.ErrKeyNotFound)
	assert.Contains(t, err.Error(), `"sky"`)
	assert.Contains(t, err.Error(), `"fly"`)
	assert.Contains(t, err.Error(), `"altitude"`)

	_, err = ValidateActionSets(ctx, cfg, filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
