// Package game hosts a small village simulation on an ark ECS world and
// drives its villagers with the decision engine.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/components"
	"github.com/pthm-cable/cortex/config"
	"github.com/pthm-cable/cortex/decision"
	"github.com/pthm-cable/cortex/registry"
	"github.com/pthm-cable/cortex/telemetry"
	"github.com/pthm-cable/cortex/tracker"
)

type entityKind uint8

const (
	kindController entityKind = iota
	kindPawn
	kindFood
	kindBed
)

// handle links an engine id to its ark entity.
type handle struct {
	e    ecs.Entity
	kind entityKind
}

// Options configures a Game beyond the loaded config.
type Options struct {
	Seed          int64
	OutputDir     string // Empty disables CSV output
	LogStats      bool
	Logger        *slog.Logger
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the complete village state.
type Game struct {
	cfg    *config.Config
	world  *ecs.World
	rng    *rand.Rand
	logger *slog.Logger

	controllerMapper *ecs.Map1[components.Controller]
	pawnMapper       *ecs.Map5[components.Pawn, components.Position, components.Velocity, components.Needs, components.Activity]
	foodMapper       *ecs.Map3[components.SmartObject, components.Position, components.Food]
	bedMapper        *ecs.Map3[components.SmartObject, components.Position, components.Bed]

	controllerFilter *ecs.Filter1[components.Controller]
	pawnFilter       *ecs.Filter5[components.Pawn, components.Position, components.Velocity, components.Needs, components.Activity]
	foodFilter       *ecs.Filter3[components.SmartObject, components.Position, components.Food]
	bedFilter        *ecs.Filter3[components.SmartObject, components.Position, components.Bed]

	handles map[registry.EntityID]handle
	nextID  registry.EntityID

	// Decision making
	reg         *registry.Registry
	engine      *decision.Engine
	trackers    *tracker.Table
	store       *actions.Store
	reloader    *Reloader
	view        *view
	controllers []registry.EntityID
	last        decision.TickResult

	// Telemetry
	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	phases        *telemetry.PhaseRegistry
	output        *telemetry.OutputManager
	statsCallback func(telemetry.WindowStats)
	logStats      bool

	// State
	tick  uint64
	eaten float64
}

// NewGame builds the village described by cfg and spawns its population.
func NewGame(ctx context.Context, cfg *config.Config, opts Options) (*Game, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loader := NewLoader(cfg.Curves, logger)
	store, err := LoadActionSets(ctx, loader, cfg.ActionSets.Dir)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	reg.SetLogger(logger)
	if err := registerBehaviors(reg, cfg.Sim); err != nil {
		return nil, fmt.Errorf("registering behaviors: %w", err)
	}

	var trackers *tracker.Table
	if cfg.Tracker.Enabled {
		trackers = tracker.NewTable(tracker.Options{
			EnableTimestamp:  cfg.Tracker.EnableTimestamp,
			EnableTickMarker: cfg.Tracker.EnableTickMarker,
			EnableTimer:      cfg.Tracker.EnableTimer,
		})
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	collector := telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Sim.DT)
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)

	engine := decision.NewEngine(reg, decision.Options{
		Workers:           cfg.Engine.Workers,
		ParallelThreshold: cfg.Engine.ParallelThreshold,
		Hysteresis:        cfg.Engine.Hysteresis,
		Prune:             cfg.Engine.Prune,
		Tracker:           trackers,
		Observer:          collector,
		Perf:              perf,
		Logger:            logger,
	})
	engine.AddSupply(smartObjects{})

	world := ecs.NewWorld()
	sim := cfg.Sim
	g := &Game{
		cfg:    cfg,
		world:  world,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		logger: logger,

		controllerMapper: ecs.NewMap1[components.Controller](world),
		pawnMapper:       ecs.NewMap5[components.Pawn, components.Position, components.Velocity, components.Needs, components.Activity](world),
		foodMapper:       ecs.NewMap3[components.SmartObject, components.Position, components.Food](world),
		bedMapper:        ecs.NewMap3[components.SmartObject, components.Position, components.Bed](world),

		controllerFilter: ecs.NewFilter1[components.Controller](world),
		pawnFilter:       ecs.NewFilter5[components.Pawn, components.Position, components.Velocity, components.Needs, components.Activity](world),
		foodFilter:       ecs.NewFilter3[components.SmartObject, components.Position, components.Food](world),
		bedFilter:        ecs.NewFilter3[components.SmartObject, components.Position, components.Bed](world),

		handles: make(map[registry.EntityID]handle),

		reg:      reg,
		engine:   engine,
		trackers: trackers,
		store:    store,
		view:     newView(float32(sim.Width), float32(sim.Height), float32(sim.SmartObjectRange)),

		collector:     collector,
		perf:          perf,
		phases:        telemetry.NewPhaseRegistry(),
		output:        output,
		statsCallback: opts.StatsCallback,
		logStats:      opts.LogStats,
	}

	if cfg.ActionSets.Watch && cfg.ActionSets.Dir != "" {
		r, err := NewReloader(loader, cfg.ActionSets.Dir, logger)
		if err != nil {
			g.Close()
			return nil, err
		}
		if err := r.Start(ctx); err != nil {
			r.Stop()
			g.Close()
			return nil, err
		}
		g.reloader = r
	}

	g.spawnInitialPopulation()

	logger.Info("village ready",
		"villagers", sim.Villagers,
		"food_stalls", sim.FoodStalls,
		"beds", sim.Beds,
		"action_sets", store.SortedNames(),
		"templates", store.TemplateCount(),
	)
	return g, nil
}

// Step runs a single tick of the simulation.
func (g *Game) Step(ctx context.Context) error {
	g.perf.StartTick()
	defer g.perf.EndTick()

	g.swapActionSets()

	// 1. Copy the world into the read-only view
	g.perf.StartPhase(telemetry.PhaseSnapshot)
	g.buildView()

	// 2. Decide (gathering, scoring, selecting and dispatching phases)
	res, err := g.engine.Tick(ctx, g.view, g.controllers)
	if err != nil {
		return fmt.Errorf("tick %d: %w", g.tick+1, err)
	}
	g.tick = res.Tick
	g.last = res

	// 3. Apply handler commands and move pawns
	g.perf.StartPhase(telemetry.PhaseApply)
	g.applyCommands(res.Commands)
	g.updateMovement()

	// 4. Needs, stock, beds and level of detail
	g.perf.StartPhase(telemetry.PhaseNeeds)
	g.updateNeeds()
	g.updateFood()
	g.releaseBeds()
	g.updateLOD()

	// 5. Stats windows
	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	return nil
}

// Run steps until ctx is done or maxTicks ticks have run. maxTicks <= 0
// runs until cancelled.
func (g *Game) Run(ctx context.Context, maxTicks int) error {
	for maxTicks <= 0 || g.tick < uint64(maxTicks) {
		if err := g.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

// Close stops background workers and flushes output.
func (g *Game) Close() error {
	g.engine.Close()
	if g.reloader != nil {
		g.reloader.Stop()
	}
	return g.output.Close()
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() uint64 { return g.tick }

// LastResult returns the decisions and commands of the latest tick.
func (g *Game) LastResult() decision.TickResult { return g.last }

// Trackers returns the action tracker table, or nil when disabled.
func (g *Game) Trackers() *tracker.Table { return g.trackers }

// ActionSets returns the store in use.
func (g *Game) ActionSets() *actions.Store { return g.store }

// swapActionSets installs a reloaded store between ticks.
func (g *Game) swapActionSets() {
	if g.reloader == nil {
		return
	}
	if store, ok := g.reloader.Take(); ok {
		g.store = store
		g.logger.Info("action sets swapped",
			"tick", g.tick,
			"action_sets", store.SortedNames(),
			"templates", store.TemplateCount(),
		)
	}
}

// buildView copies controllers, pawns and smart objects into the view.
func (g *Game) buildView() {
	v := g.view
	v.reset()

	g.controllers = g.controllers[:0]
	cq := g.controllerFilter.Query()
	for cq.Next() {
		c := cq.Get()
		v.controllers[c.ID] = controllerState{Pawn: c.Pawn, LOD: c.LOD}
		g.controllers = append(g.controllers, c.ID)
	}
	sort.Slice(g.controllers, func(i, j int) bool { return g.controllers[i] < g.controllers[j] })

	pq := g.pawnFilter.Query()
	for pq.Next() {
		p, pos, _, needs, _ := pq.Get()
		v.pawns[p.ID] = pawnState{
			Controller: p.Controller,
			Pos:        *pos,
			Needs:      *needs,
			Sets:       g.store.Resolve(p.Sets...),
		}
	}

	fq := g.foodFilter.Query()
	for fq.Next() {
		so, pos, food := fq.Get()
		v.addObject(so.ID, objectState{
			Kind:     so.Kind,
			Pos:      *pos,
			Stock:    food.Stock,
			Capacity: food.Capacity,
			Sets:     g.store.Resolve(so.Sets...),
		})
	}

	bq := g.bedFilter.Query()
	for bq.Next() {
		so, pos, bed := bq.Get()
		v.addObject(so.ID, objectState{
			Kind:     so.Kind,
			Pos:      *pos,
			Occupant: bed.Occupant,
			Sets:     g.store.Resolve(so.Sets...),
		})
	}
}
