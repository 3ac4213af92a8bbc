// Package config provides configuration loading and access for the decision engine
// and the demo host.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine and host configuration parameters.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Curves     CurvesConfig     `yaml:"curves"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Sim        SimConfig        `yaml:"sim"`
	ActionSets ActionSetsConfig `yaml:"action_sets"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// EngineConfig controls the decision loop.
type EngineConfig struct {
	Workers           int     `yaml:"workers"`            // 0 = runtime.NumCPU()
	ParallelThreshold int     `yaml:"parallel_threshold"` // Below this many controllers, decide serially
	Hysteresis        float64 `yaml:"hysteresis"`         // Absolute score tolerance for keeping the current action (0 = off)
	Prune             bool    `yaml:"prune"`              // Skip candidates that cannot win
}

// TrackerConfig selects which bookkeeping fields an action tracker maintains.
type TrackerConfig struct {
	Enabled          bool `yaml:"enabled"`
	EnableTimestamp  bool `yaml:"enable_timestamp"`   // Creation and last-update wall-clock times
	EnableTickMarker bool `yaml:"enable_tick_marker"` // Flag toggled on every refresh
	EnableTimer      bool `yaml:"enable_timer"`       // Elapsed time since the previous refresh
}

// CurvesConfig controls how consideration curves are resolved from data.
type CurvesConfig struct {
	OnMissing string `yaml:"on_missing"` // fail, skip_consideration, skip_action, default
	Fallback  string `yaml:"fallback"`   // Curve used by on_missing=default
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Seconds of sim time per stats window
	PerfWindow  int     `yaml:"perf_window"`  // Ticks in the rolling perf window
}

// SimConfig holds demo village parameters.
type SimConfig struct {
	DT               float64 `yaml:"dt"`
	Width            float64 `yaml:"width"`
	Height           float64 `yaml:"height"`
	Villagers        int     `yaml:"villagers"`
	FoodStalls       int     `yaml:"food_stalls"`
	Beds             int     `yaml:"beds"`
	SmartObjectRange float64 `yaml:"smart_object_range"` // Pawns further than this ignore a smart object
	WalkSpeed        float64 `yaml:"walk_speed"`
	InteractRange    float64 `yaml:"interact_range"`
	HungerRate       float64 `yaml:"hunger_rate"`  // Hunger gained per second
	FatigueRate      float64 `yaml:"fatigue_rate"` // Fatigue gained per second
	EatRate          float64 `yaml:"eat_rate"`     // Hunger removed per second while eating
	RestRate         float64 `yaml:"rest_rate"`    // Fatigue removed per second while sleeping
	FoodStock        float64 `yaml:"food_stock"`   // Initial stock per stall
	FoodRegrowth     float64 `yaml:"food_regrowth"`
	ElevatedRange    float64 `yaml:"elevated_range"` // Villagers within this range of the centre run at elevated LOD
}

// ActionSetsConfig locates action-set definition files.
type ActionSetsConfig struct {
	Dir   string `yaml:"dir"`   // Empty = embedded defaults
	Watch bool   `yaml:"watch"` // Reload on file change
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT               time.Duration
	StatsWindowTicks int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from path (or embedded defaults) and sets the global.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Curves.OnMissing {
	case "fail", "skip_consideration", "skip_action":
	case "default":
		if c.Curves.Fallback == "" {
			return fmt.Errorf("curves.on_missing=default requires curves.fallback")
		}
	default:
		return fmt.Errorf("unknown curves.on_missing %q", c.Curves.OnMissing)
	}
	if c.Engine.Hysteresis < 0 {
		return fmt.Errorf("engine.hysteresis must be >= 0, got %v", c.Engine.Hysteresis)
	}
	if c.Sim.DT <= 0 {
		return fmt.Errorf("sim.dt must be > 0, got %v", c.Sim.DT)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT = time.Duration(c.Sim.DT * float64(time.Second))
	c.Derived.StatsWindowTicks = int(math.Round(c.Telemetry.StatsWindow / c.Sim.DT))
	if c.Derived.StatsWindowTicks < 1 {
		c.Derived.StatsWindowTicks = 1
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
