package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Engine.ParallelThreshold)
	assert.InDelta(t, 0.05, cfg.Engine.Hysteresis, 1e-12)
	assert.True(t, cfg.Tracker.EnableTimestamp)
	assert.Equal(t, "fail", cfg.Curves.OnMissing)
	assert.Equal(t, 100*time.Millisecond, cfg.Derived.DT)
	assert.Equal(t, 100, cfg.Derived.StatsWindowTicks)
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("engine:\n  hysteresis: 0.2\ntracker:\n  enable_timer: false\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.2, cfg.Engine.Hysteresis, 1e-12)
	assert.False(t, cfg.Tracker.EnableTimer)
	// Untouched fields keep their defaults
	assert.True(t, cfg.Tracker.EnableTickMarker)
	assert.Equal(t, 40, cfg.Sim.Villagers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown strategy", "curves:\n  on_missing: explode\n"},
		{"default without fallback", "curves:\n  on_missing: default\n  fallback: \"\"\n"},
		{"negative hysteresis", "engine:\n  hysteresis: -1\n"},
		{"zero dt", "sim:\n  dt: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Engine, again.Engine)
	assert.Equal(t, cfg.Sim, again.Sim)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
