package voxcanvas

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigTOML = `
dimension = 32
transition = "250ms"

[window]
title = "test"

[camera]
max_radius = 6.0

[input]
pinch_threshold = 2500.0

[render]
warmup = 5
show_hud = false

[log]
debug = true
`

func TestDefaultConfigCarriesInputConstants(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 0.01, cfg.Input.MovementSpeed, 1e-9)
	assert.InDelta(t, -0.008, cfg.Input.WheelZoomSpeed, 1e-9)
	assert.InDelta(t, 0.005, cfg.Input.LayerScrollSpeed, 1e-9)
	assert.InDelta(t, 5000, cfg.Input.PinchThreshold, 1e-9)
	assert.InDelta(t, 100, cfg.Input.ScrollThreshold, 1e-9)
	assert.Equal(t, time.Second, cfg.Transition.Duration)
	assert.Equal(t, 3, cfg.Render.Warmup)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxcanvas.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigTOML), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Dimension)
	assert.Equal(t, 250*time.Millisecond, cfg.camera().TransitionDuration)
	assert.Equal(t, "test", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width, "unset keys keep their defaults")
	assert.InDelta(t, 6, cfg.Camera.MaxRadius, 1e-6)
	assert.InDelta(t, 0.2, cfg.Camera.MinRadius, 1e-6)
	assert.InDelta(t, 2500, cfg.Input.PinchThreshold, 1e-6)
	assert.InDelta(t, 100, cfg.Input.ScrollThreshold, 1e-6)
	assert.Equal(t, 5, cfg.Render.Warmup)
	assert.False(t, cfg.Render.ShowHUD)
	assert.True(t, cfg.Log.Debug)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Dimension, cfg.Dimension)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"dimension": "dimension = 0\n",
		"radius":    "[camera]\nmin_radius = -1.0\n",
		"duration":  "transition = \"soon\"\n",
		"syntax":    "dimension = \n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".toml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err, name)
	}

	_, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestClockCapsDelta(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewClock()
	c.Time = now
	c.now = func() time.Time { return now }

	now = now.Add(16 * time.Millisecond)
	assert.Equal(t, 16*time.Millisecond, c.Tick())

	now = now.Add(5 * time.Second)
	assert.Equal(t, c.MaxDt, c.Tick())

	now = now.Add(-time.Second)
	assert.Zero(t, c.Tick())
}

func TestLoggerFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxcanvas.log")
	l := NewLogger("test", LogConfig{File: path, MaxSizeMB: 1})
	l.Infof("hello %d", 1)
	l.Debugf("hidden")
	l.SetDebug(true)
	l.Debugf("shown")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[test] INFO: hello 1")
	assert.Contains(t, string(data), "DEBUG: shown")
	assert.NotContains(t, string(data), "hidden")
}
