package voxcanvas

import (
	"fmt"
	"time"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/core"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/editor"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/format"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/gpu"

	"github.com/BurntSushi/toml"
)

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

// Config is the whole editor configuration as read from a TOML file.
type Config struct {
	Window WindowConfig `toml:"window"`
	// Dimension of the grid of a fresh session.
	Dimension  int               `toml:"dimension"`
	Transition Duration          `toml:"transition"`
	Camera     core.CameraConfig `toml:"camera"`
	Input      editor.Config     `toml:"input"`
	Render     gpu.Config        `toml:"render"`
	Log        LogConfig         `toml:"log"`
	// Thumbnail cache size in bytes.
	ThumbnailCache int `toml:"thumbnail_cache"`
}

// Duration reads Go duration strings ("750ms", "1s") from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func DefaultConfig() Config {
	cam := core.DefaultCameraConfig()
	return Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "voxcanvas",
		},
		Dimension:      16,
		Transition:     Duration{cam.TransitionDuration},
		Camera:         cam,
		Input:          editor.DefaultConfig(),
		Render:         gpu.DefaultConfig(),
		ThumbnailCache: 4 * 1024 * 1024,
	}
}

// LoadConfig decodes the TOML file at path over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("could not decode TOML config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the session cannot run with.
func (c Config) Validate() error {
	if c.Dimension < format.MinDimension || c.Dimension > format.MaxDimension {
		return fmt.Errorf("dimension %d outside [%d, %d]", c.Dimension, format.MinDimension, format.MaxDimension)
	}
	if c.Camera.MinRadius <= 0 || c.Camera.MaxRadius < c.Camera.MinRadius {
		return fmt.Errorf("invalid viewer radius range [%g, %g]", c.Camera.MinRadius, c.Camera.MaxRadius)
	}
	if c.Transition.Duration < 0 {
		return fmt.Errorf("negative transition duration %s", c.Transition)
	}
	if c.Render.Warmup < 0 || c.Render.MaxBounces < 0 {
		return fmt.Errorf("render warmup and max bounces must not be negative")
	}
	return nil
}

// camera returns the camera settings with the configured transition applied.
func (c Config) camera() core.CameraConfig {
	cam := c.Camera
	cam.TransitionDuration = c.Transition.Duration
	return cam
}
