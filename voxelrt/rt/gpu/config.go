package gpu

import "github.com/go-gl/mathgl/mgl32"

type Config struct {
	// Sub-pixel jitter magnitude is 1/(JitterBase + JitterFalloff*samples).
	JitterBase    float32 `toml:"jitter_base"`
	JitterFalloff float32 `toml:"jitter_falloff"`
	// Samples before history starts contributing to the accumulated image.
	Warmup     int `toml:"warmup"`
	MaxBounces int `toml:"max_bounces"`
	// Row bands traced concurrently; 0 uses GOMAXPROCS.
	Workers int  `toml:"workers"`
	ShowHUD bool `toml:"show_hud"`

	TileColors     [2]mgl32.Vec3 `toml:"-"`
	GridColor      mgl32.Vec3    `toml:"-"`
	SelectionColor mgl32.Vec3    `toml:"-"`
	HighlightColor mgl32.Vec3    `toml:"-"`
}

func DefaultConfig() Config {
	return Config{
		JitterBase:     5000,
		JitterFalloff:  5,
		Warmup:         3,
		MaxBounces:     4,
		ShowHUD:        true,
		TileColors:     [2]mgl32.Vec3{{0.22, 0.23, 0.26}, {0.26, 0.27, 0.30}},
		GridColor:      mgl32.Vec3{0.4, 0.42, 0.46},
		SelectionColor: mgl32.Vec3{0.95, 0.8, 0.2},
		HighlightColor: mgl32.Vec3{1, 1, 1},
	}
}

// Logger is the subset of the session logger the renderer writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}
