package editor

// Config holds the input tuning constants. Speeds are per pixel (or per
// squared pixel for pinch distances) of pointer movement.
type Config struct {
	MovementSpeed        float32 `toml:"movement_speed"`
	WheelZoomSpeed       float32 `toml:"wheel_zoom_speed"`
	LayerScrollSpeed     float32 `toml:"layer_scroll_speed"`
	TouchScrollFactor    float32 `toml:"touch_scroll_factor"`
	TouchZoomSpeed       float32 `toml:"touch_zoom_speed"`
	PinchThreshold       float32 `toml:"pinch_threshold"`
	ScrollThreshold      float32 `toml:"scroll_threshold"`
	EditorWheelZoomSpeed float32 `toml:"editor_wheel_zoom_speed"`
	EditorPinchZoomSpeed float32 `toml:"editor_pinch_zoom_speed"`
}

func DefaultConfig() Config {
	return Config{
		MovementSpeed:        0.01,
		WheelZoomSpeed:       -0.008,
		LayerScrollSpeed:     0.005,
		TouchScrollFactor:    10,
		TouchZoomSpeed:       -0.0001,
		PinchThreshold:       5000,
		ScrollThreshold:      100,
		EditorWheelZoomSpeed: -0.01,
		EditorPinchZoomSpeed: 0.00005,
	}
}

// Logger is the subset of the session logger the controller writes to.
type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
