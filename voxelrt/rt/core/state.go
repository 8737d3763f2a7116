package core

import (
	"math"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"
)

type Tool int

const (
	ToolPencil Tool = iota
	ToolEraser
	ToolEyeDropper
	ToolSelector
)

func (t Tool) String() string {
	switch t {
	case ToolPencil:
		return "pencil"
	case ToolEraser:
		return "eraser"
	case ToolEyeDropper:
		return "eyedropper"
	case ToolSelector:
		return "selector"
	}
	return "unknown"
}

// State is the per-session editing state shared by the controller and the
// renderer. SampleCount counts accumulated ray-traced frames since the last
// invalidating event.
type State struct {
	Tool        Tool
	Axis        volume.Axis
	LayerPos    [3]float32
	Brush       Brush
	RayTrace    bool
	SampleCount int
	SunHovered  bool
}

func NewState() *State {
	return &State{
		Tool:     ToolPencil,
		Axis:     volume.AxisY,
		Brush:    DefaultBrush(),
		RayTrace: true,
	}
}

// Layer is the integer layer index for axis.
func (s *State) Layer(axis volume.Axis) int {
	return int(math.Floor(float64(s.LayerPos[axis])))
}

func (s *State) CurrentLayer() int {
	return s.Layer(s.Axis)
}

// Invalidate discards accumulated samples.
func (s *State) Invalidate() {
	s.SampleCount = 0
}
