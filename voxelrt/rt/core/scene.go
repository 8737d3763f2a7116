package core

import (
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
)

// Hover is the paint-preview cube shown under the cursor in editor mode.
type Hover struct {
	Cell    volume.Coord
	Visible bool
}

// Scene aggregates the grid with the sun, the selection and the visible editor layer.
type Scene struct {
	Grid       *volume.VoxelGrid
	Sun        Sun
	Selection  Selection
	Hover      Hover
	Background mgl32.Vec3
	Ambient    float32

	layerAxis  volume.Axis
	layerIndex int
}

func NewScene(grid *volume.VoxelGrid) *Scene {
	h := grid.WorldSize()
	return &Scene{
		Grid: grid,
		Sun: Sun{
			Center:   mgl32.Vec3{0.6 * h, 0.9 * h, 0.4 * h},
			Color:    mgl32.Vec3{1, 0.95, 0.85},
			Size:     grid.CellSize(),
			Strength: 0.8,
		},
		Background: mgl32.Vec3{0.12, 0.13, 0.16},
		Ambient:    0.3,
		layerAxis:  volume.AxisY,
	}
}

func (s *Scene) Layer() (volume.Axis, int) {
	return s.layerAxis, s.layerIndex
}

// SetLayer makes index along axis the visible editor slice. Changing the slice
// always clears the selection.
func (s *Scene) SetLayer(axis volume.Axis, index int) {
	s.layerAxis = axis
	s.layerIndex = index
	s.Selection.Clear()
	s.Hover.Visible = false
}

// LayerCell lifts slice coordinates on the current layer to a grid coordinate.
func (s *Scene) LayerCell(u, v int) volume.Coord {
	return volume.LayerCoord(s.layerAxis, s.layerIndex, u, v)
}

// SetHover moves the preview cube and reports whether it lies inside the grid.
func (s *Scene) SetHover(c volume.Coord) bool {
	s.Hover.Cell = c
	s.Hover.Visible = s.Grid.InBounds(c[0], c[1], c[2])
	return s.Hover.Visible
}

func (s *Scene) SetSunCenter(c mgl32.Vec3) {
	s.Sun.Center = c
}
