package volume

import (
	"github.com/go-gl/mathgl/mgl32"
)

// LayerBuffers is the raster geometry of one editor slice: the occupied cells at
// Index along Axis, with one model transform per instance of the shared cube mesh.
type LayerBuffers struct {
	Axis      Axis
	Index     int
	Cells     []Coord
	Models    []mgl32.Mat4
	Colors    []mgl32.Vec3
	Materials []Material
}

func (l *LayerBuffers) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Cells)
}

// RebuildLayerBuffers recomputes the slice at index along axis. The returned
// extent is the occupied world interval along the up (Y) axis of the whole
// grid, which the viewer camera uses to recentre itself.
func (g *VoxelGrid) RebuildLayerBuffers(axis Axis, index int) (*LayerBuffers, Extent) {
	l := &LayerBuffers{Axis: axis, Index: index}
	s := g.CellSize()
	for _, c := range g.Coords() {
		if c[axis] != index {
			continue
		}
		v := g.voxels[c]
		min := g.CellMin(c)
		model := mgl32.Translate3D(min[0], min[1], min[2]).Mul4(mgl32.Scale3D(s, s, s))
		l.Cells = append(l.Cells, c)
		l.Models = append(l.Models, model)
		l.Colors = append(l.Colors, v.Color)
		l.Materials = append(l.Materials, v.Material)
	}
	return l, g.OccupiedExtent(AxisY)
}

// LayerCoord lifts in-plane slice coordinates (u, v) to a grid coordinate.
func LayerCoord(axis Axis, index, u, v int) Coord {
	a, b := axis.InPlane()
	var c Coord
	c[axis] = index
	c[a] = u
	c[b] = v
	return c
}

// PlaneCoords projects a grid coordinate onto the slice plane of axis.
func PlaneCoords(axis Axis, c Coord) (int, int) {
	a, b := axis.InPlane()
	return c[a], c[b]
}
