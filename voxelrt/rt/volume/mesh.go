package volume

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CubeFace describes one face of the unit cube as two triangles.
type CubeFace struct {
	Normal   Coord
	Vertices [6]mgl32.Vec3
}

// UnitCube lists the six faces of the [0,1]^3 cube with outward winding.
var UnitCube = [6]CubeFace{
	{Normal: Coord{1, 0, 0}, Vertices: [6]mgl32.Vec3{
		{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 0}, {1, 1, 1}, {1, 0, 1}}},
	{Normal: Coord{-1, 0, 0}, Vertices: [6]mgl32.Vec3{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 0, 0}, {0, 1, 1}, {0, 1, 0}}},
	{Normal: Coord{0, 1, 0}, Vertices: [6]mgl32.Vec3{
		{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {0, 1, 0}, {1, 1, 1}, {1, 1, 0}}},
	{Normal: Coord{0, -1, 0}, Vertices: [6]mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 0}, {1, 0, 1}, {0, 0, 1}}},
	{Normal: Coord{0, 0, 1}, Vertices: [6]mgl32.Vec3{
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 0, 1}, {1, 1, 1}, {0, 1, 1}}},
	{Normal: Coord{0, 0, -1}, Vertices: [6]mgl32.Vec3{
		{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 0}, {1, 1, 0}, {1, 0, 0}}},
}

// MeshBuffers holds the flattened full-volume geometry used by the viewer
// preview: 3 floats per vertex for positions, normals and colours, 1 for material.
type MeshBuffers struct {
	Positions []float32
	Normals   []float32
	Colors    []float32
	Materials []float32
}

func (m *MeshBuffers) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.Positions) / 3
}

// Bytes is the total size of the buffers as they would be uploaded.
func (m *MeshBuffers) Bytes() int {
	if m == nil {
		return 0
	}
	return 4 * (len(m.Positions) + len(m.Normals) + len(m.Colors) + len(m.Materials))
}

// RebuildVolumeBuffers emits every voxel face that borders an empty cell.
// Interior faces are culled. The extent is the same Y extent as RebuildLayerBuffers.
func (g *VoxelGrid) RebuildVolumeBuffers() (*MeshBuffers, Extent) {
	m := &MeshBuffers{}
	s := g.CellSize()
	for _, c := range g.Coords() {
		v := g.voxels[c]
		base := g.CellMin(c)
		for _, face := range UnitCube {
			n := face.Normal
			if g.Occupied(c[0]+n[0], c[1]+n[1], c[2]+n[2]) {
				continue
			}
			for _, p := range face.Vertices {
				m.Positions = append(m.Positions, base[0]+p[0]*s, base[1]+p[1]*s, base[2]+p[2]*s)
				m.Normals = append(m.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
				m.Colors = append(m.Colors, v.Color[0], v.Color[1], v.Color[2])
				m.Materials = append(m.Materials, float32(v.Material))
			}
		}
	}
	return m, g.OccupiedExtent(AxisY)
}
