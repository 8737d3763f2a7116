package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/core"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"
)

// cubeEdges are the twelve edges of the unit cube.
var cubeEdges = [12][2]mgl32.Vec3{
	{{0, 0, 0}, {1, 0, 0}}, {{0, 1, 0}, {1, 1, 0}}, {{0, 0, 1}, {1, 0, 1}}, {{0, 1, 1}, {1, 1, 1}},
	{{0, 0, 0}, {0, 1, 0}}, {{1, 0, 0}, {1, 1, 0}}, {{0, 0, 1}, {0, 1, 1}}, {{1, 0, 1}, {1, 1, 1}},
	{{0, 0, 0}, {0, 0, 1}}, {{1, 0, 0}, {1, 0, 1}}, {{0, 1, 0}, {0, 1, 1}}, {{1, 1, 0}, {1, 1, 1}},
}

// unitCubeVertices is the triangle list instanced batches draw per instance.
var unitCubeVertices = func() [][3]float32 {
	out := make([][3]float32, 0, 36)
	for _, face := range volume.UnitCube {
		for _, v := range face.Vertices {
			out = append(out, [3]float32(v))
		}
	}
	return out
}()

func appendLine(dst []Vertex, a, b mgl32.Vec3, col [4]float32) []Vertex {
	return append(dst, Vertex{Pos: [3]float32(a), Color: col}, Vertex{Pos: [3]float32(b), Color: col})
}

func appendTriangle(dst []Vertex, a, b, c mgl32.Vec3, col [4]float32) []Vertex {
	return append(dst,
		Vertex{Pos: [3]float32(a), Color: col},
		Vertex{Pos: [3]float32(b), Color: col},
		Vertex{Pos: [3]float32(c), Color: col},
	)
}

// appendWireCube transforms the unit cube edges by model.
func appendWireCube(dst []Vertex, model mgl32.Mat4, col [4]float32) []Vertex {
	for _, e := range cubeEdges {
		dst = appendLine(dst, mgl32.TransformCoordinate(e[0], model), mgl32.TransformCoordinate(e[1], model), col)
	}
	return dst
}

// planePoint places slice coordinates (u, v), measured in cells, on the plane
// at offset along axis.
func planePoint(grid *volume.VoxelGrid, axis volume.Axis, offset, u, v float32) mgl32.Vec3 {
	a, b := axis.InPlane()
	o := grid.Origin()
	s := grid.CellSize()
	var p mgl32.Vec3
	p[axis] = offset
	p[a] = o[a] + u*s
	p[b] = o[b] + v*s
	return p
}

func cellModel(grid *volume.VoxelGrid, c volume.Coord) mgl32.Mat4 {
	m := grid.CellMin(c)
	s := grid.CellSize()
	return mgl32.Translate3D(m[0], m[1], m[2]).Mul4(mgl32.Scale3D(s, s, s))
}

// editorBatches plans the orthographic slice view: checkerboard tiles under the
// layer, the layer's voxels in flat colour, the paint preview, markers on
// mirror voxels, the cell grid and the selection rectangle.
func (r *Renderer) editorBatches(s *Snapshot) []Batch {
	scene := s.Scene
	grid := scene.Grid
	axis, index := scene.Layer()
	n := grid.Dimension()
	low := grid.LayerPosition(axis, index)
	high := low + grid.CellSize()

	tiles := make([]Vertex, 0, 6*n*n)
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			col := rgba(r.cfg.TileColors[(u+v)%2])
			p00 := planePoint(grid, axis, low, float32(u), float32(v))
			p10 := planePoint(grid, axis, low, float32(u+1), float32(v))
			p11 := planePoint(grid, axis, low, float32(u+1), float32(v+1))
			p01 := planePoint(grid, axis, low, float32(u), float32(v+1))
			tiles = appendTriangle(tiles, p00, p10, p11, col)
			tiles = appendTriangle(tiles, p00, p11, p01, col)
		}
	}

	layer, _ := r.cache.Layer(grid, axis, index)
	voxels := make([]Instance, len(layer.Models))
	var markers []Vertex
	for i, m := range layer.Models {
		voxels[i] = Instance{Model: m, Color: rgba(layer.Colors[i])}
		if layer.Materials[i] != volume.MaterialMirror {
			continue
		}
		inset := m.Mul4(mgl32.Translate3D(0.2, 0.2, 0.2)).Mul4(mgl32.Scale3D(0.6, 0.6, 0.6))
		marker := rgba(core.MarkerColor(layer.Colors[i]))
		// outline of the inset's face towards the camera
		for _, e := range cubeEdges {
			if e[0][axis] == 1 && e[1][axis] == 1 {
				markers = appendLine(markers, mgl32.TransformCoordinate(e[0], inset), mgl32.TransformCoordinate(e[1], inset), marker)
			}
		}
	}

	var hover []Instance
	if h := scene.Hover; h.Visible && h.Cell[axis] == index {
		hover = []Instance{{Model: cellModel(grid, h.Cell), Color: rgba(s.Brush.Color)}}
	}

	lines := make([]Vertex, 0, 4*(n+1))
	gridCol := rgba(r.cfg.GridColor)
	for i := 0; i <= n; i++ {
		t := float32(i)
		lines = appendLine(lines, planePoint(grid, axis, high, t, 0), planePoint(grid, axis, high, t, float32(n)), gridCol)
		lines = appendLine(lines, planePoint(grid, axis, high, 0, t), planePoint(grid, axis, high, float32(n), t), gridCol)
	}

	var selection []Vertex
	if lo, hi, ok := scene.Selection.Bounds(); ok {
		u0, v0 := float32(lo[0]), float32(lo[1])
		u1, v1 := float32(hi[0]+1), float32(hi[1]+1)
		c := [4]mgl32.Vec3{
			planePoint(grid, axis, high, u0, v0),
			planePoint(grid, axis, high, u1, v0),
			planePoint(grid, axis, high, u1, v1),
			planePoint(grid, axis, high, u0, v1),
		}
		col := rgba(r.cfg.SelectionColor)
		for i := range c {
			selection = appendLine(selection, c[i], c[(i+1)%4], col)
		}
	}

	return []Batch{
		{Label: "tiles", Topology: TopologyTriangles, DepthTest: true, Vertices: tiles},
		{Label: "layer", Topology: TopologyTriangles, DepthTest: true, Instances: voxels},
		{Label: "hover", Topology: TopologyTriangles, DepthTest: true, Instances: hover},
		{Label: "markers", Topology: TopologyLines, Vertices: markers},
		{Label: "grid", Topology: TopologyLines, Vertices: lines},
		{Label: "selection", Topology: TopologyLines, Vertices: selection},
	}
}

// previewBatches plans the lit full-volume mesh with the sun cube for the
// viewer when ray tracing is off or the camera is moving between modes.
func (r *Renderer) previewBatches(s *Snapshot) []Batch {
	scene := s.Scene
	sun := scene.Sun

	mesh, _ := r.cache.Mesh(scene.Grid)
	lit := make([]Vertex, 0, mesh.VertexCount())
	for i := 0; i+9 <= len(mesh.Positions); i += 9 {
		a := mgl32.Vec3{mesh.Positions[i], mesh.Positions[i+1], mesh.Positions[i+2]}
		b := mgl32.Vec3{mesh.Positions[i+3], mesh.Positions[i+4], mesh.Positions[i+5]}
		c := mgl32.Vec3{mesh.Positions[i+6], mesh.Positions[i+7], mesh.Positions[i+8]}
		n := mgl32.Vec3{mesh.Normals[i], mesh.Normals[i+1], mesh.Normals[i+2]}
		col := mgl32.Vec3{mesh.Colors[i], mesh.Colors[i+1], mesh.Colors[i+2]}
		lit = appendTriangle(lit, a, b, c, rgba(shadeFace(scene, a, b, c, n, col)))
	}

	batches := []Batch{
		{Label: "mesh", Topology: TopologyTriangles, DepthTest: true, Vertices: lit, Key: r.previewKey(scene)},
		{Label: "sun", Topology: TopologyTriangles, DepthTest: true, Instances: []Instance{{Model: sun.Model(), Color: rgba(sun.Color)}}},
	}
	if s.SunHovered {
		batches = append(batches, Batch{
			Label:    "sun highlight",
			Topology: TopologyLines,
			Vertices: appendWireCube(nil, sun.Model(), rgba(r.cfg.HighlightColor)),
		})
	}
	return batches
}

// shadeFace is ambient plus lambert towards the sun centre, evaluated at the
// triangle centroid.
func shadeFace(scene *core.Scene, a, b, c, n, col mgl32.Vec3) mgl32.Vec3 {
	sun := scene.Sun
	centroid := a.Add(b).Add(c).Mul(1.0 / 3)
	lambert := float32(0)
	if l := sun.Center.Sub(centroid); l.Len() > 0 {
		lambert = max(0, n.Dot(l.Normalize()))
	}
	return col.Mul(scene.Ambient).Add(mul3(col, sun.Color).Mul(sun.Strength * lambert))
}

// previewKey identifies the lit mesh: it changes when the mesh is rebuilt or
// the lighting moves.
func (r *Renderer) previewKey(scene *core.Scene) uint64 {
	sun := scene.Sun
	buf := binary.LittleEndian.AppendUint64(nil, uint64(r.cache.Rebuilds.Mesh))
	for _, f := range []float32{
		sun.Center[0], sun.Center[1], sun.Center[2],
		sun.Color[0], sun.Color[1], sun.Color[2],
		sun.Strength, scene.Ambient,
	} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	// zero marks dynamic geometry
	return xxhash.Sum64(buf) | 1
}
