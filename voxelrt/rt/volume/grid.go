package volume

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return "?"
}

// InPlane returns the two axes spanning a slice orthogonal to a.
// X slices are addressed by (y, z), Y slices by (x, z), Z slices by (x, y).
func (a Axis) InPlane() (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

// Unit returns the positive world direction of the axis.
func (a Axis) Unit() mgl32.Vec3 {
	var v mgl32.Vec3
	v[a] = 1
	return v
}

type Material uint8

const (
	MaterialDiffuse Material = iota
	MaterialMirror

	materialCount
)

func (m Material) Valid() bool {
	return m < materialCount
}

func (m Material) String() string {
	switch m {
	case MaterialDiffuse:
		return "diffuse"
	case MaterialMirror:
		return "mirror"
	}
	return "unknown"
}

type Coord [3]int

type Voxel struct {
	Color    mgl32.Vec3
	Material Material
}

// Extent is a world-space interval along one axis. Empty is set when no voxel
// contributed to it.
type Extent struct {
	Min   float32
	Max   float32
	Empty bool
}

func (e Extent) Center() float32 {
	if e.Empty {
		return 0
	}
	return (e.Min + e.Max) / 2
}

// VoxelGrid is a sparse cubic occupancy map. A cell is occupied iff it has an
// entry; empty cells carry no data. Dimension and DivisionFactor are fixed for
// the grid's lifetime. Every effective mutation bumps Version so that derived
// buffers can be rebuilt lazily.
type VoxelGrid struct {
	dimension      int
	divisionFactor float32
	voxels         map[Coord]Voxel
	version        uint64
}

func NewVoxelGrid(dimension int, divisionFactor float32) *VoxelGrid {
	if divisionFactor <= 0 {
		divisionFactor = float32(dimension)
	}
	return &VoxelGrid{
		dimension:      dimension,
		divisionFactor: divisionFactor,
		voxels:         make(map[Coord]Voxel),
	}
}

func (g *VoxelGrid) Dimension() int          { return g.dimension }
func (g *VoxelGrid) DivisionFactor() float32 { return g.divisionFactor }
func (g *VoxelGrid) Version() uint64         { return g.version }
func (g *VoxelGrid) Len() int                { return len(g.voxels) }

// CellSize is the world-space side length of one cell.
func (g *VoxelGrid) CellSize() float32 {
	return 1 / g.divisionFactor
}

// Origin is the world-space corner of cell (0,0,0). The grid is centred on the
// world origin.
func (g *VoxelGrid) Origin() mgl32.Vec3 {
	h := -float32(g.dimension) * g.CellSize() / 2
	return mgl32.Vec3{h, h, h}
}

// WorldSize is the side length of the whole grid in world units.
func (g *VoxelGrid) WorldSize() float32 {
	return float32(g.dimension) * g.CellSize()
}

func (g *VoxelGrid) InBounds(x, y, z int) bool {
	n := g.dimension
	return x >= 0 && y >= 0 && z >= 0 && x < n && y < n && z < n
}

// CellMin returns the world-space minimum corner of a cell.
func (g *VoxelGrid) CellMin(c Coord) mgl32.Vec3 {
	s := g.CellSize()
	o := g.Origin()
	return mgl32.Vec3{o[0] + float32(c[0])*s, o[1] + float32(c[1])*s, o[2] + float32(c[2])*s}
}

func (g *VoxelGrid) CellCenter(c Coord) mgl32.Vec3 {
	h := g.CellSize() / 2
	return g.CellMin(c).Add(mgl32.Vec3{h, h, h})
}

// CellOf maps a world point to the integer cell containing it. The result may
// lie outside the grid.
func (g *VoxelGrid) CellOf(p mgl32.Vec3) Coord {
	o := g.Origin()
	s := g.CellSize()
	var c Coord
	for i := 0; i < 3; i++ {
		c[i] = int(math.Floor(float64((p[i] - o[i]) / s)))
	}
	return c
}

// LayerPosition is the world coordinate of the low face of layer index along axis.
func (g *VoxelGrid) LayerPosition(axis Axis, index int) float32 {
	return g.Origin()[axis] + float32(index)*g.CellSize()
}

// LayerCenter is the world coordinate of the middle of layer index along axis.
func (g *VoxelGrid) LayerCenter(axis Axis, index int) float32 {
	return g.LayerPosition(axis, index) + g.CellSize()/2
}

// Set upserts a voxel. Out-of-range coordinates are ignored and reported as false.
func (g *VoxelGrid) Set(x, y, z int, color mgl32.Vec3, material Material) bool {
	if !g.InBounds(x, y, z) {
		return false
	}
	c := Coord{x, y, z}
	v := Voxel{Color: color, Material: material}
	if old, ok := g.voxels[c]; ok && old == v {
		return true
	}
	g.voxels[c] = v
	g.version++
	return true
}

// Delete removes the voxel at a cell. It reports whether a voxel was removed.
func (g *VoxelGrid) Delete(x, y, z int) bool {
	c := Coord{x, y, z}
	if _, ok := g.voxels[c]; !ok {
		return false
	}
	delete(g.voxels, c)
	g.version++
	return true
}

// Clear removes every voxel.
func (g *VoxelGrid) Clear() {
	if len(g.voxels) == 0 {
		return
	}
	g.voxels = make(map[Coord]Voxel)
	g.version++
}

func (g *VoxelGrid) At(c Coord) (Voxel, bool) {
	v, ok := g.voxels[c]
	return v, ok
}

func (g *VoxelGrid) ColorAt(x, y, z int) (mgl32.Vec3, bool) {
	v, ok := g.voxels[Coord{x, y, z}]
	return v.Color, ok
}

func (g *VoxelGrid) MaterialAt(x, y, z int) (Material, bool) {
	v, ok := g.voxels[Coord{x, y, z}]
	return v.Material, ok
}

func (g *VoxelGrid) Occupied(x, y, z int) bool {
	_, ok := g.voxels[Coord{x, y, z}]
	return ok
}

// Coords returns all occupied coordinates in x, y, z order.
func (g *VoxelGrid) Coords() []Coord {
	out := make([]Coord, 0, len(g.voxels))
	for c := range g.voxels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	return out
}

// Each visits voxels in unspecified order until fn returns false.
func (g *VoxelGrid) Each(fn func(Coord, Voxel) bool) {
	for c, v := range g.voxels {
		if !fn(c, v) {
			return
		}
	}
}

// OccupiedExtent returns the world-space interval covered by occupied cells
// along axis.
func (g *VoxelGrid) OccupiedExtent(axis Axis) Extent {
	if len(g.voxels) == 0 {
		return Extent{Empty: true}
	}
	lo, hi := g.dimension, -1
	for c := range g.voxels {
		if c[axis] < lo {
			lo = c[axis]
		}
		if c[axis] > hi {
			hi = c[axis]
		}
	}
	return Extent{
		Min: g.LayerPosition(axis, lo),
		Max: g.LayerPosition(axis, hi+1),
	}
}
