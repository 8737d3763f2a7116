package volume

import (
	"github.com/go-gl/mathgl/mgl32"
)

// VolumeTextures packs the whole grid into two 2D lookup textures for the
// tracer. Texel (x, y + z*Dimension) holds cell (x, y, z); the colour space is
// RGBA8 with alpha 255 on occupied cells, the material space stores material+1
// with 0 meaning empty.
type VolumeTextures struct {
	Dimension     int
	Width         int
	Height        int
	ColorSpace    []uint8
	MaterialSpace []uint8
}

func (g *VoxelGrid) RebuildVolumeTextures() *VolumeTextures {
	n := g.dimension
	t := &VolumeTextures{
		Dimension:     n,
		Width:         n,
		Height:        n * n,
		ColorSpace:    make([]uint8, 4*n*n*n),
		MaterialSpace: make([]uint8, n*n*n),
	}
	for c, v := range g.voxels {
		i := t.index(c[0], c[1], c[2])
		t.ColorSpace[4*i+0] = quantize(v.Color[0])
		t.ColorSpace[4*i+1] = quantize(v.Color[1])
		t.ColorSpace[4*i+2] = quantize(v.Color[2])
		t.ColorSpace[4*i+3] = 255
		t.MaterialSpace[i] = uint8(v.Material) + 1
	}
	return t
}

func (t *VolumeTextures) index(x, y, z int) int {
	return x + (y+z*t.Dimension)*t.Width
}

// Occupied reports whether the cell holds a voxel. Out-of-range cells are empty.
func (t *VolumeTextures) Occupied(x, y, z int) bool {
	n := t.Dimension
	if x < 0 || y < 0 || z < 0 || x >= n || y >= n || z >= n {
		return false
	}
	return t.MaterialSpace[t.index(x, y, z)] != 0
}

// Lookup samples both textures at a cell.
func (t *VolumeTextures) Lookup(x, y, z int) (mgl32.Vec3, Material, bool) {
	if !t.Occupied(x, y, z) {
		return mgl32.Vec3{}, 0, false
	}
	i := t.index(x, y, z)
	c := mgl32.Vec3{
		float32(t.ColorSpace[4*i+0]) / 255,
		float32(t.ColorSpace[4*i+1]) / 255,
		float32(t.ColorSpace[4*i+2]) / 255,
	}
	return c, Material(t.MaterialSpace[i] - 1), true
}

func (t *VolumeTextures) Bytes() int {
	if t == nil {
		return 0
	}
	return len(t.ColorSpace) + len(t.MaterialSpace)
}

func quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
