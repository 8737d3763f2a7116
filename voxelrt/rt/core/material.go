package core

import (
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
)

// Brush is what the pencil paints and what the eyedropper picks up.
type Brush struct {
	Color    mgl32.Vec3
	Material volume.Material
}

func DefaultBrush() Brush {
	return Brush{
		Color:    mgl32.Vec3{0.85, 0.35, 0.25},
		Material: volume.MaterialDiffuse,
	}
}

// MarkerColor is the outline tint drawn over special-material voxels in the
// editor: the voxel colour pushed 20% toward black when bright, white when dark.
func MarkerColor(c mgl32.Vec3) mgl32.Vec3 {
	target := mgl32.Vec3{1, 1, 1}
	if (c[0]+c[1]+c[2])/3 > 0.5 {
		target = mgl32.Vec3{}
	}
	return c.Add(target.Sub(c).Mul(0.2))
}
