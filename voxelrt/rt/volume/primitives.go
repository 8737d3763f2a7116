package volume

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FillSphere sets every cell whose centre lies within radius of center, both
// in cell units. Cells outside the grid are skipped. It returns the number of
// cells written.
func FillSphere(g *VoxelGrid, center mgl32.Vec3, radius float32, color mgl32.Vec3, mat Material) int {
	r2 := radius * radius
	lo, hi := g.clampBounds(center.Sub(mgl32.Vec3{radius, radius, radius}), center.Add(mgl32.Vec3{radius, radius, radius}))

	n := 0
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				dx := float32(x) + 0.5 - center.X()
				dy := float32(y) + 0.5 - center.Y()
				dz := float32(z) + 0.5 - center.Z()
				if dx*dx+dy*dy+dz*dz <= r2 && g.Set(x, y, z, color, mat) {
					n++
				}
			}
		}
	}
	return n
}

// FillBox sets every cell in the inclusive box [min, max].
func FillBox(g *VoxelGrid, min, max Coord, color mgl32.Vec3, mat Material) int {
	n := 0
	for x := min[0]; x <= max[0]; x++ {
		for y := min[1]; y <= max[1]; y++ {
			for z := min[2]; z <= max[2]; z++ {
				if g.Set(x, y, z, color, mat) {
					n++
				}
			}
		}
	}
	return n
}

// FillCone sets the cells of a cone from the base circle centre to the tip,
// in cell units.
func FillCone(g *VoxelGrid, base, tip mgl32.Vec3, radius float32, color mgl32.Vec3, mat Material) int {
	heightVec := tip.Sub(base)
	height := heightVec.Len()
	if height < 1e-5 {
		return 0
	}
	axis := heightVec.Normalize()

	reach := float32(math.Max(float64(radius), float64(height)))
	center := base.Add(tip).Mul(0.5)
	lo, hi := g.clampBounds(center.Sub(mgl32.Vec3{reach, reach, reach}), center.Add(mgl32.Vec3{reach, reach, reach}))

	n := 0
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				p := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}
				v := p.Sub(base)
				along := v.Dot(axis)
				if along < 0 || along > height {
					continue
				}
				r := radius * (1 - along/height)
				if v.LenSqr()-along*along <= r*r && g.Set(x, y, z, color, mat) {
					n++
				}
			}
		}
	}
	return n
}

func (g *VoxelGrid) clampBounds(min, max mgl32.Vec3) (lo, hi Coord) {
	last := g.dimension - 1
	for i := 0; i < 3; i++ {
		lo[i] = clampCell(int(math.Floor(float64(min[i]))), last)
		hi[i] = clampCell(int(math.Ceil(float64(max[i]))), last)
	}
	return lo, hi
}

func clampCell(v, last int) int {
	if v < 0 {
		return 0
	}
	if v > last {
		return last
	}
	return v
}
