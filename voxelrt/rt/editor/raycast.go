package editor

import (
	"math"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a segment between the near and far clip planes. Direction is not
// normalized: t in [0, 1] spans the visible depth range.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// ScreenToClip maps a pixel position to normalized device coordinates with y up.
func ScreenToClip(x, y float32, width, height int) (float32, float32) {
	return x/float32(width)*2 - 1, y/float32(height)*-2 + 1
}

// Unproject builds the pick ray for a screen point by transforming the clip
// space points at depth -1 and +1 through the inverse view-projection matrix.
func Unproject(invViewProj mgl32.Mat4, x, y float32, width, height int) Ray {
	cx, cy := ScreenToClip(x, y, width, height)
	start := mgl32.TransformCoordinate(mgl32.Vec3{cx, cy, -1}, invViewProj)
	end := mgl32.TransformCoordinate(mgl32.Vec3{cx, cy, 1}, invViewProj)
	return Ray{Origin: start, Direction: end.Sub(start)}
}

// IntersectAxisPlane intersects the ray with the plane where the axis
// coordinate equals offset. Parallel rays miss.
func IntersectAxisPlane(r Ray, axis volume.Axis, offset float32) (mgl32.Vec3, bool) {
	d := r.Direction[axis]
	if d == 0 {
		return mgl32.Vec3{}, false
	}
	t := (offset - r.Origin[axis]) / d
	return r.At(t), true
}

// IntersectPlane intersects the ray with the plane through point with the
// given normal.
func IntersectPlane(r Ray, point, normal mgl32.Vec3) (mgl32.Vec3, bool) {
	den := normal.Dot(r.Direction)
	if den == 0 {
		return mgl32.Vec3{}, false
	}
	t := normal.Dot(point.Sub(r.Origin)) / den
	return r.At(t), true
}

// HitCube tests the ray against the six faces of the axis-aligned cube with
// minimum corner min and side size. Only hits in front of the ray origin count.
func HitCube(r Ray, min mgl32.Vec3, size float32) bool {
	for i := 0; i < 3; i++ {
		if r.Direction[i] == 0 {
			continue
		}
		d1 := (i + 1) % 3
		d2 := (i + 2) % 3
		for _, face := range [2]float32{min[i], min[i] + size} {
			t := (face - r.Origin[i]) / r.Direction[i]
			if t < 0 {
				continue
			}
			p := r.At(t)
			u := p[d1] - min[d1]
			v := p[d2] - min[d2]
			if u >= 0 && u <= size && v >= 0 && v <= size {
				return true
			}
		}
	}
	return false
}

// CellIndex converts a world coordinate along one axis to a cell index.
func CellIndex(world, origin, cellSize float32) int {
	return int(math.Floor(float64((world - origin) / cellSize)))
}
