package editor

import (
	"testing"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnprojectCentreRay(t *testing.T) {
	eye := mgl32.Vec3{0, 0, 3}
	view := mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 10)
	inv := proj.Mul4(view).Inv()

	r := Unproject(inv, 50, 50, 100, 100)
	assert.InDelta(t, 2.9, r.Origin.Z(), 1e-3)
	dir := r.Direction.Normalize()
	assert.InDelta(t, -1, dir.Z(), 1e-4)

	p, ok := IntersectAxisPlane(r, volume.AxisZ, 0)
	require.True(t, ok)
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec3{}, 1e-4), "got %v", p)
}

func TestIntersectAxisPlaneParallel(t *testing.T) {
	r := Ray{Origin: mgl32.Vec3{0, 1, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	_, ok := IntersectAxisPlane(r, volume.AxisY, 0)
	assert.False(t, ok)
}

func TestHitCube(t *testing.T) {
	min := mgl32.Vec3{1, 1, 1}
	towards := Ray{Origin: mgl32.Vec3{1.5, 1.5, -2}, Direction: mgl32.Vec3{0, 0, 10}}
	assert.True(t, HitCube(towards, min, 1))

	away := Ray{Origin: mgl32.Vec3{1.5, 1.5, -2}, Direction: mgl32.Vec3{0, 0, -10}}
	assert.False(t, HitCube(away, min, 1), "cube behind the ray origin")

	beside := Ray{Origin: mgl32.Vec3{2.5, 1.5, -2}, Direction: mgl32.Vec3{0, 0, 10}}
	assert.False(t, HitCube(beside, min, 1))
}

func TestCellIndexFloors(t *testing.T) {
	assert.Equal(t, 0, CellIndex(-0.5, -0.5, 0.25))
	assert.Equal(t, 1, CellIndex(-0.2, -0.5, 0.25))
	assert.Equal(t, -1, CellIndex(-0.6, -0.5, 0.25))
}
