package volume

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFillBoxClipsToGrid(t *testing.T) {
	g := NewVoxelGrid(4, 0)
	n := FillBox(g, Coord{2, 2, 2}, Coord{5, 5, 5}, mgl32.Vec3{1, 1, 1}, MaterialDiffuse)
	if n != 8 || g.Len() != 8 {
		t.Fatalf("expected the 2x2x2 in-range corner, wrote %d, grid has %d", n, g.Len())
	}
	if !g.Occupied(3, 3, 3) || g.Occupied(1, 2, 2) {
		t.Error("box bounds are inclusive and must not spill")
	}
}

func TestFillSphereIsSymmetric(t *testing.T) {
	g := NewVoxelGrid(8, 0)
	FillSphere(g, mgl32.Vec3{4, 4, 4}, 2.5, mgl32.Vec3{0, 1, 0}, MaterialMirror)
	for _, c := range []Coord{{4, 4, 4}, {3, 3, 3}, {5, 4, 4}, {2, 4, 4}} {
		if !g.Occupied(c[0], c[1], c[2]) {
			t.Errorf("cell %v should be inside the sphere", c)
		}
	}
	if g.Occupied(0, 0, 0) || g.Occupied(7, 7, 7) {
		t.Error("corners are outside the sphere")
	}
	if !g.Occupied(5, 4, 4) || !g.Occupied(2, 4, 4) {
		t.Error("sphere should be symmetric around its centre")
	}
}

func TestFillConeNarrowsToTip(t *testing.T) {
	g := NewVoxelGrid(8, 0)
	n := FillCone(g, mgl32.Vec3{4, 0, 4}, mgl32.Vec3{4, 8, 4}, 3, mgl32.Vec3{1, 0, 0}, MaterialDiffuse)
	if n == 0 {
		t.Fatal("cone wrote nothing")
	}
	if !g.Occupied(5, 0, 4) {
		t.Error("base ring should be filled")
	}
	if g.Occupied(5, 7, 5) {
		t.Error("tip should be narrow")
	}
	if FillCone(g, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, 2, mgl32.Vec3{}, MaterialDiffuse) != 0 {
		t.Error("degenerate cone must be a no-op")
	}
}
