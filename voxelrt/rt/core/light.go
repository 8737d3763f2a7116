package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Sun is the scene's single point light, shown as a draggable cube of side Size
// centred on Center.
type Sun struct {
	Center   mgl32.Vec3
	Color    mgl32.Vec3
	Size     float32
	Strength float32
}

// Corner is the minimum corner of the sun cube.
func (s Sun) Corner() mgl32.Vec3 {
	h := s.Size / 2
	return s.Center.Sub(mgl32.Vec3{h, h, h})
}

func (s Sun) Model() mgl32.Mat4 {
	c := s.Corner()
	return mgl32.Translate3D(c[0], c[1], c[2]).Mul4(mgl32.Scale3D(s.Size, s.Size, s.Size))
}
