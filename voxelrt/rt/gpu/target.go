package gpu

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// RenderTarget is a linear float RGB image.
type RenderTarget struct {
	Width  int
	Height int
	Pix    []mgl32.Vec3
}

func NewRenderTarget(width, height int) *RenderTarget {
	return &RenderTarget{Width: width, Height: height, Pix: make([]mgl32.Vec3, width*height)}
}

func (t *RenderTarget) At(x, y int) mgl32.Vec3     { return t.Pix[y*t.Width+x] }
func (t *RenderTarget) Set(x, y int, c mgl32.Vec3) { t.Pix[y*t.Width+x] = c }

func (t *RenderTarget) Bytes() int {
	if t == nil {
		return 0
	}
	return len(t.Pix) * 12
}

// CopyTo converts the target to 8-bit RGBA into dst, which must be the same size.
func (t *RenderTarget) CopyTo(dst *image.RGBA) {
	for y := 0; y < t.Height; y++ {
		row := t.Pix[y*t.Width : (y+1)*t.Width]
		for x, c := range row {
			dst.SetRGBA(x, y, toRGBA(c))
		}
	}
}

func toRGBA(c mgl32.Vec3) color.RGBA {
	return color.RGBA{R: unorm(c[0]), G: unorm(c[1]), B: unorm(c[2]), A: 255}
}

func unorm(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// AccumulationTargets is the ping-pong pair used by the progressive tracer.
// Each frame reads history from Front, writes into Back, then swaps.
type AccumulationTargets struct {
	targets [2]*RenderTarget
	front   int
}

// Resize recreates both targets when the size changes and reports whether it
// did. Zero sizes release them.
func (a *AccumulationTargets) Resize(width, height int) bool {
	if width <= 0 || height <= 0 {
		changed := a.targets[0] != nil
		a.targets = [2]*RenderTarget{}
		return changed
	}
	if t := a.targets[0]; t != nil && t.Width == width && t.Height == height {
		return false
	}
	a.targets[0] = NewRenderTarget(width, height)
	a.targets[1] = NewRenderTarget(width, height)
	a.front = 0
	return true
}

func (a *AccumulationTargets) Valid() bool          { return a.targets[0] != nil && a.targets[1] != nil }
func (a *AccumulationTargets) Front() *RenderTarget { return a.targets[a.front] }
func (a *AccumulationTargets) Back() *RenderTarget  { return a.targets[1-a.front] }
func (a *AccumulationTargets) Swap()                { a.front = 1 - a.front }

func (a *AccumulationTargets) Bytes() int {
	return a.targets[0].Bytes() + a.targets[1].Bytes()
}
