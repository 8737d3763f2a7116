package gpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Framebuffer is the colour and depth attachment of the software raster paths.
// Depth is NDC z in [-1, 1]; smaller is closer.
type Framebuffer struct {
	Width  int
	Height int
	Color  *RenderTarget
	Depth  []float32
}

func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Color:  NewRenderTarget(width, height),
		Depth:  make([]float32, width*height),
	}
}

func (f *Framebuffer) Clear(c mgl32.Vec3) {
	for i := range f.Color.Pix {
		f.Color.Pix[i] = c
		f.Depth[i] = math.MaxFloat32
	}
}

// DrawBatch executes one planned batch with the view-projection vp.
func (f *Framebuffer) DrawBatch(vp mgl32.Mat4, b *Batch) {
	if len(b.Instances) > 0 {
		for _, inst := range b.Instances {
			mvp := vp.Mul4(inst.Model)
			col := mgl32.Vec3{inst.Color[0], inst.Color[1], inst.Color[2]}
			for i := 0; i+3 <= len(unitCubeVertices); i += 3 {
				f.triangle(mvp, unitCubeVertices[i], unitCubeVertices[i+1], unitCubeVertices[i+2], col, b.DepthTest)
			}
		}
		return
	}
	v := b.Vertices
	switch b.Topology {
	case TopologyTriangles:
		for i := 0; i+3 <= len(v); i += 3 {
			f.triangle(vp, v[i].Pos, v[i+1].Pos, v[i+2].Pos, colorOf(v[i]), b.DepthTest)
		}
	case TopologyLines:
		for i := 0; i+2 <= len(v); i += 2 {
			f.Line(vp, v[i].Pos, v[i+1].Pos, colorOf(v[i]), b.DepthTest)
		}
	}
}

func colorOf(v Vertex) mgl32.Vec3 { return mgl32.Vec3{v.Color[0], v.Color[1], v.Color[2]} }

type screenVertex struct {
	x, y, z float32
}

// clipNear keeps the part of the polygon in front of the near plane, z >= -w.
func clipNear(in []mgl32.Vec4, out []mgl32.Vec4) []mgl32.Vec4 {
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := a[2]+a[3], b[2]+b[3]
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			out = append(out, a.Add(b.Sub(a).Mul(t)))
		}
	}
	return out
}

// toScreen maps a clip-space point in front of the near plane to window
// coordinates.
func (f *Framebuffer) toScreen(clip mgl32.Vec4) (screenVertex, bool) {
	if clip[3] <= 1e-6 {
		return screenVertex{}, false
	}
	inv := 1 / clip[3]
	return screenVertex{
		x: (clip[0]*inv + 1) * 0.5 * float32(f.Width),
		y: (1 - clip[1]*inv) * 0.5 * float32(f.Height),
		z: clip[2] * inv,
	}, true
}

// Triangle fills a flat-coloured triangle with depth testing. Both windings
// are drawn. Triangles crossing the near plane are clipped to it.
func (f *Framebuffer) Triangle(mvp mgl32.Mat4, a, b, c mgl32.Vec3, col mgl32.Vec3) {
	f.triangle(mvp, a, b, c, col, true)
}

func (f *Framebuffer) triangle(mvp mgl32.Mat4, a, b, c mgl32.Vec3, col mgl32.Vec3, depthTest bool) {
	in := [3]mgl32.Vec4{mvp.Mul4x1(a.Vec4(1)), mvp.Mul4x1(b.Vec4(1)), mvp.Mul4x1(c.Vec4(1))}
	var buf [4]mgl32.Vec4
	poly := clipNear(in[:], buf[:0])
	if len(poly) < 3 {
		return
	}
	var sv [4]screenVertex
	for i, p := range poly {
		v, ok := f.toScreen(p)
		if !ok {
			return
		}
		sv[i] = v
	}
	for i := 1; i+1 < len(poly); i++ {
		f.fill(sv[0], sv[i], sv[i+1], col, depthTest)
	}
}

func (f *Framebuffer) fill(va, vb, vc screenVertex, col mgl32.Vec3, depthTest bool) {
	area := edge(va, vb, vc.x, vc.y)
	if area == 0 {
		return
	}
	minX := clampi(int(math.Floor(float64(min3(va.x, vb.x, vc.x)))), 0, f.Width-1)
	maxX := clampi(int(math.Ceil(float64(max3(va.x, vb.x, vc.x)))), 0, f.Width-1)
	minY := clampi(int(math.Floor(float64(min3(va.y, vb.y, vc.y)))), 0, f.Height-1)
	maxY := clampi(int(math.Ceil(float64(max3(va.y, vb.y, vc.y)))), 0, f.Height-1)

	inv := 1 / area
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(vb, vc, px, py) * inv
			w1 := edge(vc, va, px, py) * inv
			w2 := edge(va, vb, px, py) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*va.z + w1*vb.z + w2*vc.z
			if z < -1 || z > 1 {
				continue
			}
			i := y*f.Width + x
			if depthTest {
				if z >= f.Depth[i] {
					continue
				}
				f.Depth[i] = z
			}
			f.Color.Pix[i] = col
		}
	}
}

// Line draws a one pixel wide segment, clipped to the near plane. Without
// depthTest it is drawn over everything.
func (f *Framebuffer) Line(mvp mgl32.Mat4, a, b mgl32.Vec3, col mgl32.Vec3, depthTest bool) {
	ca, cb := mvp.Mul4x1(a.Vec4(1)), mvp.Mul4x1(b.Vec4(1))
	da, db := ca[2]+ca[3], cb[2]+cb[3]
	switch {
	case da < 0 && db < 0:
		return
	case da < 0:
		ca = ca.Add(cb.Sub(ca).Mul(da / (da - db)))
	case db < 0:
		cb = cb.Add(ca.Sub(cb).Mul(db / (db - da)))
	}
	va, ok1 := f.toScreen(ca)
	vb, ok2 := f.toScreen(cb)
	if !ok1 || !ok2 {
		return
	}
	dx, dy := vb.x-va.x, vb.y-va.y
	steps := int(math.Ceil(math.Max(math.Abs(float64(dx)), math.Abs(float64(dy)))))
	if steps == 0 {
		steps = 1
	}
	for s := 0; s <= steps; s++ {
		t := float32(s) / float32(steps)
		x := int(va.x + dx*t)
		y := int(va.y + dy*t)
		if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
			continue
		}
		i := y*f.Width + x
		if depthTest {
			z := va.z + (vb.z-va.z)*t
			// small bias so edges lying on a face win
			if z-1e-4 >= f.Depth[i] {
				continue
			}
			f.Depth[i] = z
		}
		f.Color.Pix[i] = col
	}
}

func edge(a, b screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func min3(a, b, c float32) float32 { return float32(math.Min(float64(a), math.Min(float64(b), float64(c)))) }
func max3(a, b, c float32) float32 { return float32(math.Max(float64(a), math.Max(float64(b), float64(c)))) }

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
