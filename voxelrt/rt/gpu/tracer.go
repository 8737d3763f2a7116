package gpu

import (
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/core"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// traceScene is the read-only data one tracer frame shades against.
type traceScene struct {
	tex        *volume.VolumeTextures
	origin     mgl32.Vec3
	cell       float32
	dim        int
	sun        core.Sun
	background mgl32.Vec3
	ambient    float32
	maxBounces int
}

type traceHit struct {
	t      float32
	cell   volume.Coord
	normal mgl32.Vec3
}

// CornerRays unprojects the four viewport corners through the jittered inverse
// view-projection matrix and returns them relative to eye, ordered
// (-1,-1), (-1,+1), (+1,-1), (+1,+1) in clip space.
func CornerRays(viewProj mgl32.Mat4, eye, jitter mgl32.Vec3) [4]mgl32.Vec3 {
	inv := viewProj.Mul4(mgl32.Translate3D(jitter[0], jitter[1], jitter[2])).Inv()
	corners := [4]mgl32.Vec2{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	var rays [4]mgl32.Vec3
	for i, c := range corners {
		p := inv.Mul4x1(mgl32.Vec4{c[0], c[1], 0, 1})
		rays[i] = p.Vec3().Mul(1 / p[3]).Sub(eye)
	}
	return rays
}

// HistoryWeight is the share of the accumulated image kept when blending in
// sample n. The first warmup samples replace history outright.
func HistoryWeight(n, warmup int) float32 {
	if n < 0 {
		n = 0
	}
	return float32(max(n-warmup, 0)) / float32(n+1)
}

// JitterScale is the magnitude of the per-frame sub-pixel offset for sample n.
func (c Config) JitterScale(n int) float32 {
	return 1 / (c.JitterBase + c.JitterFalloff*float32(max(n, 0)))
}

// traceUniforms plans progressive sample n: jittered corner rays, history
// weight and the lighting the shader reads.
func (r *Renderer) traceUniforms(s *Snapshot, samples int) TraceUniforms {
	grid := s.Scene.Grid
	sun := s.Scene.Sun

	r.seed++
	rng := rand.New(rand.NewPCG(r.seed, uint64(samples)))
	jitter := mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, 0}.Mul(r.cfg.JitterScale(samples))
	rays := CornerRays(s.ViewProjection, s.Eye, jitter)

	u := TraceUniforms{
		Eye:        vec4(s.Eye, HistoryWeight(samples, r.cfg.Warmup)),
		GridOrigin: vec4(grid.Origin(), grid.CellSize()),
		SunCorner:  vec4(sun.Corner(), sun.Size),
		SunColor:   vec4(sun.Color, sun.Strength),
		Background: vec4(s.Scene.Background, s.Scene.Ambient),
		Params:     [4]uint32{uint32(grid.Dimension()), uint32(max(r.cfg.MaxBounces, 0)), uint32(r.seed), uint32(samples)},
		Viewport:   [4]float32{float32(s.Width), float32(s.Height), 0, 0},
	}
	for i, ray := range rays {
		u.Rays[i] = vec4(ray, 0)
	}
	return u
}

// newTraceScene unpacks the uniform block for the CPU tracer.
func newTraceScene(u *TraceUniforms, tex *volume.VolumeTextures) *traceScene {
	size := u.SunCorner[3]
	corner := mgl32.Vec3{u.SunCorner[0], u.SunCorner[1], u.SunCorner[2]}
	return &traceScene{
		tex:    tex,
		origin: mgl32.Vec3{u.GridOrigin[0], u.GridOrigin[1], u.GridOrigin[2]},
		cell:   u.GridOrigin[3],
		dim:    int(u.Params[0]),
		sun: core.Sun{
			Center:   corner.Add(mgl32.Vec3{size, size, size}.Mul(0.5)),
			Color:    mgl32.Vec3{u.SunColor[0], u.SunColor[1], u.SunColor[2]},
			Size:     size,
			Strength: u.SunColor[3],
		},
		background: mgl32.Vec3{u.Background[0], u.Background[1], u.Background[2]},
		ambient:    u.Background[3],
		maxBounces: int(u.Params[1]),
	}
}

// traceCPU renders one progressive sample into back, blending with front.
// Row bands run concurrently, each with its own generator.
func traceCPU(u *TraceUniforms, tex *volume.VolumeTextures, front, back *RenderTarget, workers int) {
	scene := newTraceScene(u, tex)
	var rays [4]mgl32.Vec3
	for i := range rays {
		rays[i] = mgl32.Vec3{u.Rays[i][0], u.Rays[i][1], u.Rays[i][2]}
	}
	eye := mgl32.Vec3{u.Eye[0], u.Eye[1], u.Eye[2]}
	weight := u.Weight()
	w, h := back.Width, back.Height

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	band := max((h+workers*4-1)/(workers*4), 1)
	seed := uint64(u.Params[2])

	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < h; y0 += band {
		y1 := min(y0+band, h)
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, uint64(y0)))
			for y := y0; y < y1; y++ {
				fy := 1 - (float32(y)+0.5)/float32(h)
				left := lerp3(rays[0], rays[1], fy)
				right := lerp3(rays[2], rays[3], fy)
				for x := 0; x < w; x++ {
					fx := (float32(x) + 0.5) / float32(w)
					dir := lerp3(left, right, fx)
					sample := scene.radiance(eye, dir, rng)
					prev := front.At(x, y)
					back.Set(x, y, lerp3(sample, prev, weight))
				}
			}
			return nil
		})
	}
	g.Wait()
}

// radiance follows a camera ray through up to maxBounces mirror reflections.
// Diffuse hits are lit by ambient plus a shadowed term towards a random point
// on the sun, so soft shadows converge over frames.
func (s *traceScene) radiance(o, d mgl32.Vec3, rng *rand.Rand) mgl32.Vec3 {
	throughput := mgl32.Vec3{1, 1, 1}
	eps := s.cell * 1e-3
	for bounce := 0; ; bounce++ {
		h, hit := s.march(o, d, math.MaxFloat32)
		if st, ok := s.hitSun(o, d); ok && (!hit || st < h.t) {
			return mul3(throughput, s.sun.Color)
		}
		if !hit {
			return mul3(throughput, s.background)
		}
		col, mat, _ := s.tex.Lookup(h.cell[0], h.cell[1], h.cell[2])
		p := o.Add(d.Mul(h.t))
		if mat == volume.MaterialMirror && bounce < s.maxBounces {
			throughput = mul3(throughput, col)
			d = reflect(d, h.normal)
			o = p.Add(h.normal.Mul(eps))
			continue
		}

		target := s.sun.Corner().Add(mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}.Mul(s.sun.Size))
		l := target.Sub(p)
		dist := l.Len()
		lambert := float32(0)
		if dist > 0 {
			l = l.Mul(1 / dist)
			lambert = h.normal.Dot(l)
			if lambert > 0 {
				if _, blocked := s.march(p.Add(h.normal.Mul(eps)), l, dist); blocked {
					lambert = 0
				}
			} else {
				lambert = 0
			}
		}
		lit := col.Mul(s.ambient).Add(mul3(col, s.sun.Color).Mul(s.sun.Strength * lambert))
		return mul3(throughput, lit)
	}
}

// march walks the grid cells along o + t*d with a 3D DDA and returns the first
// occupied cell with t <= maxT.
func (s *traceScene) march(o, d mgl32.Vec3, maxT float32) (traceHit, bool) {
	inv := 1 / s.cell
	gp := o.Sub(s.origin).Mul(inv)
	gd := d.Mul(inv)
	n := float32(s.dim)

	tEnter, tExit, entryAxis, ok := slab(gp, gd, mgl32.Vec3{}, mgl32.Vec3{n, n, n})
	if !ok || tEnter > maxT {
		return traceHit{}, false
	}
	tExit = float32(math.Min(float64(tExit), float64(maxT)))

	start := gp.Add(gd.Mul(tEnter))
	var cell volume.Coord
	var step [3]int
	var tNext, tDelta [3]float32
	for i := 0; i < 3; i++ {
		cell[i] = clampi(int(math.Floor(float64(start[i]))), 0, s.dim-1)
		switch {
		case gd[i] > 0:
			step[i] = 1
			tDelta[i] = 1 / gd[i]
			tNext[i] = (float32(cell[i]+1) - gp[i]) / gd[i]
		case gd[i] < 0:
			step[i] = -1
			tDelta[i] = -1 / gd[i]
			tNext[i] = (float32(cell[i]) - gp[i]) / gd[i]
		default:
			tDelta[i] = math.MaxFloat32
			tNext[i] = math.MaxFloat32
		}
	}

	var normal mgl32.Vec3
	if entryAxis >= 0 {
		normal[entryAxis] = -float32(step[entryAxis])
	}
	t := tEnter
	for {
		if s.tex.Occupied(cell[0], cell[1], cell[2]) {
			if normal.Len() == 0 {
				// ray started inside an occupied cell
				normal = d.Mul(-1).Normalize()
			}
			return traceHit{t: t, cell: cell, normal: normal}, true
		}
		axis := 0
		if tNext[1] < tNext[axis] {
			axis = 1
		}
		if tNext[2] < tNext[axis] {
			axis = 2
		}
		t = tNext[axis]
		if t > tExit {
			return traceHit{}, false
		}
		cell[axis] += step[axis]
		if cell[axis] < 0 || cell[axis] >= s.dim {
			return traceHit{}, false
		}
		tNext[axis] += tDelta[axis]
		normal = mgl32.Vec3{}
		normal[axis] = -float32(step[axis])
	}
}

func (s *traceScene) hitSun(o, d mgl32.Vec3) (float32, bool) {
	lo := s.sun.Corner()
	hi := lo.Add(mgl32.Vec3{s.sun.Size, s.sun.Size, s.sun.Size})
	t, _, _, ok := slab(o, d, lo, hi)
	return t, ok
}

// slab intersects the ray with an axis-aligned box, clamping the entry to
// t >= 0. entryAxis is -1 when the origin is already inside.
func slab(o, d, lo, hi mgl32.Vec3) (tEnter, tExit float32, entryAxis int, ok bool) {
	tEnter, tExit, entryAxis = 0, math.MaxFloat32, -1
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, 0, -1, false
			}
			continue
		}
		t0 := (lo[i] - o[i]) / d[i]
		t1 := (hi[i] - o[i]) / d[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tEnter {
			tEnter = t0
			entryAxis = i
		}
		if t1 < tExit {
			tExit = t1
		}
		if tEnter > tExit {
			return 0, 0, -1, false
		}
	}
	return tEnter, tExit, entryAxis, true
}

func reflect(d, n mgl32.Vec3) mgl32.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

func mul3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func lerp3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
