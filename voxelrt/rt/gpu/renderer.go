package gpu

import (
	"fmt"
	"image"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// Path is the render path selected for a frame.
type Path int

const (
	PathNone Path = iota
	PathEditor
	PathPreview
	PathTrace
)

func (p Path) String() string {
	switch p {
	case PathEditor:
		return "editor"
	case PathPreview:
		return "preview"
	case PathTrace:
		return "trace"
	}
	return "none"
}

// Snapshot is everything the renderer reads for one frame. It is built by the
// session after input and camera updates so a frame never observes a
// half-applied edit.
type Snapshot struct {
	Scene          *core.Scene
	Mode           core.Mode
	ViewProjection mgl32.Mat4
	Eye            mgl32.Vec3
	Brush          core.Brush
	RayTrace       bool
	SampleCount    int
	SunHovered     bool
	// Transitioning is set while the camera blends between modes.
	Transitioning bool
	Width         int
	Height        int
	HUD           []string
}

type FrameResult struct {
	Path    Path
	Skipped bool
	// Resized is set when the render targets were recreated this frame;
	// accumulated history is gone and the caller should reset its sample count.
	Resized bool
	// Traced is set when a progressive sample was accumulated.
	Traced bool
	Weight float32
}

// Renderer plans frames from snapshots and hands them to a backend. The editor
// and preview paths are raster batches; the trace path is a uniform block over
// the volume textures, accumulated by the backend into ping-pong targets.
type Renderer struct {
	cfg     Config
	log     Logger
	cache   *ResourceCache
	backend Backend
	hud     *HUD
	seed    uint64

	width, height int
}

// NewRenderer starts on the software backend; SetBackend moves it to a device.
func NewRenderer(cfg Config, log Logger) *Renderer {
	if log == nil {
		log = nopLogger{}
	}
	return &Renderer{
		cfg:     cfg,
		log:     log,
		cache:   NewResourceCache(log),
		backend: NewSoftware(cfg, log),
		hud:     NewHUD(),
	}
}

func (r *Renderer) Config() Config        { return r.cfg }
func (r *Renderer) Cache() *ResourceCache { return r.cache }
func (r *Renderer) Backend() Backend      { return r.backend }

// SetBackend switches backends. The targets are recreated on the next frame.
// The caller owns both backends and releases them.
func (r *Renderer) SetBackend(b Backend) {
	if b == nil {
		b = NewSoftware(r.cfg, r.log)
	}
	r.backend = b
	r.width, r.height = 0, 0
	r.log.Debugf("render backend %T", b)
}

// SelectPath picks the path for a frame. Transitions draw the preview so the
// tracer never accumulates a moving camera.
func SelectPath(mode core.Mode, rayTrace, transitioning bool) Path {
	switch {
	case mode.IsEditor():
		return PathEditor
	case transitioning:
		return PathPreview
	case rayTrace:
		return PathTrace
	default:
		return PathPreview
	}
}

// Render plans and draws one frame. A zero-sized viewport or a missing scene
// skips the frame without touching the targets.
func (r *Renderer) Render(s Snapshot) (FrameResult, error) {
	if s.Width <= 0 || s.Height <= 0 || s.Scene == nil || s.Scene.Grid == nil {
		return FrameResult{Skipped: true}, nil
	}
	var res FrameResult
	if s.Width != r.width || s.Height != r.height {
		if err := r.backend.Resize(s.Width, s.Height); err != nil {
			r.width, r.height = 0, 0
			return FrameResult{Skipped: true}, fmt.Errorf("resize render targets to %dx%d: %w", s.Width, s.Height, err)
		}
		r.width, r.height = s.Width, s.Height
		res.Resized = true
	}
	res.Path = SelectPath(s.Mode, s.RayTrace, s.Transitioning)

	f := &Frame{
		Path:           res.Path,
		Width:          s.Width,
		Height:         s.Height,
		Background:     s.Scene.Background,
		ViewProjection: s.ViewProjection,
	}
	switch res.Path {
	case PathEditor:
		f.Batches = r.editorBatches(&s)
	case PathPreview:
		f.Batches = r.previewBatches(&s)
	case PathTrace:
		samples := s.SampleCount
		if res.Resized {
			samples = 0
		}
		f.Volume = r.cache.Textures(s.Scene.Grid)
		f.Trace = r.traceUniforms(&s, samples)
		res.Weight = f.Trace.Weight()
	}
	if r.cfg.ShowHUD {
		lines := s.HUD
		if res.Path == PathTrace {
			lines = append(lines[:len(lines):len(lines)], fmt.Sprintf("samples %d", s.SampleCount+1))
		}
		f.HUD = r.hud.Panel(lines, s.Width, s.Height)
	}

	if err := r.backend.Draw(f); err != nil {
		return FrameResult{Path: res.Path, Skipped: true, Resized: res.Resized}, fmt.Errorf("draw %s frame: %w", res.Path, err)
	}
	res.Traced = res.Path == PathTrace
	return res, nil
}

// Capture reads back the last drawn frame.
func (r *Renderer) Capture() (*image.RGBA, error) {
	return r.backend.Capture()
}
