package core

import (
	"math"
	"time"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
)

type Mode int

const (
	ModeViewer Mode = iota
	ModeEditorX
	ModeEditorY
	ModeEditorZ
)

func EditorMode(axis volume.Axis) Mode {
	return ModeEditorX + Mode(axis)
}

func (m Mode) IsEditor() bool {
	return m != ModeViewer
}

// Axis is only meaningful for editor modes.
func (m Mode) Axis() volume.Axis {
	if m == ModeViewer {
		return volume.AxisY
	}
	return volume.Axis(m - ModeEditorX)
}

func (m Mode) String() string {
	if m == ModeViewer {
		return "viewer"
	}
	return "editor-" + m.Axis().String()
}

// CameraState adds the transient phases to Mode.
type CameraState int

const (
	StateViewer CameraState = iota
	StateEditorX
	StateEditorY
	StateEditorZ
	StateTransitioningToViewer
	StateTransitioningToEditor
)

type CameraConfig struct {
	FovY           float32 `toml:"fov_y"`
	Near           float32 `toml:"near"`
	Far            float32 `toml:"far"`
	MinRadius      float32 `toml:"min_radius"`
	MaxRadius      float32 `toml:"max_radius"`
	PhiEpsilon     float32 `toml:"phi_epsilon"`
	EditorDistance float32 `toml:"editor_distance"`
	EditorZoom     float32 `toml:"editor_zoom"`
	EditorMinZoom  float32 `toml:"editor_min_zoom"`
	EditorMaxZoom  float32 `toml:"editor_max_zoom"`
	// Set from the "transition" duration string of the config file.
	TransitionDuration time.Duration `toml:"-"`
}

func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		FovY:               45,
		Near:               0.01,
		Far:                100,
		MinRadius:          0.2,
		MaxRadius:          10,
		PhiEpsilon:         0.01,
		EditorDistance:     2,
		EditorZoom:         0.6,
		EditorMinZoom:      0.02,
		EditorMaxZoom:      4,
		TransitionDuration: time.Second,
	}
}

// ViewerParams is the orbiting camera: eye = Ref + Radius*(sinφ cosθ, cosφ, sinφ sinθ).
type ViewerParams struct {
	Theta  float32
	Phi    float32
	Radius float32
	Ref    mgl32.Vec3
}

type pose struct {
	eye    mgl32.Vec3
	target mgl32.Vec3
	up     mgl32.Vec3
	proj   mgl32.Mat4
}

// Camera holds both projections and blends between them while a transition is
// running. Matrices are recomputed by Update once per frame.
type Camera struct {
	cfg CameraConfig

	mode   Mode
	viewer ViewerParams
	// editorRef[a] is the look-at point of the editor camera for axis a; its
	// a-component is the layer offset, the others are the pan centre.
	editorRef  [3]mgl32.Vec3
	editorZoom [3]float32

	transitioning bool
	progress      float32
	from          pose
	current       pose

	aspect      float32
	view        mgl32.Mat4
	proj        mgl32.Mat4
	viewProj    mgl32.Mat4
	invViewProj mgl32.Mat4
}

func NewCamera(cfg CameraConfig) *Camera {
	c := &Camera{
		cfg:  cfg,
		mode: ModeViewer,
		viewer: ViewerParams{
			Theta:  math.Pi / 4,
			Phi:    math.Pi / 3,
			Radius: 2,
		},
		aspect: 1,
	}
	for i := range c.editorZoom {
		c.editorZoom[i] = cfg.EditorZoom
	}
	c.current = c.destination()
	c.Update(1, 1)
	return c
}

func (c *Camera) Config() CameraConfig { return c.cfg }
func (c *Camera) Mode() Mode           { return c.mode }
func (c *Camera) Transitioning() bool  { return c.transitioning }
func (c *Camera) Progress() float32 {
	if !c.transitioning {
		return 1
	}
	return c.progress
}

func (c *Camera) State() CameraState {
	if c.transitioning {
		if c.mode == ModeViewer {
			return StateTransitioningToViewer
		}
		return StateTransitioningToEditor
	}
	return CameraState(c.mode)
}

func (c *Camera) Viewer() ViewerParams { return c.viewer }

// SetViewer restores saved orbit parameters as they are. Only Zoom and
// RotatePhi clamp; the pose keeps the eye off the poles regardless.
func (c *Camera) SetViewer(p ViewerParams) {
	c.viewer = p
}

func (c *Camera) SetViewerRef(ref mgl32.Vec3) {
	c.viewer.Ref = ref
}

func (c *Camera) EditorRef(axis volume.Axis) mgl32.Vec3 { return c.editorRef[axis] }
func (c *Camera) EditorZoom(axis volume.Axis) float32   { return c.editorZoom[axis] }

// SetEditorRef sets the layer offset of the editor camera for axis.
func (c *Camera) SetEditorRef(axis volume.Axis, value float32) {
	c.editorRef[axis][axis] = value
}

func (c *Camera) SetEditorRefX(v float32) { c.SetEditorRef(volume.AxisX, v) }
func (c *Camera) SetEditorRefY(v float32) { c.SetEditorRef(volume.AxisY, v) }
func (c *Camera) SetEditorRefZ(v float32) { c.SetEditorRef(volume.AxisZ, v) }

func (c *Camera) RotateTheta(delta float32) {
	if c.mode != ModeViewer {
		return
	}
	c.viewer.Theta += delta
}

func (c *Camera) RotatePhi(delta float32) {
	if c.mode != ModeViewer {
		return
	}
	c.viewer.Phi = clamp(c.viewer.Phi+delta, c.cfg.PhiEpsilon, math.Pi-c.cfg.PhiEpsilon)
}

// Zoom moves the viewer eye along its radius. Positive delta moves closer.
func (c *Camera) Zoom(delta float32) {
	if c.mode != ModeViewer {
		return
	}
	c.viewer.Radius = clamp(c.viewer.Radius-delta, c.cfg.MinRadius, c.cfg.MaxRadius)
}

// EditorZoomTowards scales the orthographic extent by (1-delta) while keeping
// worldPoint fixed on screen. Positive delta zooms in.
func (c *Camera) EditorZoomTowards(worldPoint mgl32.Vec3, delta float32) {
	if !c.mode.IsEditor() {
		return
	}
	axis := c.mode.Axis()
	old := c.editorZoom[axis]
	next := clamp(old*(1-delta), c.cfg.EditorMinZoom, c.cfg.EditorMaxZoom)
	k := next / old
	ref := c.editorRef[axis]
	for i := 0; i < 3; i++ {
		if volume.Axis(i) == axis {
			continue
		}
		ref[i] = worldPoint[i] + (ref[i]-worldPoint[i])*k
	}
	c.editorRef[axis] = ref
	c.editorZoom[axis] = next
}

// BeginTransitionToEditor enters editor mode for axis. Switching axes while
// already in an editor mode is immediate.
func (c *Camera) BeginTransitionToEditor(axis volume.Axis) {
	if c.mode.IsEditor() {
		c.mode = EditorMode(axis)
		c.transitioning = false
		c.current = c.destination()
		return
	}
	c.mode = EditorMode(axis)
	c.BeginTransition()
}

func (c *Camera) BeginTransitionToViewer() {
	if c.mode == ModeViewer && !c.transitioning {
		return
	}
	c.mode = ModeViewer
	c.BeginTransition()
}

// BeginTransition restarts the blend from the current pose to the current
// destination. Used for mode changes and for sliding between editor layers.
func (c *Camera) BeginTransition() {
	c.from = c.current
	c.progress = 0
	c.transitioning = true
}

// AdvanceTransition moves the blend forward by dt and reports whether a
// transition was running. Reaching the end commits the destination state.
func (c *Camera) AdvanceTransition(dt time.Duration) bool {
	if !c.transitioning {
		return false
	}
	if c.cfg.TransitionDuration <= 0 {
		c.progress = 1
	} else {
		c.progress += float32(dt.Seconds() / c.cfg.TransitionDuration.Seconds())
	}
	if c.progress >= 1 {
		c.progress = 1
		c.transitioning = false
	}
	return true
}

// Update recomputes the view, projection and inverse view-projection matrices
// for the given viewport.
func (c *Camera) Update(width, height int) {
	if width > 0 && height > 0 {
		c.aspect = float32(width) / float32(height)
	}
	dest := c.destination()
	if c.transitioning {
		c.current = blend(c.from, dest, ease(c.progress))
	} else {
		c.current = dest
	}
	c.view = mgl32.LookAtV(c.current.eye, c.current.target, c.current.up)
	c.proj = c.current.proj
	c.viewProj = c.proj.Mul4(c.view)
	c.invViewProj = c.viewProj.Inv()
}

func (c *Camera) View() mgl32.Mat4              { return c.view }
func (c *Camera) Projection() mgl32.Mat4        { return c.proj }
func (c *Camera) ViewProjection() mgl32.Mat4    { return c.viewProj }
func (c *Camera) InvViewProjection() mgl32.Mat4 { return c.invViewProj }
func (c *Camera) Eye() mgl32.Vec3               { return c.current.eye }
func (c *Camera) Target() mgl32.Vec3            { return c.current.target }

// Forward is the unit view direction of the current pose.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.current.target.Sub(c.current.eye).Normalize()
}

func (c *Camera) destination() pose {
	if c.mode == ModeViewer {
		v := c.viewer
		sp, cp := sincos(clamp(v.Phi, c.cfg.PhiEpsilon, math.Pi-c.cfg.PhiEpsilon))
		st, ct := sincos(v.Theta)
		eye := v.Ref.Add(mgl32.Vec3{sp * ct, cp, sp * st}.Mul(v.Radius))
		return pose{
			eye:    eye,
			target: v.Ref,
			up:     mgl32.Vec3{0, 1, 0},
			proj:   mgl32.Perspective(mgl32.DegToRad(c.cfg.FovY), c.aspect, c.cfg.Near, c.cfg.Far),
		}
	}
	axis := c.mode.Axis()
	ref := c.editorRef[axis]
	up := mgl32.Vec3{0, 1, 0}
	if axis == volume.AxisY {
		up = mgl32.Vec3{0, 0, -1}
	}
	h := c.editorZoom[axis]
	w := h * c.aspect
	return pose{
		eye:    ref.Add(axis.Unit().Mul(c.cfg.EditorDistance)),
		target: ref,
		up:     up,
		proj:   mgl32.Ortho(-w, w, -h, h, c.cfg.Near, 2*c.cfg.EditorDistance),
	}
}

func blend(a, b pose, t float32) pose {
	out := pose{
		eye:    lerp3(a.eye, b.eye, t),
		target: lerp3(a.target, b.target, t),
		up:     lerp3(a.up, b.up, t),
	}
	if out.up.Len() < 1e-4 {
		out.up = b.up
	}
	out.up = out.up.Normalize()
	for i := range out.proj {
		out.proj[i] = a.proj[i] + (b.proj[i]-a.proj[i])*t
	}
	return out
}

func ease(t float32) float32 {
	t = clamp(t, 0, 1)
	return t * t * (3 - 2*t)
}

func lerp3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func sincos(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(s), float32(c)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
