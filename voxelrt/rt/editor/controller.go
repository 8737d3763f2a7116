package editor

import (
	"math"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/core"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
)

// Grid is the view of the voxel grid the controller reads and edits.
type Grid interface {
	Dimension() int
	CellSize() float32
	Origin() mgl32.Vec3
	InBounds(x, y, z int) bool
	LayerPosition(axis volume.Axis, index int) float32
	LayerCenter(axis volume.Axis, index int) float32
	OccupiedExtent(axis volume.Axis) volume.Extent

	Set(x, y, z int, color mgl32.Vec3, material volume.Material) bool
	Delete(x, y, z int) bool
	ColorAt(x, y, z int) (mgl32.Vec3, bool)
	MaterialAt(x, y, z int) (volume.Material, bool)
}

// Touch is one active touch point in window pixels.
type Touch struct {
	ID   int
	X, Y float32
}

// Controller turns pointer, wheel, touch and keyboard input into grid edits,
// selection changes and camera commands. It is the only writer of edit intent
// and must be driven from the render thread.
type Controller struct {
	cfg   Config
	grid  Grid
	scene *core.Scene
	cam   *core.Camera
	state *core.State
	log   Logger

	width, height int

	held        bool
	shift       bool
	cursorX     float32
	cursorY     float32
	cursorValid bool

	cell      volume.Coord
	cellValid bool
	acted     bool

	sunDragging bool

	gesture    *Gesture
	prevTouch  Touch
	havePrev   bool
	pending    bool
	pinchDist  float32
	pinchValid bool
}

func NewController(cfg Config, grid Grid, scene *core.Scene, cam *core.Camera, state *core.State, log Logger) *Controller {
	if log == nil {
		log = nopLogger{}
	}
	return &Controller{
		cfg:     cfg,
		grid:    grid,
		scene:   scene,
		cam:     cam,
		state:   state,
		log:     log,
		width:   1,
		height:  1,
		gesture: NewGesture(cfg.PinchThreshold, cfg.ScrollThreshold),
	}
}

func (c *Controller) Config() Config     { return c.cfg }
func (c *Controller) Gesture() *Gesture  { return c.gesture }
func (c *Controller) SunDragging() bool  { return c.sunDragging }
func (c *Controller) Held() bool         { return c.held }
func (c *Controller) ShiftDown() bool    { return c.shift }
func (c *Controller) SetShift(down bool) { c.shift = down }

// SetViewport records the drawable size used to map pixels to clip space.
func (c *Controller) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.width, c.height = width, height
	c.cam.Update(width, height)
}

func (c *Controller) ray(x, y float32) Ray {
	c.cam.Update(c.width, c.height)
	return Unproject(c.cam.InvViewProjection(), x, y, c.width, c.height)
}

// CursorCell returns the grid cell under the screen point on the current
// editor layer.
func (c *Controller) CursorCell(x, y float32) (volume.Coord, bool) {
	p, ok := c.LayerPoint(x, y)
	if !ok {
		return volume.Coord{}, false
	}
	axis := c.state.Axis
	origin := c.grid.Origin()
	size := c.grid.CellSize()
	var cell volume.Coord
	for i := 0; i < 3; i++ {
		cell[i] = CellIndex(p[i], origin[i], size)
	}
	cell[axis] = c.state.CurrentLayer()
	return cell, true
}

// LayerPoint is the world point under the cursor on the plane through the
// centre of the current layer.
func (c *Controller) LayerPoint(x, y float32) (mgl32.Vec3, bool) {
	axis := c.state.Axis
	plane := c.grid.LayerCenter(axis, c.state.CurrentLayer())
	return IntersectAxisPlane(c.ray(x, y), axis, plane)
}

func (c *Controller) PointerDown(x, y float32) {
	if c.press(x, y) {
		c.beginStroke()
	}
}

// press records a pointer going down at (x, y) without applying the tool. It
// reports whether an editor cell is under the pointer.
func (c *Controller) press(x, y float32) bool {
	c.held = true
	c.cursorX, c.cursorY, c.cursorValid = x, y, true
	if c.cam.Mode().IsEditor() {
		cell, ok := c.CursorCell(x, y)
		if !ok {
			return false
		}
		c.enterCell(cell)
		return true
	}
	c.sunDragging = c.hitSun(x, y)
	c.state.SunHovered = c.sunDragging
	return false
}

// beginStroke starts a selection at the current cell and applies the tool.
func (c *Controller) beginStroke() {
	if c.state.Tool == core.ToolSelector {
		u, v := c.clampedPlane(c.cell)
		c.scene.Selection.Begin(u, v)
	}
	c.act()
}

// PointerMove handles a cursor move to (x, y) with movement (dx, dy) in pixels
// since the previous sample.
func (c *Controller) PointerMove(x, y, dx, dy float32) {
	c.cursorX, c.cursorY, c.cursorValid = x, y, true
	if c.cam.Mode().IsEditor() {
		cell, ok := c.CursorCell(x, y)
		if !ok {
			return
		}
		if !c.cellValid || cell != c.cell {
			c.enterCell(cell)
			if c.state.Tool == core.ToolPencil || c.state.Tool == core.ToolEyeDropper {
				c.scene.SetHover(cell)
			}
		}
		if c.held {
			c.act()
		}
		return
	}

	hit := c.hitSun(x, y)
	c.state.SunHovered = hit || c.sunDragging
	if !c.held {
		return
	}
	if hit {
		c.sunDragging = true
	}
	if c.sunDragging {
		c.dragSun(x, y)
	} else {
		c.cam.RotateTheta(dx * c.cfg.MovementSpeed)
		c.cam.RotatePhi(dy * c.cfg.MovementSpeed)
	}
	c.state.Invalidate()
}

func (c *Controller) PointerUp() {
	c.held = false
	c.sunDragging = false
	c.acted = false
}

// Wheel zooms the viewer, or in editor mode scrolls layers. With shift held the
// editor zooms towards the cursor instead.
func (c *Controller) Wheel(x, y, dy float32) {
	c.cursorX, c.cursorY, c.cursorValid = x, y, true
	if !c.cam.Mode().IsEditor() {
		c.cam.Zoom(dy * c.cfg.WheelZoomSpeed)
		c.state.Invalidate()
		return
	}
	if c.shift {
		if p, ok := c.LayerPoint(x, y); ok {
			c.cam.EditorZoomTowards(p, dy*c.cfg.EditorWheelZoomSpeed)
			c.state.Invalidate()
		}
		return
	}
	c.ScrollLayers(dy * c.cfg.LayerScrollSpeed)
}

// TouchStart is called with every touch down after a new one lands. A single
// touch only records its cell; the tool is applied once the touch moves or
// lifts without a second finger joining.
func (c *Controller) TouchStart(touches []Touch) {
	switch len(touches) {
	case 1:
		c.prevTouch, c.havePrev = touches[0], true
		c.pending = c.press(touches[0].X, touches[0].Y)
	case 2:
		// a second finger turns a paint stroke into a gesture
		c.held = false
		c.sunDragging = false
		c.havePrev = false
		c.pending = false
		c.pinchValid = false
	}
}

func (c *Controller) TouchMove(touches []Touch) {
	switch len(touches) {
	case 1:
		if c.gesture.State() != GestureUndetermined {
			return
		}
		t := touches[0]
		var dx, dy float32
		if c.havePrev {
			dx, dy = t.X-c.prevTouch.X, t.Y-c.prevTouch.Y
		}
		c.prevTouch, c.havePrev = t, true
		c.held = true
		if c.pending {
			c.pending = false
			c.beginStroke()
		}
		c.PointerMove(t.X, t.Y, dx, dy)
	case 2:
		c.twoFingerMove(touches[0], touches[1])
	}
}

// TouchEnd is called with the touches still down after a release.
func (c *Controller) TouchEnd(remaining []Touch) {
	c.havePrev = false
	c.pinchValid = false
	if len(remaining) == 0 {
		if c.pending && c.gesture.State() == GestureUndetermined {
			c.beginStroke()
		}
		c.pending = false
		c.gesture.Reset()
		c.PointerUp()
		return
	}
	c.pending = false
	c.held = false
	c.sunDragging = false
	c.acted = false
}

func (c *Controller) twoFingerMove(a, b Touch) {
	dx, dy := a.X-b.X, a.Y-b.Y
	dist2 := dx*dx + dy*dy
	midX, midY := (a.X+b.X)/2, (a.Y+b.Y)/2

	if !c.cam.Mode().IsEditor() {
		// viewer pinches zoom freely and never classify the editor gesture
		if c.pinchValid && dist2 != c.pinchDist {
			c.cam.Zoom(-(dist2 - c.pinchDist) * c.cfg.TouchZoomSpeed)
			c.state.Invalidate()
		}
		c.pinchDist, c.pinchValid = dist2, true
		return
	}
	state, dDist, dMid := c.gesture.Advance(dist2, midY)
	switch state {
	case GestureZooming:
		if dDist == 0 {
			return
		}
		if p, ok := c.LayerPoint(midX, midY); ok {
			c.cam.EditorZoomTowards(p, dDist*c.cfg.EditorPinchZoomSpeed)
			c.state.Invalidate()
		}
	case GestureScrolling:
		if dMid != 0 {
			c.ScrollLayers(-dMid * c.cfg.LayerScrollSpeed * c.cfg.TouchScrollFactor)
		}
	}
}

// ScrollLayers moves the fractional layer position of the active axis by
// -delta, clamped to the grid. Crossing an integer boundary changes the layer.
func (c *Controller) ScrollLayers(delta float32) {
	axis := c.state.Axis
	prev := c.state.Layer(axis)
	c.state.LayerPos[axis] = clampLayer(c.state.LayerPos[axis]-delta, c.grid.Dimension())
	if next := c.state.Layer(axis); next != prev {
		c.changeLayer(axis, next)
	}
}

// StepLayer moves the active layer by whole steps.
func (c *Controller) StepLayer(step int) {
	axis := c.state.Axis
	prev := c.state.Layer(axis)
	c.state.LayerPos[axis] = clampLayer(c.state.LayerPos[axis]+float32(step), c.grid.Dimension())
	if next := c.state.Layer(axis); next != prev {
		c.changeLayer(axis, next)
	}
}

func (c *Controller) changeLayer(axis volume.Axis, index int) {
	c.cam.SetEditorRef(axis, c.grid.LayerPosition(axis, index))
	c.cam.BeginTransition()
	c.scene.SetLayer(axis, index)
	c.cellValid = false
	c.state.Invalidate()
	c.log.Debugf("editor layer %s=%d", axis, index)
}

func (c *Controller) SetTool(t core.Tool) {
	if c.state.Tool == t {
		return
	}
	c.state.Tool = t
	c.acted = false
	if t == core.ToolEraser || t == core.ToolSelector {
		c.scene.Hover.Visible = false
	}
	c.log.Debugf("tool %s", t)
}

// SetAxis selects the slicing axis. In editor mode the camera switches to the
// new axis immediately.
func (c *Controller) SetAxis(axis volume.Axis) {
	if c.state.Axis == axis {
		return
	}
	c.state.Axis = axis
	index := c.state.Layer(axis)
	c.scene.SetLayer(axis, index)
	c.cellValid = false
	c.acted = false
	if c.cam.Mode().IsEditor() {
		c.cam.SetEditorRef(axis, c.grid.LayerPosition(axis, index))
		c.cam.BeginTransitionToEditor(axis)
	}
	c.state.Invalidate()
	c.log.Debugf("editor axis %s layer %d", axis, index)
}

func (c *Controller) ToggleToEditor() {
	if c.cam.Mode().IsEditor() {
		return
	}
	axis := c.state.Axis
	index := c.state.Layer(axis)
	c.scene.SetLayer(axis, index)
	c.cam.SetEditorRef(axis, c.grid.LayerPosition(axis, index))
	c.cam.BeginTransitionToEditor(axis)
	c.sunDragging = false
	c.state.SunHovered = false
	c.cellValid = false
	c.state.Invalidate()
	c.log.Debugf("to editor %s layer %d", axis, index)
}

// ToggleToViewer recentres the orbit on the vertical middle of the occupied
// volume and starts the transition back to the viewer camera.
func (c *Controller) ToggleToViewer() {
	if !c.cam.Mode().IsEditor() {
		return
	}
	ref := mgl32.Vec3{}
	if ext := c.grid.OccupiedExtent(volume.AxisY); !ext.Empty {
		ref[1] = ext.Center()
	}
	c.cam.SetViewerRef(ref)
	c.cam.BeginTransitionToViewer()
	c.scene.Selection.Clear()
	c.scene.Hover.Visible = false
	c.held = false
	c.state.Invalidate()
	c.log.Debugf("to viewer, ref %v", ref)
}

// RefreshHover re-runs the sun hit test at the last cursor position. The
// camera moves between input events, so it is called once per frame.
func (c *Controller) RefreshHover() {
	if c.cam.Mode().IsEditor() || !c.cursorValid {
		return
	}
	c.state.SunHovered = c.sunDragging || c.hitSun(c.cursorX, c.cursorY)
}

func (c *Controller) enterCell(cell volume.Coord) {
	if c.cellValid && cell == c.cell {
		return
	}
	c.cell = cell
	c.cellValid = true
	c.acted = false
}

// act applies the active tool to the current cell at most once per cell.
func (c *Controller) act() {
	if c.acted || !c.cellValid {
		return
	}
	c.acted = true
	x, y, z := c.cell[0], c.cell[1], c.cell[2]
	switch c.state.Tool {
	case core.ToolPencil:
		if c.grid.Set(x, y, z, c.state.Brush.Color, c.state.Brush.Material) {
			c.state.Invalidate()
		}
	case core.ToolEraser:
		c.scene.Hover.Visible = false
		if c.grid.Delete(x, y, z) {
			c.state.Invalidate()
		}
	case core.ToolEyeDropper:
		c.scene.Hover.Visible = false
		if col, ok := c.grid.ColorAt(x, y, z); ok {
			c.state.Brush.Color = col
		}
		if mat, ok := c.grid.MaterialAt(x, y, z); ok {
			c.state.Brush.Material = mat
		}
	case core.ToolSelector:
		u, v := c.clampedPlane(c.cell)
		c.scene.Selection.Drag(u, v)
	}
}

func (c *Controller) clampedPlane(cell volume.Coord) (int, int) {
	u, v := volume.PlaneCoords(c.state.Axis, cell)
	n := c.grid.Dimension() - 1
	return clampInt(u, 0, n), clampInt(v, 0, n)
}

func (c *Controller) hitSun(x, y float32) bool {
	sun := c.scene.Sun
	return HitCube(c.ray(x, y), sun.Corner(), sun.Size)
}

// dragSun moves the sun along the plane through its centre that faces the camera.
func (c *Controller) dragSun(x, y float32) {
	p, ok := IntersectPlane(c.ray(x, y), c.scene.Sun.Center, c.cam.Forward())
	if !ok {
		return
	}
	c.scene.SetSunCenter(p)
}

func clampLayer(pos float32, dimension int) float32 {
	hi := float32(dimension) - 0.1
	return float32(math.Max(0, math.Min(float64(pos), float64(hi))))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
