package editor

import (
	"testing"
	"time"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/core"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDim  = 16
	viewSize = 400
)

type countingGrid struct {
	*volume.VoxelGrid
	sets    int
	deletes int
}

func (g *countingGrid) Set(x, y, z int, color mgl32.Vec3, material volume.Material) bool {
	g.sets++
	return g.VoxelGrid.Set(x, y, z, color, material)
}

func (g *countingGrid) Delete(x, y, z int) bool {
	g.deletes++
	return g.VoxelGrid.Delete(x, y, z)
}

type fixture struct {
	ctrl  *Controller
	grid  *countingGrid
	scene *core.Scene
	cam   *core.Camera
	state *core.State
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	grid := &countingGrid{VoxelGrid: volume.NewVoxelGrid(testDim, 0)}
	scene := core.NewScene(grid.VoxelGrid)
	cam := core.NewCamera(core.DefaultCameraConfig())
	state := core.NewState()
	ctrl := NewController(DefaultConfig(), grid, scene, cam, state, nil)
	ctrl.SetViewport(viewSize, viewSize)
	return &fixture{ctrl: ctrl, grid: grid, scene: scene, cam: cam, state: state}
}

// editor switches to editor mode on axis and finishes the transition.
func (f *fixture) editor(axis volume.Axis) {
	f.ctrl.SetAxis(axis)
	f.ctrl.ToggleToEditor()
	f.settle()
}

func (f *fixture) settle() {
	f.cam.AdvanceTransition(time.Hour)
	f.cam.Update(viewSize, viewSize)
}

func (f *fixture) screenOf(p mgl32.Vec3) (float32, float32) {
	f.cam.Update(viewSize, viewSize)
	clip := mgl32.TransformCoordinate(p, f.cam.ViewProjection())
	return (clip[0] + 1) / 2 * viewSize, (1 - clip[1]) / 2 * viewSize
}

func (f *fixture) screenOfCell(c volume.Coord) (float32, float32) {
	return f.screenOf(f.grid.CellCenter(c))
}

func TestCursorCellMapsBackToCell(t *testing.T) {
	for _, axis := range []volume.Axis{volume.AxisX, volume.AxisY, volume.AxisZ} {
		f := newFixture(t)
		f.editor(axis)
		for _, c := range []volume.Coord{{0, 0, 0}, {3, 0, 9}, {15, 0, 15}} {
			c[axis] = 0
			x, y := f.screenOfCell(c)
			got, ok := f.ctrl.CursorCell(x, y)
			require.True(t, ok)
			assert.Equal(t, c, got, "axis %v", axis)
		}
	}
}

func TestPencilDebounce(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)

	a := volume.Coord{4, 0, 4}
	b := volume.Coord{5, 0, 4}
	ax, ay := f.screenOfCell(a)
	bx, by := f.screenOfCell(b)

	f.ctrl.PointerDown(ax, ay)
	assert.Equal(t, 1, f.grid.sets)

	f.ctrl.PointerMove(ax, ay, 0, 0)
	f.ctrl.PointerMove(ax+2, ay, 2, 0)
	f.ctrl.PointerMove(ax, ay+2, -2, 2)
	assert.Equal(t, 1, f.grid.sets, "stationary cell must not re-fire")

	f.ctrl.PointerMove(bx, by, bx-ax, 0)
	f.ctrl.PointerMove(bx, by, 0, 0)
	assert.Equal(t, 2, f.grid.sets)

	assert.True(t, f.grid.Occupied(4, 0, 4))
	assert.True(t, f.grid.Occupied(5, 0, 4))

	f.ctrl.PointerUp()
	f.ctrl.PointerMove(ax, ay, 0, 0)
	assert.Equal(t, 2, f.grid.sets, "moves without a held pointer only hover")
}

func TestEraserAndEyeDropper(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	red := mgl32.Vec3{1, 0, 0}
	f.grid.VoxelGrid.Set(6, 0, 6, red, volume.MaterialMirror)
	x, y := f.screenOfCell(volume.Coord{6, 0, 6})

	f.ctrl.SetTool(core.ToolEyeDropper)
	f.ctrl.PointerMove(x, y, 0, 0)
	assert.True(t, f.scene.Hover.Visible)
	f.ctrl.PointerDown(x, y)
	f.ctrl.PointerUp()
	assert.Equal(t, red, f.state.Brush.Color)
	assert.Equal(t, volume.MaterialMirror, f.state.Brush.Material)
	assert.False(t, f.scene.Hover.Visible)
	assert.Zero(t, f.grid.sets)

	f.ctrl.SetTool(core.ToolEraser)
	f.ctrl.PointerDown(x, y)
	f.ctrl.PointerUp()
	assert.Equal(t, 1, f.grid.deletes)
	assert.False(t, f.grid.Occupied(6, 0, 6))

	// erasing an empty cell is a no-op
	f.ctrl.PointerDown(x, y)
	assert.Equal(t, 2, f.grid.deletes)
	assert.Zero(t, f.grid.Len())
}

func TestSelectorSpansDragRectangle(t *testing.T) {
	for _, reverse := range []bool{false, true} {
		f := newFixture(t)
		f.editor(volume.AxisZ)
		f.ctrl.SetTool(core.ToolSelector)

		from, to := volume.Coord{2, 3, 0}, volume.Coord{5, 1, 0}
		if reverse {
			from, to = to, from
		}
		fx, fy := f.screenOfCell(from)
		tx, ty := f.screenOfCell(to)
		f.ctrl.PointerDown(fx, fy)
		f.ctrl.PointerMove((fx+tx)/2, (fy+ty)/2, 0, 0)
		f.ctrl.PointerMove(tx, ty, 0, 0)
		f.ctrl.PointerUp()

		min, max, ok := f.scene.Selection.Bounds()
		require.True(t, ok)
		assert.Equal(t, [2]int{2, 1}, min, "reverse=%v", reverse)
		assert.Equal(t, [2]int{5, 3}, max, "reverse=%v", reverse)
		assert.Zero(t, f.grid.sets)
	}
}

func TestSampleCountResets(t *testing.T) {
	cases := []struct {
		name string
		run  func(f *fixture)
	}{
		{"rotate", func(f *fixture) {
			f.ctrl.PointerDown(5, 5)
			f.ctrl.PointerMove(25, 5, 20, 0)
		}},
		{"zoom", func(f *fixture) {
			f.ctrl.Wheel(200, 200, 100)
		}},
		{"add", func(f *fixture) {
			f.editor(volume.AxisY)
			f.state.SampleCount = 7
			x, y := f.screenOfCell(volume.Coord{1, 0, 1})
			f.ctrl.PointerDown(x, y)
		}},
		{"delete", func(f *fixture) {
			f.editor(volume.AxisY)
			f.grid.VoxelGrid.Set(1, 0, 1, mgl32.Vec3{1, 1, 1}, volume.MaterialDiffuse)
			f.state.SampleCount = 7
			f.ctrl.SetTool(core.ToolEraser)
			x, y := f.screenOfCell(volume.Coord{1, 0, 1})
			f.ctrl.PointerDown(x, y)
		}},
		{"layer", func(f *fixture) {
			f.editor(volume.AxisY)
			f.state.SampleCount = 7
			f.ctrl.StepLayer(1)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.state.SampleCount = 7
			tc.run(f)
			assert.Zero(t, f.state.SampleCount)
		})
	}
}

func TestViewerRotateAndZoom(t *testing.T) {
	f := newFixture(t)
	before := f.cam.Viewer()

	f.ctrl.PointerMove(5, 5, 20, 0)
	assert.Equal(t, before, f.cam.Viewer(), "moves without a held pointer do not rotate")

	f.ctrl.PointerDown(5, 5)
	f.ctrl.PointerMove(25, 15, 20, 10)
	after := f.cam.Viewer()
	assert.InDelta(t, before.Theta+0.2, after.Theta, 1e-5)
	assert.InDelta(t, before.Phi+0.1, after.Phi, 1e-5)

	f.ctrl.Wheel(0, 0, -50)
	assert.InDelta(t, after.Radius-0.4, f.cam.Viewer().Radius, 1e-5)
}

func TestLayerScrollCrossesIntegerBoundary(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	f.scene.Selection.Begin(1, 1)

	f.ctrl.ScrollLayers(-0.5)
	_, idx := f.scene.Layer()
	assert.Equal(t, 0, idx)
	assert.False(t, f.cam.Transitioning())
	_, _, ok := f.scene.Selection.Bounds()
	assert.True(t, ok, "no boundary crossed, selection kept")

	f.ctrl.ScrollLayers(-0.6)
	axis, idx := f.scene.Layer()
	assert.Equal(t, volume.AxisY, axis)
	assert.Equal(t, 1, idx)
	assert.Equal(t, f.grid.LayerPosition(volume.AxisY, 1), f.cam.EditorRef(volume.AxisY).Y())
	assert.True(t, f.cam.Transitioning())
	_, _, ok = f.scene.Selection.Bounds()
	assert.False(t, ok)

	f.ctrl.ScrollLayers(-1000)
	assert.Equal(t, testDim-1, f.state.CurrentLayer())
	f.ctrl.ScrollLayers(1000)
	assert.Equal(t, 0, f.state.CurrentLayer())
	assert.Equal(t, float32(0), f.state.LayerPos[volume.AxisY])
}

func TestWheelInEditor(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)

	f.ctrl.Wheel(200, 200, -300)
	assert.Equal(t, 1, f.state.CurrentLayer(), "plain wheel scrolls layers")
	f.settle()

	zoom := f.cam.EditorZoom(volume.AxisY)
	f.ctrl.SetShift(true)
	f.ctrl.Wheel(200, 200, -20)
	assert.InDelta(t, zoom*0.8, f.cam.EditorZoom(volume.AxisY), 1e-5)
	assert.Equal(t, 1, f.state.CurrentLayer())
}

func touches(pts ...float32) []Touch {
	out := make([]Touch, 0, len(pts)/2)
	for i := 0; i+1 < len(pts); i += 2 {
		out = append(out, Touch{ID: i / 2, X: pts[i], Y: pts[i+1]})
	}
	return out
}

func TestTwoFingerScrollIgnoresPinch(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	zoom := f.cam.EditorZoom(volume.AxisY)

	f.ctrl.TouchStart(touches(180, 200, 220, 200))
	f.ctrl.TouchMove(touches(180, 200, 220, 200))
	f.ctrl.TouchMove(touches(180, 350, 220, 350))
	assert.Equal(t, GestureScrolling, f.ctrl.Gesture().State())
	assert.Equal(t, 0, f.state.CurrentLayer())

	f.ctrl.TouchMove(touches(180, 400, 220, 400))
	assert.Equal(t, 2, f.state.CurrentLayer())

	f.ctrl.TouchMove(touches(0, 400, 400, 400))
	assert.Equal(t, zoom, f.cam.EditorZoom(volume.AxisY))
	assert.Zero(t, f.grid.sets, "gestures never paint")

	f.ctrl.TouchEnd(nil)
	assert.Equal(t, GestureUndetermined, f.ctrl.Gesture().State())
}

func TestTwoFingerPinchIgnoresScroll(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	zoom := f.cam.EditorZoom(volume.AxisY)

	f.ctrl.TouchStart(touches(190, 200, 210, 200))
	f.ctrl.TouchMove(touches(190, 200, 210, 200))
	f.ctrl.TouchMove(touches(100, 200, 300, 200))
	assert.Equal(t, GestureZooming, f.ctrl.Gesture().State())

	f.ctrl.TouchMove(touches(95, 200, 305, 200))
	assert.Less(t, f.cam.EditorZoom(volume.AxisY), zoom, "spreading fingers zooms in")

	f.ctrl.TouchMove(touches(95, 500, 305, 500))
	assert.Equal(t, 0, f.state.CurrentLayer())
	assert.Equal(t, GestureZooming, f.ctrl.Gesture().State())
}

func TestSingleTouchPaints(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	x, y := f.screenOfCell(volume.Coord{8, 0, 8})

	f.ctrl.TouchStart(touches(x, y))
	f.ctrl.TouchMove(touches(x+1, y))
	f.ctrl.TouchEnd(nil)
	assert.Equal(t, 1, f.grid.sets)
	assert.True(t, f.grid.Occupied(8, 0, 8))
}

func TestTouchTapPaints(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	x, y := f.screenOfCell(volume.Coord{4, 0, 4})

	f.ctrl.TouchStart(touches(x, y))
	assert.Zero(t, f.grid.sets, "a touch landing does not paint yet")
	f.ctrl.TouchEnd(nil)
	assert.True(t, f.grid.Occupied(4, 0, 4))
}

func TestTwoFingerGestureNeverPaints(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	x, y := f.screenOfCell(volume.Coord{8, 0, 8})

	f.ctrl.TouchStart(touches(x, y))
	f.ctrl.TouchStart(touches(x, y, x+40, y))
	f.ctrl.TouchMove(touches(x, y, x+40, y))
	f.ctrl.TouchMove(touches(x-60, y, x+100, y))
	f.ctrl.TouchMove(touches(x-70, y, x+110, y))
	f.ctrl.TouchEnd(nil)

	assert.Zero(t, f.grid.sets)
	assert.False(t, f.grid.Occupied(8, 0, 8))
}

func TestTwoFingerSelectionNeverStarts(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	f.ctrl.SetTool(core.ToolSelector)
	x, y := f.screenOfCell(volume.Coord{8, 0, 8})

	f.ctrl.TouchStart(touches(x, y))
	f.ctrl.TouchStart(touches(x, y, x+40, y))
	f.ctrl.TouchMove(touches(x, y+10, x+40, y+10))
	f.ctrl.TouchEnd(nil)

	_, _, ok := f.scene.Selection.Bounds()
	assert.False(t, ok)
}

func TestViewerPinchKeepsOrbit(t *testing.T) {
	f := newFixture(t)
	before := f.cam.Viewer()

	f.ctrl.TouchStart(touches(150, 200, 250, 200))
	f.ctrl.TouchMove(touches(150, 200, 250, 200))
	f.ctrl.TouchMove(touches(140, 200, 260, 200))
	assert.NotEqual(t, before.Radius, f.cam.Viewer().Radius, "pinching zooms the viewer")
	assert.Equal(t, GestureUndetermined, f.ctrl.Gesture().State())

	f.ctrl.TouchEnd(touches(140, 200))
	f.ctrl.TouchMove(touches(140, 200))
	f.ctrl.TouchMove(touches(160, 200))
	assert.InDelta(t, before.Theta+20*f.ctrl.Config().MovementSpeed, f.cam.Viewer().Theta, 1e-5,
		"one finger still orbits after a pinch")
}

func TestSunDrag(t *testing.T) {
	f := newFixture(t)
	f.scene.Sun.Size = 0.1
	f.scene.SetSunCenter(mgl32.Vec3{0.05, 0.05, 0.05})
	before := f.cam.Viewer()

	sx, sy := f.screenOf(f.scene.Sun.Center)
	f.ctrl.PointerMove(sx, sy, 0, 0)
	assert.True(t, f.state.SunHovered)

	f.ctrl.PointerDown(sx, sy)
	require.True(t, f.ctrl.SunDragging())

	old := f.scene.Sun.Center
	f.state.SampleCount = 3
	f.ctrl.PointerMove(sx+40, sy-20, 40, -20)
	moved := f.scene.Sun.Center
	assert.False(t, moved.ApproxEqual(old))
	assert.InDelta(t, 0, moved.Sub(old).Dot(f.cam.Forward()), 1e-4, "sun stays on the view-facing plane")
	assert.Equal(t, before, f.cam.Viewer(), "dragging the sun does not orbit")
	assert.Zero(t, f.state.SampleCount)

	f.ctrl.PointerUp()
	assert.False(t, f.ctrl.SunDragging())
}

func TestToggleToViewerRecentres(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	f.grid.VoxelGrid.Set(0, 4, 0, mgl32.Vec3{1, 1, 1}, volume.MaterialDiffuse)
	f.grid.VoxelGrid.Set(0, 7, 0, mgl32.Vec3{1, 1, 1}, volume.MaterialDiffuse)

	f.ctrl.ToggleToViewer()
	assert.Equal(t, core.StateTransitioningToViewer, f.cam.State())
	want := (f.grid.LayerPosition(volume.AxisY, 4) + f.grid.LayerPosition(volume.AxisY, 8)) / 2
	assert.InDelta(t, want, f.cam.Viewer().Ref.Y(), 1e-6)
	assert.Zero(t, f.cam.Viewer().Ref.X())
}

func TestSetAxisClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.editor(volume.AxisY)
	f.scene.Selection.Begin(2, 2)

	f.ctrl.SetAxis(volume.AxisX)
	_, _, ok := f.scene.Selection.Bounds()
	assert.False(t, ok)
	assert.Equal(t, core.ModeEditorX, f.cam.Mode())
	assert.False(t, f.cam.Transitioning(), "axis switches inside the editor are immediate")
}
