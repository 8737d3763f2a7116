package voxcanvas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/core"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/editor"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/format"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/gpu"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// ErrNoFrame is returned when a thumbnail or snapshot is requested before the
// first frame was rendered.
var ErrNoFrame = errors.New("no frame rendered yet")

// Session is one open canvas: the grid with its scene, the camera, the
// editing state, the input controller and the renderer. All methods must be
// called from the thread that drives the frame loop.
type Session struct {
	ID  uuid.UUID
	cfg Config
	log Logger

	grid       *volume.VoxelGrid
	scene      *core.Scene
	camera     *core.Camera
	state      *core.State
	controller *editor.Controller
	renderer   *gpu.Renderer

	width, height int
	frames        int

	saved  uint64
	thumbs *freecache.Cache
}

// NewSession opens an empty canvas of cfg.Dimension.
func NewSession(cfg Config, logger Logger) *Session {
	if logger == nil {
		logger = NewNopLogger()
	}
	s := &Session{
		ID:       uuid.New(),
		cfg:      cfg,
		log:      logger,
		renderer: gpu.NewRenderer(cfg.Render, logger),
		thumbs:   freecache.NewCache(cfg.ThumbnailCache),
	}
	s.build(nil)
	s.saved = format.Fingerprint(s.Save())
	return s
}

func (s *Session) Config() Config                 { return s.cfg }
func (s *Session) Grid() *volume.VoxelGrid        { return s.grid }
func (s *Session) Scene() *core.Scene             { return s.scene }
func (s *Session) Camera() *core.Camera           { return s.camera }
func (s *Session) State() *core.State             { return s.state }
func (s *Session) Controller() *editor.Controller { return s.controller }
func (s *Session) Renderer() *gpu.Renderer        { return s.renderer }

// build replaces the canvas. A nil canvas opens an empty grid with default
// scene settings.
func (s *Session) build(c *format.Canvas) {
	dim := s.cfg.Dimension
	if c != nil {
		dim = c.Dimension
	}
	s.grid = volume.NewVoxelGrid(dim, 0)
	s.scene = core.NewScene(s.grid)
	s.camera = core.NewCamera(s.cfg.camera())
	s.state = core.NewState()

	if c != nil {
		for _, e := range c.Voxels {
			s.grid.Set(e.Coord[0], e.Coord[1], e.Coord[2], e.Color, e.Material)
		}
		s.scene.Sun.Center = c.PointLightPosition
		s.scene.Sun.Strength = c.PointLightStrength
		s.scene.Background = c.BackgroundColor
		s.scene.Ambient = c.AmbientStrength
		s.camera.SetViewer(core.ViewerParams{
			Theta:  c.ViewerTheta,
			Phi:    c.ViewerPhi,
			Radius: c.ViewerRadius,
			Ref:    c.ViewerRef,
		})
	}
	for _, axis := range []volume.Axis{volume.AxisX, volume.AxisY, volume.AxisZ} {
		s.camera.SetEditorRef(axis, s.grid.LayerPosition(axis, 0))
	}
	s.scene.SetLayer(s.state.Axis, s.state.CurrentLayer())

	s.controller = editor.NewController(s.cfg.Input, s.grid, s.scene, s.camera, s.state, s.log)
	if s.width > 0 && s.height > 0 {
		s.controller.SetViewport(s.width, s.height)
	}
}

// Load replaces the canvas with a decoded payload. On error the current
// canvas is kept.
func (s *Session) Load(p *format.Payload) error {
	c, err := format.Decode(p)
	if err != nil {
		return fmt.Errorf("load canvas: %w", err)
	}
	s.build(c)
	s.saved = format.Fingerprint(s.Save())
	s.log.Infof("loaded canvas %dx%dx%d with %d voxels", c.Dimension, c.Dimension, c.Dimension, s.grid.Len())
	return nil
}

// Save encodes the current canvas.
func (s *Session) Save() *format.Payload {
	sun := s.scene.Sun
	v := s.camera.Viewer()
	c := &format.Canvas{
		Version:            format.CurrentVersion,
		Dimension:          s.grid.Dimension(),
		PointLightPosition: sun.Center,
		BackgroundColor:    s.scene.Background,
		AmbientStrength:    s.scene.Ambient,
		PointLightStrength: sun.Strength,
		ViewerRef:          v.Ref,
		ViewerTheta:        v.Theta,
		ViewerPhi:          v.Phi,
		ViewerRadius:       v.Radius,
		Voxels:             make([]format.Entry, 0, s.grid.Len()),
	}
	for _, coord := range s.grid.Coords() {
		vox, _ := s.grid.At(coord)
		c.Voxels = append(c.Voxels, format.Entry{Coord: coord, Color: vox.Color, Material: vox.Material})
	}
	return format.Encode(c)
}

func (s *Session) LoadFile(path string) error {
	p, err := format.ReadFile(path)
	if err != nil {
		return err
	}
	return s.Load(p)
}

func (s *Session) SaveFile(path string) error {
	p := s.Save()
	if err := format.WriteFile(path, p); err != nil {
		return err
	}
	s.saved = format.Fingerprint(p)
	if fi, err := os.Stat(path); err == nil {
		s.log.Infof("saved %s (%s)", path, humanize.Bytes(uint64(fi.Size())))
	}
	return nil
}

// LoadDemo replaces the canvas with a sample scene at cfg.Dimension: a floor
// slab, a diffuse sphere and a mirror cone. The result counts as unsaved.
func (s *Session) LoadDemo() {
	s.build(nil)
	n := s.grid.Dimension()
	half := float32(n) / 2

	floor := volume.FillBox(s.grid, volume.Coord{0, 0, 0}, volume.Coord{n - 1, 0, n - 1}, mgl32.Vec3{0.8, 0.8, 0.75}, volume.MaterialDiffuse)
	ball := volume.FillSphere(s.grid, mgl32.Vec3{half * 0.7, half * 0.6, half}, float32(n)/5, mgl32.Vec3{0.85, 0.25, 0.2}, volume.MaterialDiffuse)
	cone := volume.FillCone(s.grid, mgl32.Vec3{half * 1.4, 1, half}, mgl32.Vec3{half * 1.4, float32(n) * 0.8, half}, float32(n)/6, mgl32.Vec3{0.9, 0.9, 1}, volume.MaterialMirror)
	s.log.Infof("demo canvas: floor %d, sphere %d, cone %d voxels", floor, ball, cone)
}

// HasUnsavedChanges reports whether the canvas differs from what was last
// loaded or saved.
func (s *Session) HasUnsavedChanges() bool {
	return format.Fingerprint(s.Save()) != s.saved
}

// Resize records the drawable size. Accumulated samples are discarded.
func (s *Session) Resize(width, height int) {
	if width == s.width && height == s.height {
		return
	}
	s.width, s.height = width, height
	s.controller.SetViewport(width, height)
	s.state.Invalidate()
}

func (s *Session) PointerDown(x, y float32)         { s.controller.PointerDown(x, y) }
func (s *Session) PointerMove(x, y, dx, dy float32) { s.controller.PointerMove(x, y, dx, dy) }
func (s *Session) PointerUp()                       { s.controller.PointerUp() }
func (s *Session) Wheel(x, y, dy float32)           { s.controller.Wheel(x, y, dy) }
func (s *Session) TouchStart(t []editor.Touch)      { s.controller.TouchStart(t) }
func (s *Session) TouchMove(t []editor.Touch)       { s.controller.TouchMove(t) }
func (s *Session) TouchEnd(remaining []editor.Touch) {
	s.controller.TouchEnd(remaining)
}

func (s *Session) SetTool(t core.Tool)      { s.controller.SetTool(t) }
func (s *Session) SetAxis(axis volume.Axis) { s.controller.SetAxis(axis) }
func (s *Session) StepLayer(step int)       { s.controller.StepLayer(step) }
func (s *Session) SetBrush(b core.Brush)    { s.state.Brush = b }
func (s *Session) InEditor() bool           { return s.camera.Mode().IsEditor() }

// ToggleMode switches between the viewer and the editor camera.
func (s *Session) ToggleMode() {
	if s.InEditor() {
		s.controller.ToggleToViewer()
	} else {
		s.controller.ToggleToEditor()
	}
}

func (s *Session) SetRayTrace(on bool) {
	if s.state.RayTrace == on {
		return
	}
	s.state.RayTrace = on
	s.state.Invalidate()
}

// KeyDown applies the keyboard bindings. It reports whether the key was used.
func (s *Session) KeyDown(k Key) bool {
	switch k {
	case KeyShift:
		s.controller.SetShift(true)
	case KeyTab:
		s.ToggleMode()
	case Key1:
		s.SetTool(core.ToolPencil)
	case Key2:
		s.SetTool(core.ToolEraser)
	case Key3:
		s.SetTool(core.ToolEyeDropper)
	case Key4:
		s.SetTool(core.ToolSelector)
	case KeyX:
		s.SetAxis(volume.AxisX)
	case KeyY:
		s.SetAxis(volume.AxisY)
	case KeyZ:
		s.SetAxis(volume.AxisZ)
	case KeyUp, KeyPageUp:
		s.StepLayer(1)
	case KeyDown, KeyPageDown:
		s.StepLayer(-1)
	case KeyR:
		s.SetRayTrace(!s.state.RayTrace)
	default:
		return false
	}
	return true
}

func (s *Session) KeyUp(k Key) bool {
	if k == KeyShift {
		s.controller.SetShift(false)
		return true
	}
	return false
}

// Tick advances the camera. Accumulation restarts on every tick a transition
// is running, since the view changes each frame.
func (s *Session) Tick(dt time.Duration) {
	if s.camera.AdvanceTransition(dt) {
		s.state.Invalidate()
	}
	s.camera.Update(s.width, s.height)
	s.controller.RefreshHover()
}

// LayerLabel names the visible editor slice, e.g. "Y layer 3/16".
func (s *Session) LayerLabel() string {
	axis, index := s.scene.Layer()
	return fmt.Sprintf("%s layer %d/%d", axis, index+1, s.grid.Dimension())
}

func (s *Session) hudLines() []string {
	lines := []string{s.state.Tool.String()}
	if s.InEditor() {
		lines = append(lines, s.LayerLabel())
	}
	return lines
}

// Render draws one frame of the given size. The sample count advances only
// when the tracer accumulated a sample.
func (s *Session) Render(width, height int) (gpu.FrameResult, error) {
	s.Resize(width, height)
	s.camera.Update(width, height)
	snap := gpu.Snapshot{
		Scene:          s.scene,
		Mode:           s.camera.Mode(),
		ViewProjection: s.camera.ViewProjection(),
		Eye:            s.camera.Eye(),
		Brush:          s.state.Brush,
		RayTrace:       s.state.RayTrace,
		SampleCount:    s.state.SampleCount,
		SunHovered:     s.state.SunHovered,
		Transitioning:  s.camera.Transitioning(),
		Width:          width,
		Height:         height,
		HUD:            s.hudLines(),
	}
	res, err := s.renderer.Render(snap)
	if res.Resized {
		s.state.Invalidate()
	}
	if err != nil {
		return res, err
	}
	if res.Traced {
		s.state.SampleCount++
	}
	if !res.Skipped {
		s.frames++
	}
	return res, nil
}

// Frame reads back the most recently rendered image.
func (s *Session) Frame() (*image.RGBA, error) {
	if s.frames == 0 {
		return nil, ErrNoFrame
	}
	img, err := s.renderer.Capture()
	if errors.Is(err, gpu.ErrNoFrame) {
		return nil, ErrNoFrame
	}
	return img, err
}

// Thumbnail returns the last frame scaled to fit a size×size square, PNG
// encoded. Thumbnails are cached per canvas content and size.
func (s *Session) Thumbnail(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("thumbnail size %d", size)
	}
	frame, err := s.Frame()
	if err != nil {
		return nil, err
	}
	key := []byte(strconv.FormatUint(format.Fingerprint(s.Save()), 16) + ":" + strconv.Itoa(size))
	if data, err := s.thumbs.Get(key); err == nil {
		return data, nil
	}

	src := frame.Bounds()
	w, h := size, size
	if src.Dx() > src.Dy() {
		h = max(1, size*src.Dy()/src.Dx())
	} else {
		w = max(1, size*src.Dx()/src.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), frame, src, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := s.thumbs.Set(key, buf.Bytes(), 0); err != nil {
		s.log.Warnf("thumbnail not cached: %v", err)
	}
	return buf.Bytes(), nil
}

// WriteSnapshot stores the last frame as a PNG in dir and returns its path.
func (s *Session) WriteSnapshot(dir string) (string, error) {
	frame, err := s.Frame()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%04d.png", s.ID, s.frames))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return path, f.Close()
}
