package voxcanvas

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/core"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/format"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/gpu"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessionConfig() Config {
	cfg := DefaultConfig()
	cfg.Dimension = 8
	cfg.Render.ShowHUD = false
	cfg.Render.Workers = 2
	return cfg
}

func samplePayload() *format.Payload {
	return &format.Payload{
		Version:            1,
		Dimension:          8,
		PointLightPosition: "0.25,0.75,0.125",
		BackgroundColor:    "#202020",
		AmbientStrength:    0.4,
		PointLightStrength: 0.9,
		ViewerRef:          format.RefVec{0, 0.125, 0},
		ViewerTheta:        1,
		ViewerPhi:          1.2,
		ViewerR:            2.5,
		Voxels:             []string{"1,2,3:ff0000:0", "4,0,4:00ff00:1"},
	}
}

func TestNewSessionIsEmptyAndSaved(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	assert.NotEqual(t, [16]byte{}, [16]byte(s.ID))
	assert.Equal(t, 8, s.Grid().Dimension())
	assert.Zero(t, s.Grid().Len())
	assert.False(t, s.HasUnsavedChanges())
	assert.False(t, s.InEditor())
	assert.True(t, s.State().RayTrace)
}

func TestLoadAppliesPayload(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	require.NoError(t, s.Load(samplePayload()))

	g := s.Grid()
	assert.Equal(t, 2, g.Len())
	col, ok := g.ColorAt(1, 2, 3)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, col)
	mat, _ := g.MaterialAt(4, 0, 4)
	assert.Equal(t, volume.MaterialMirror, mat)

	sc := s.Scene()
	assert.Equal(t, mgl32.Vec3{0.25, 0.75, 0.125}, sc.Sun.Center)
	assert.InDelta(t, 0.9, sc.Sun.Strength, 1e-6)
	assert.InDelta(t, 0.4, sc.Ambient, 1e-6)

	v := s.Camera().Viewer()
	assert.InDelta(t, 2.5, v.Radius, 1e-6)
	assert.Equal(t, mgl32.Vec3{0, 0.125, 0}, v.Ref)
	assert.False(t, s.HasUnsavedChanges())
}

func TestLoadErrorKeepsCanvas(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	require.NoError(t, s.Load(samplePayload()))

	bad := samplePayload()
	bad.Version = 99
	err := s.Load(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, format.ErrUnsupportedVersion))

	bad = samplePayload()
	bad.Voxels = append(bad.Voxels, "8,0,0:ffffff:0")
	err = s.Load(bad)
	assert.True(t, errors.Is(err, format.ErrMalformedPayload))

	assert.Equal(t, 2, s.Grid().Len(), "failed loads must not touch the open canvas")
}

func TestSaveRoundTrip(t *testing.T) {
	a := NewSession(testSessionConfig(), nil)
	require.NoError(t, a.Load(samplePayload()))
	saved := a.Save()
	assert.Equal(t, format.CurrentVersion, saved.Version)
	assert.Equal(t, "202020", saved.BackgroundColor)

	b := NewSession(testSessionConfig(), nil)
	require.NoError(t, b.Load(saved))
	assert.Equal(t, format.Fingerprint(saved), format.Fingerprint(b.Save()))
}

func TestUnsavedChangesTracksEdits(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	require.NoError(t, s.Load(samplePayload()))

	s.Grid().Set(0, 0, 0, mgl32.Vec3{1, 1, 1}, volume.MaterialDiffuse)
	assert.True(t, s.HasUnsavedChanges())
	s.Grid().Delete(0, 0, 0)
	assert.False(t, s.HasUnsavedChanges(), "undoing the edit restores the saved content")

	s.Scene().SetSunCenter(mgl32.Vec3{0, 1, 0})
	assert.True(t, s.HasUnsavedChanges())
}

func TestSaveFileLoadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"canvas.json", "canvas.json.gz", "canvas.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			s := NewSession(testSessionConfig(), nil)
			require.NoError(t, s.Load(samplePayload()))
			s.Grid().Set(7, 7, 7, mgl32.Vec3{0, 0, 1}, volume.MaterialDiffuse)
			require.True(t, s.HasUnsavedChanges())

			require.NoError(t, s.SaveFile(path))
			assert.False(t, s.HasUnsavedChanges())

			r := NewSession(testSessionConfig(), nil)
			require.NoError(t, r.LoadFile(path))
			assert.Equal(t, 3, r.Grid().Len())
			assert.True(t, r.Grid().Occupied(7, 7, 7))
		})
	}

	s := NewSession(testSessionConfig(), nil)
	assert.Error(t, s.LoadFile(filepath.Join(dir, "missing.json")))
}

func TestLoadDemoFillsCanvas(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	s.LoadDemo()

	g := s.Grid()
	assert.Equal(t, 8, g.Dimension())
	assert.Greater(t, g.Len(), 64, "floor alone covers 64 cells")
	assert.True(t, g.Occupied(0, 0, 0))
	assert.True(t, g.Occupied(7, 0, 7))
	assert.True(t, s.HasUnsavedChanges())

	var mirrors int
	g.Each(func(_ volume.Coord, v volume.Voxel) bool {
		if v.Material == volume.MaterialMirror {
			mirrors++
		}
		return true
	})
	assert.Positive(t, mirrors)
}

func renderFrame(t *testing.T, s *Session, width, height int) gpu.FrameResult {
	t.Helper()
	res, err := s.Render(width, height)
	require.NoError(t, err)
	return res
}

func TestRenderCountsTracedSamples(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	require.NoError(t, s.Load(samplePayload()))

	res := renderFrame(t, s, 32, 32)
	require.Equal(t, gpu.PathTrace, res.Path)
	assert.True(t, res.Resized)
	assert.Equal(t, 1, s.State().SampleCount)

	renderFrame(t, s, 32, 32)
	renderFrame(t, s, 32, 32)
	assert.Equal(t, 3, s.State().SampleCount)

	res = renderFrame(t, s, 48, 32)
	assert.True(t, res.Resized)
	assert.Equal(t, 1, s.State().SampleCount, "resize restarts accumulation")

	res = renderFrame(t, s, 0, 32)
	assert.True(t, res.Skipped)
	assert.Equal(t, 0, s.State().SampleCount)
}

func TestRayTraceOffUsesPreview(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	renderFrame(t, s, 16, 16)
	require.Equal(t, 1, s.State().SampleCount)

	require.True(t, s.KeyDown(KeyR))
	assert.False(t, s.State().RayTrace)
	assert.Zero(t, s.State().SampleCount)

	res := renderFrame(t, s, 16, 16)
	assert.Equal(t, gpu.PathPreview, res.Path)
	assert.Zero(t, s.State().SampleCount)
}

func TestTransitionResetsSamples(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	renderFrame(t, s, 16, 16)
	renderFrame(t, s, 16, 16)
	require.Equal(t, 2, s.State().SampleCount)

	s.ToggleMode()
	require.True(t, s.InEditor())
	s.Tick(100 * time.Millisecond)
	assert.Zero(t, s.State().SampleCount)
	assert.True(t, s.Camera().Transitioning())

	res := renderFrame(t, s, 16, 16)
	assert.Equal(t, gpu.PathEditor, res.Path)
	assert.Zero(t, s.State().SampleCount, "editor frames do not accumulate")

	s.Tick(time.Hour)
	assert.False(t, s.Camera().Transitioning())

	s.ToggleMode()
	assert.False(t, s.InEditor())
	require.True(t, s.Camera().Transitioning())
	res = renderFrame(t, s, 16, 16)
	assert.Equal(t, gpu.PathPreview, res.Path, "the preview is drawn while moving back")
	assert.Zero(t, s.State().SampleCount)

	s.Tick(time.Hour)
	res = renderFrame(t, s, 16, 16)
	assert.Equal(t, gpu.PathTrace, res.Path)
	assert.Equal(t, 1, s.State().SampleCount)
}

func TestSavedViewerIsNotClamped(t *testing.T) {
	p := samplePayload()
	p.ViewerR = 14
	p.ViewerPhi = 0

	s := NewSession(testSessionConfig(), nil)
	require.NoError(t, s.Load(p))
	assert.False(t, s.HasUnsavedChanges())

	out := s.Save()
	assert.Equal(t, float32(14), out.ViewerR)
	assert.Equal(t, float32(0), out.ViewerPhi)

	renderFrame(t, s, 8, 8)
	assert.False(t, s.HasUnsavedChanges())
}

func TestKeyBindings(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)

	assert.True(t, s.KeyDown(Key2))
	assert.Equal(t, core.ToolEraser, s.State().Tool)
	s.KeyDown(Key4)
	assert.Equal(t, core.ToolSelector, s.State().Tool)

	s.KeyDown(KeyX)
	assert.Equal(t, volume.AxisX, s.State().Axis)

	s.KeyDown(KeyShift)
	assert.True(t, s.Controller().ShiftDown())
	assert.True(t, s.KeyUp(KeyShift))
	assert.False(t, s.Controller().ShiftDown())

	s.KeyDown(KeyTab)
	assert.True(t, s.InEditor())

	assert.False(t, s.KeyDown(KeyUnknown))
	assert.False(t, s.KeyUp(KeyR))
}

func TestLayerLabelFollowsSteps(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	assert.Equal(t, "Y layer 1/8", s.LayerLabel())

	s.KeyDown(KeyUp)
	s.KeyDown(KeyPageUp)
	assert.Equal(t, "Y layer 3/8", s.LayerLabel())
	s.KeyDown(KeyDown)
	assert.Equal(t, "Y layer 2/8", s.LayerLabel())

	for i := 0; i < 20; i++ {
		s.StepLayer(1)
	}
	assert.Equal(t, "Y layer 8/8", s.LayerLabel(), "stepping clamps at the last layer")
}

func TestThumbnail(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	_, err := s.Thumbnail(16)
	assert.ErrorIs(t, err, ErrNoFrame)

	renderFrame(t, s, 64, 32)
	data, err := s.Thumbnail(16)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	again, err := s.Thumbnail(16)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	_, err = s.Thumbnail(0)
	assert.Error(t, err)
}

func TestWriteSnapshot(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	dir := t.TempDir()
	_, err := s.WriteSnapshot(dir)
	assert.ErrorIs(t, err, ErrNoFrame)

	renderFrame(t, s, 8, 8)
	path, err := s.WriteSnapshot(dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), s.ID.String()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}
