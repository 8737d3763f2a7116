package format

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "version": 1,
  "dimension": 32,
  "pointLightPosition": "0.5,1.25,-0.75",
  "backgroundColor": "1e2027",
  "ambientStrength": 0.3,
  "pointLightStrength": 0.8,
  "viewerRef": {"0": 0, "1": 0.125, "2": 0},
  "viewerTheta": 0.785,
  "viewerPhi": 1.047,
  "viewerR": 2.5,
  "voxels": ["0,0,0:ff0000:0", "31,4,17:00ff80:1", "3,2,1:#0a0b0c:0"]
}`

func TestDecodeSample(t *testing.T) {
	p, err := Unmarshal([]byte(samplePayload))
	require.NoError(t, err)
	c, err := Decode(p)
	require.NoError(t, err)

	assert.Equal(t, 32, c.Dimension)
	assert.Equal(t, mgl32.Vec3{0.5, 1.25, -0.75}, c.PointLightPosition)
	assert.Equal(t, mgl32.Vec3{0, 0.125, 0}, c.ViewerRef)
	assert.InDelta(t, 2.5, c.ViewerRadius, 1e-6)
	require.Len(t, c.Voxels, 3)

	assert.Equal(t, volume.Coord{31, 4, 17}, c.Voxels[1].Coord)
	assert.Equal(t, volume.MaterialMirror, c.Voxels[1].Material)
	assert.InDelta(t, 128.0/255, c.Voxels[1].Color[2], 1e-6)
	assert.Equal(t, volume.Coord{3, 2, 1}, c.Voxels[2].Coord)
}

func TestRoundTripPreservesEntries(t *testing.T) {
	p, err := Unmarshal([]byte(samplePayload))
	require.NoError(t, err)
	c, err := Decode(p)
	require.NoError(t, err)

	// reverse entry order; it must not matter
	slices.Reverse(c.Voxels)
	out := Encode(c)

	assert.Equal(t, p.Dimension, out.Dimension)
	assert.Equal(t, "0.5,1.25,-0.75", out.PointLightPosition)
	assert.Equal(t, "1e2027", out.BackgroundColor)
	assert.Equal(t, p.ViewerTheta, out.ViewerTheta)
	assert.ElementsMatch(t, []string{"0,0,0:ff0000:0", "31,4,17:00ff80:1", "3,2,1:0a0b0c:0"}, out.Voxels)

	again, err := Decode(out)
	require.NoError(t, err)
	assert.ElementsMatch(t, c.Voxels, again.Voxels)
	assert.Equal(t, c.ViewerRef, again.ViewerRef)
}

func TestDecodeErrors(t *testing.T) {
	base := func() *Payload {
		return &Payload{
			Version:            1,
			Dimension:          8,
			PointLightPosition: "0,0,0",
			BackgroundColor:    "000000",
			Voxels:             []string{"1,2,3:ffffff:0"},
		}
	}
	cases := []struct {
		name   string
		mutate func(p *Payload)
		want   error
	}{
		{"dimension too small", func(p *Payload) { p.Dimension = 0 }, ErrUnsupportedDimension},
		{"dimension too large", func(p *Payload) { p.Dimension = MaxDimension + 1 }, ErrUnsupportedDimension},
		{"future version", func(p *Payload) { p.Version = CurrentVersion + 1 }, ErrUnsupportedVersion},
		{"bad coordinate key", func(p *Payload) { p.Voxels = []string{"1,2:ffffff:0"} }, ErrMalformedPayload},
		{"negative coordinate", func(p *Payload) { p.Voxels = []string{"1,-2,3:ffffff:0"} }, ErrMalformedPayload},
		{"coordinate outside grid", func(p *Payload) { p.Voxels = []string{"1,2,8:ffffff:0"} }, ErrMalformedPayload},
		{"bad colour", func(p *Payload) { p.Voxels = []string{"1,2,3:fffffg:0"} }, ErrMalformedPayload},
		{"unknown material", func(p *Payload) { p.Voxels = []string{"1,2,3:ffffff:9"} }, ErrMalformedPayload},
		{"bad light", func(p *Payload) { p.PointLightPosition = "a,b,c" }, ErrMalformedPayload},
		{"bad background", func(p *Payload) { p.BackgroundColor = "fff" }, ErrMalformedPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base()
			tc.mutate(p)
			_, err := Decode(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	_, err := Decode(base())
	assert.NoError(t, err)
}

func TestUnmarshalRejectsSchemaViolations(t *testing.T) {
	for _, doc := range []string{
		`not json`,
		`{"version": 1}`,
		`{"version": 1, "dimension": 4, "pointLightPosition": "0,0,0", "backgroundColor": "000000", "voxels": ["1,1,1"]}`,
		`{"version": "one", "dimension": 4, "pointLightPosition": "0,0,0", "backgroundColor": "000000", "voxels": []}`,
	} {
		_, err := Unmarshal([]byte(doc))
		assert.ErrorIs(t, err, ErrMalformedPayload, doc)
	}
}

func TestRefVecForms(t *testing.T) {
	for _, raw := range []string{`[1, 2, 3]`, `{"0": 1, "1": 2, "2": 3}`, `"1,2,3"`} {
		var r RefVec
		require.NoError(t, json.Unmarshal([]byte(raw), &r), raw)
		assert.Equal(t, RefVec{1, 2, 3}, r, raw)
	}
	var r RefVec
	assert.Error(t, json.Unmarshal([]byte(`{"0": 1}`), &r))

	out, err := json.Marshal(RefVec{1, 2, 3})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(out))
}

func TestHexColorQuantizes(t *testing.T) {
	c := mgl32.Vec3{0.2, 0.5, 1}
	back, err := ParseHexColor(FormatHexColor(c))
	require.NoError(t, err)
	for i := range c {
		assert.InDelta(t, c[i], back[i], 0.5/255+1e-6)
	}
}

func TestFileRoundTripCompressions(t *testing.T) {
	p, err := Unmarshal([]byte(samplePayload))
	require.NoError(t, err)
	dir := t.TempDir()

	for _, name := range []string{"scene.json", "scene.json.gz", "scene.json.zst", "scene.json.sz"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, p), name)
		got, err := ReadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, Fingerprint(p), Fingerprint(got), name)
	}
	assert.Equal(t, CompressionZstd, CompressionFor("a/b.ZST"))
}

func TestFingerprintIgnoresEntryOrder(t *testing.T) {
	a := &Payload{Version: 1, Dimension: 4, Voxels: []string{"0,0,0:ffffff:0", "1,0,0:000000:1"}}
	b := &Payload{Version: 1, Dimension: 4, Voxels: []string{"1,0,0:000000:1", "0,0,0:ffffff:0"}}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Equal(t, "0,0,0:ffffff:0", a.Voxels[0], "fingerprint must not reorder the caller's slice")

	b.AmbientStrength = 0.5
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestParseCoordIsStrict(t *testing.T) {
	c, err := ParseCoord("10,0,7")
	require.NoError(t, err)
	assert.Equal(t, volume.Coord{10, 0, 7}, c)

	for _, key := range []string{"+1,2,3", "1, 2,3", " 1,2,3", "1,2,3 ", "-0,1,2", "1,,3", "1,2", "0x1,2,3"} {
		_, err := ParseCoord(key)
		assert.ErrorIs(t, err, ErrMalformedPayload, key)
	}

	_, err = ParseEntry("1,2,3:ff0000:+1")
	assert.ErrorIs(t, err, ErrMalformedPayload, "signed material")
}
