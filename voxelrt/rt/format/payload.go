// Package format reads and writes the canvas scene payload: a JSON document
// with scalar scene settings, the viewer camera and one string entry per voxel.
package format

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	CurrentVersion = 1
	MinDimension   = 1
	MaxDimension   = 256
)

var (
	ErrMalformedPayload     = errors.New("malformed payload")
	ErrUnsupportedDimension = errors.New("unsupported dimension")
	ErrUnsupportedVersion   = errors.New("unsupported payload version")
)

// Payload is the wire form of a saved canvas.
type Payload struct {
	Version            int      `json:"version"`
	Dimension          int      `json:"dimension"`
	PointLightPosition string   `json:"pointLightPosition"`
	BackgroundColor    string   `json:"backgroundColor"`
	AmbientStrength    float32  `json:"ambientStrength"`
	PointLightStrength float32  `json:"pointLightStrength"`
	ViewerRef          RefVec   `json:"viewerRef"`
	ViewerTheta        float32  `json:"viewerTheta"`
	ViewerPhi          float32  `json:"viewerPhi"`
	ViewerR            float32  `json:"viewerR"`
	Voxels             []string `json:"voxels"`
}

// Entry is one decoded voxel.
type Entry struct {
	Coord    volume.Coord
	Color    mgl32.Vec3
	Material volume.Material
}

// Canvas is the decoded payload.
type Canvas struct {
	Version            int
	Dimension          int
	PointLightPosition mgl32.Vec3
	BackgroundColor    mgl32.Vec3
	AmbientStrength    float32
	PointLightStrength float32
	ViewerRef          mgl32.Vec3
	ViewerTheta        float32
	ViewerPhi          float32
	ViewerRadius       float32
	Voxels             []Entry
}

// Decode validates a payload and converts it to typed values. Any bad entry
// fails the whole payload.
func Decode(p *Payload) (*Canvas, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrMalformedPayload)
	}
	if p.Version < 1 || p.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}
	if p.Dimension < MinDimension || p.Dimension > MaxDimension {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrUnsupportedDimension, p.Dimension, MinDimension, MaxDimension)
	}
	light, err := ParseVec3(p.PointLightPosition)
	if err != nil {
		return nil, fmt.Errorf("pointLightPosition: %w", err)
	}
	bg, err := ParseHexColor(p.BackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("backgroundColor: %w", err)
	}
	c := &Canvas{
		Version:            p.Version,
		Dimension:          p.Dimension,
		PointLightPosition: light,
		BackgroundColor:    bg,
		AmbientStrength:    p.AmbientStrength,
		PointLightStrength: p.PointLightStrength,
		ViewerRef:          mgl32.Vec3(p.ViewerRef),
		ViewerTheta:        p.ViewerTheta,
		ViewerPhi:          p.ViewerPhi,
		ViewerRadius:       p.ViewerR,
		Voxels:             make([]Entry, 0, len(p.Voxels)),
	}
	for i, s := range p.Voxels {
		e, err := ParseEntry(s)
		if err != nil {
			return nil, fmt.Errorf("voxel %d: %w", i, err)
		}
		for _, v := range e.Coord {
			if v >= p.Dimension {
				return nil, fmt.Errorf("voxel %d: %w: coordinate %v outside dimension %d", i, ErrMalformedPayload, e.Coord, p.Dimension)
			}
		}
		c.Voxels = append(c.Voxels, e)
	}
	return c, nil
}

// Encode is the inverse of Decode. Version is always written as CurrentVersion.
func Encode(c *Canvas) *Payload {
	p := &Payload{
		Version:            CurrentVersion,
		Dimension:          c.Dimension,
		PointLightPosition: FormatVec3(c.PointLightPosition),
		BackgroundColor:    FormatHexColor(c.BackgroundColor),
		AmbientStrength:    c.AmbientStrength,
		PointLightStrength: c.PointLightStrength,
		ViewerRef:          RefVec(c.ViewerRef),
		ViewerTheta:        c.ViewerTheta,
		ViewerPhi:          c.ViewerPhi,
		ViewerR:            c.ViewerRadius,
		Voxels:             make([]string, 0, len(c.Voxels)),
	}
	for _, e := range c.Voxels {
		p.Voxels = append(p.Voxels, FormatEntry(e))
	}
	return p
}

// ParseEntry decodes "x,y,z:rrggbb:material".
func ParseEntry(s string) (Entry, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("%w: voxel entry %q", ErrMalformedPayload, s)
	}
	coord, err := ParseCoord(parts[0])
	if err != nil {
		return Entry{}, err
	}
	col, err := ParseHexColor(parts[1])
	if err != nil {
		return Entry{}, err
	}
	m, ok := parseDigits(parts[2])
	if !ok || !volume.Material(m).Valid() {
		return Entry{}, fmt.Errorf("%w: material %q", ErrMalformedPayload, parts[2])
	}
	return Entry{Coord: coord, Color: col, Material: volume.Material(m)}, nil
}

func FormatEntry(e Entry) string {
	return FormatCoord(e.Coord) + ":" + FormatHexColor(e.Color) + ":" + strconv.Itoa(int(e.Material))
}

// ParseCoord decodes the "x,y,z" coordinate key. Components are plain decimal
// digits: no sign and no surrounding whitespace.
func ParseCoord(s string) (volume.Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return volume.Coord{}, fmt.Errorf("%w: coordinate key %q", ErrMalformedPayload, s)
	}
	var c volume.Coord
	for i, p := range parts {
		v, ok := parseDigits(p)
		if !ok {
			return volume.Coord{}, fmt.Errorf("%w: coordinate key %q", ErrMalformedPayload, s)
		}
		c[i] = v
	}
	return c, nil
}

// parseDigits accepts [0-9]+ only.
func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}

func FormatCoord(c volume.Coord) string {
	return strconv.Itoa(c[0]) + "," + strconv.Itoa(c[1]) + "," + strconv.Itoa(c[2])
}

// ParseHexColor accepts "rrggbb" with an optional leading '#'.
func ParseHexColor(s string) (mgl32.Vec3, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return mgl32.Vec3{}, fmt.Errorf("%w: colour %q", ErrMalformedPayload, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("%w: colour %q", ErrMalformedPayload, s)
	}
	return mgl32.Vec3{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}

func FormatHexColor(c mgl32.Vec3) string {
	return fmt.Sprintf("%02x%02x%02x", channel(c[0]), channel(c[1]), channel(c[2]))
}

func channel(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// ParseVec3 decodes "x,y,z".
func ParseVec3(s string) (mgl32.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("%w: vector %q", ErrMalformedPayload, s)
	}
	var out mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("%w: vector %q", ErrMalformedPayload, s)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func FormatVec3(v mgl32.Vec3) string {
	f := func(x float32) string { return strconv.FormatFloat(float64(x), 'g', -1, 32) }
	return f(v[0]) + "," + f(v[1]) + "," + f(v[2])
}

// RefVec is the viewer reference point. It is written as a JSON array; older
// payloads stored it as an index-keyed object or an "x,y,z" string.
type RefVec [3]float32

func (r RefVec) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float32(r))
}

func (r *RefVec) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*r = RefVec{}
		return nil
	case strings.HasPrefix(trimmed, "["):
		var arr [3]float32
		if err := json.Unmarshal(data, &arr); err != nil {
			return fmt.Errorf("%w: viewerRef: %v", ErrMalformedPayload, err)
		}
		*r = arr
		return nil
	case strings.HasPrefix(trimmed, "{"):
		var obj map[string]float32
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("%w: viewerRef: %v", ErrMalformedPayload, err)
		}
		for i, k := range [3]string{"0", "1", "2"} {
			v, ok := obj[k]
			if !ok {
				return fmt.Errorf("%w: viewerRef missing component %s", ErrMalformedPayload, k)
			}
			r[i] = v
		}
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: viewerRef: %v", ErrMalformedPayload, err)
		}
		v, err := ParseVec3(s)
		if err != nil {
			return err
		}
		*r = RefVec(v)
		return nil
	}
	return fmt.Errorf("%w: viewerRef %s", ErrMalformedPayload, trimmed)
}
