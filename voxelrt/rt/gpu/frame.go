package gpu

import (
	"errors"
	"image"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrNoFrame = errors.New("no frame rendered")

// Backend executes planned frames. The device backend runs them on a webgpu
// device; the software backend runs the same plan on the CPU.
type Backend interface {
	// Resize recreates the size-dependent targets. Accumulated history is lost.
	Resize(width, height int) error
	Draw(f *Frame) error
	// Capture reads back the last drawn frame.
	Capture() (*image.RGBA, error)
	Release()
}

type Topology int

const (
	TopologyTriangles Topology = iota
	TopologyLines
)

// Vertex matches the raster shader's per-vertex input.
type Vertex struct {
	Pos   [3]float32
	Color [4]float32
}

// Instance matches the raster shader's per-instance input: a model matrix
// applied to the unit cube.
type Instance struct {
	Model mgl32.Mat4
	Color [4]float32
}

// Batch is one draw. With Instances set it draws the unit cube once per
// instance and ignores Vertices.
type Batch struct {
	Label     string
	Topology  Topology
	DepthTest bool
	Vertices  []Vertex
	Instances []Instance
	// Key is non-zero for static geometry a backend may keep between frames.
	Key uint64
}

// TraceUniforms is the tracer's uniform block. Vectors are padded to 16 bytes
// and the layout matches trace.wgsl.
type TraceUniforms struct {
	// Corner rays relative to Eye, ordered (-1,-1), (-1,+1), (+1,-1), (+1,+1).
	Rays       [4][4]float32
	Eye        [4]float32 // w: history weight
	GridOrigin [4]float32 // w: cell size
	SunCorner  [4]float32 // w: sun size
	SunColor   [4]float32 // w: sun strength
	Background [4]float32 // w: ambient
	Params     [4]uint32  // dimension, max bounces, seed, sample
	Viewport   [4]float32
}

func (u *TraceUniforms) Weight() float32 { return u.Eye[3] }

// Frame is the device-independent plan for one frame.
type Frame struct {
	Path           Path
	Width          int
	Height         int
	Background     mgl32.Vec3
	ViewProjection mgl32.Mat4
	Batches        []Batch

	Trace  TraceUniforms
	Volume *volume.VolumeTextures

	// HUD is the status panel composited at the top-left corner, or nil.
	HUD *image.RGBA
}

func vec4(v mgl32.Vec3, w float32) [4]float32 { return [4]float32{v[0], v[1], v[2], w} }

func rgba(c mgl32.Vec3) [4]float32 { return vec4(c, 1) }
