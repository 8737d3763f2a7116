package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

type pipelineKey struct {
	topology  Topology
	depthTest bool
	instanced bool
}

// rasterPass draws planned batches with one pipeline per topology, depth mode
// and vertex layout. All variants share the camera bind group.
type rasterPass struct {
	module    *wgpu.ShaderModule
	cameraBGL *wgpu.BindGroupLayout
	layout    *wgpu.PipelineLayout
	pipelines map[pipelineKey]*wgpu.RenderPipeline

	cameraBuf *wgpu.Buffer
	cameraBG  *wgpu.BindGroup
	cubeBuf   *wgpu.Buffer

	vertexBuf   *wgpu.Buffer
	instanceBuf *wgpu.Buffer

	// static geometry kept between frames, keyed by Batch.Key
	staticBuf   *wgpu.Buffer
	staticKey   uint64
	staticCount uint32
}

func (p *rasterPass) init(device *wgpu.Device) error {
	var err error
	p.module, err = shaderModule(device, "Raster Shader", shaders.RasterWGSL)
	if err != nil {
		return err
	}
	p.cameraBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "RasterCameraBGL",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: 64,
			},
		}},
	})
	if err != nil {
		return err
	}
	p.layout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.cameraBGL},
	})
	if err != nil {
		return err
	}
	p.pipelines = make(map[pipelineKey]*wgpu.RenderPipeline)

	p.cameraBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Raster Camera",
		Size:  64,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	p.cameraBG, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Raster Camera BG",
		Layout:  p.cameraBGL,
		Entries: []wgpu.BindGroupEntry{{Binding: 0, Buffer: p.cameraBuf, Size: 64}},
	})
	if err != nil {
		return err
	}
	p.cubeBuf, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Unit Cube",
		Contents: wgpu.ToBytes(unitCubeVertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	return err
}

func (p *rasterPass) pipeline(device *wgpu.Device, key pipelineKey) (*wgpu.RenderPipeline, error) {
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}

	vertex := wgpu.VertexState{Module: p.module, EntryPoint: "vs_main"}
	if key.instanced {
		vertex.EntryPoint = "vs_cube"
		vertex.Buffers = []wgpu.VertexBufferLayout{
			{
				ArrayStride: uint64(unsafe.Sizeof([3]float32{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				},
			},
			{
				ArrayStride: uint64(unsafe.Sizeof(Instance{})),
				StepMode:    wgpu.VertexStepModeInstance,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 2},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 3},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 4},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 5},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 64, ShaderLocation: 6},
				},
			},
		}
	} else {
		vertex.Buffers = []wgpu.VertexBufferLayout{{
			ArrayStride: uint64(unsafe.Sizeof(Vertex{})),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
			},
		}}
	}

	topology := wgpu.PrimitiveTopologyTriangleList
	if key.topology == TopologyLines {
		topology = wgpu.PrimitiveTopologyLineList
	}
	depth := &wgpu.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: key.depthTest,
		DepthCompare:      wgpu.CompareFunctionAlways,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
	if key.depthTest {
		depth.DepthCompare = wgpu.CompareFunctionLess
		if key.topology == TopologyLines {
			// edges lying on a face win
			depth.DepthCompare = wgpu.CompareFunctionLessEqual
		}
	}

	pl, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("Raster %+v", key),
		Layout: p.layout,
		Vertex: vertex,
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    FrameFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: depth,
		Multisample:  wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return nil, err
	}
	p.pipelines[key] = pl
	return pl, nil
}

type rasterDraw struct {
	pipeline  *wgpu.RenderPipeline
	static    bool
	instanced bool
	first     uint32
	count     uint32
}

// draw uploads the frame's batches and records one render pass that clears to
// the background and draws them in order.
func (p *rasterPass) draw(device *wgpu.Device, queue *wgpu.Queue, encoder *wgpu.CommandEncoder, f *Frame, color, depth *wgpu.TextureView) error {
	queue.WriteBuffer(p.cameraBuf, 0, bytesOf(&f.ViewProjection))

	var vertices []Vertex
	var instances []Instance
	draws := make([]rasterDraw, 0, len(f.Batches))
	for i := range f.Batches {
		b := &f.Batches[i]
		key := pipelineKey{topology: b.Topology, depthTest: b.DepthTest, instanced: len(b.Instances) > 0}
		pl, err := p.pipeline(device, key)
		if err != nil {
			return fmt.Errorf("%s pipeline: %w", b.Label, err)
		}
		switch {
		case key.instanced:
			draws = append(draws, rasterDraw{pipeline: pl, instanced: true, first: uint32(len(instances)), count: uint32(len(b.Instances))})
			instances = append(instances, b.Instances...)
		case b.Key != 0:
			if err := p.uploadStatic(device, queue, b); err != nil {
				return err
			}
			draws = append(draws, rasterDraw{pipeline: pl, static: true, count: p.staticCount})
		case len(b.Vertices) > 0:
			draws = append(draws, rasterDraw{pipeline: pl, first: uint32(len(vertices)), count: uint32(len(b.Vertices))})
			vertices = append(vertices, b.Vertices...)
		}
	}
	if len(vertices) > 0 {
		if err := ensureBuffer(device, &p.vertexBuf, "Raster Vertices", uint64(len(vertices))*uint64(unsafe.Sizeof(Vertex{})), wgpu.BufferUsageVertex); err != nil {
			return err
		}
		queue.WriteBuffer(p.vertexBuf, 0, wgpu.ToBytes(vertices))
	}
	if len(instances) > 0 {
		if err := ensureBuffer(device, &p.instanceBuf, "Raster Instances", uint64(len(instances))*uint64(unsafe.Sizeof(Instance{})), wgpu.BufferUsageVertex); err != nil {
			return err
		}
		queue.WriteBuffer(p.instanceBuf, 0, wgpu.ToBytes(instances))
	}

	bg := f.Background
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       color,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(bg[0]), G: float64(bg[1]), B: float64(bg[2]), A: 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depth,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	pass.SetBindGroup(0, p.cameraBG, nil)
	for _, d := range draws {
		if d.count == 0 {
			continue
		}
		pass.SetPipeline(d.pipeline)
		switch {
		case d.static:
			pass.SetVertexBuffer(0, p.staticBuf, 0, p.staticBuf.GetSize())
			pass.Draw(d.count, 1, 0, 0)
		case d.instanced:
			pass.SetVertexBuffer(0, p.cubeBuf, 0, p.cubeBuf.GetSize())
			pass.SetVertexBuffer(1, p.instanceBuf, 0, p.instanceBuf.GetSize())
			pass.Draw(uint32(len(unitCubeVertices)), d.count, 0, d.first)
		default:
			pass.SetVertexBuffer(0, p.vertexBuf, 0, p.vertexBuf.GetSize())
			pass.Draw(d.count, 1, d.first, 0)
		}
	}
	return pass.End()
}

// uploadStatic replaces the static buffer when the batch key changes.
func (p *rasterPass) uploadStatic(device *wgpu.Device, queue *wgpu.Queue, b *Batch) error {
	if p.staticBuf != nil && p.staticKey == b.Key {
		return nil
	}
	p.staticKey, p.staticCount = 0, 0
	if len(b.Vertices) == 0 {
		return nil
	}
	if err := ensureBuffer(device, &p.staticBuf, "Raster Static", uint64(len(b.Vertices))*uint64(unsafe.Sizeof(Vertex{})), wgpu.BufferUsageVertex); err != nil {
		return err
	}
	queue.WriteBuffer(p.staticBuf, 0, wgpu.ToBytes(b.Vertices))
	p.staticKey, p.staticCount = b.Key, uint32(len(b.Vertices))
	return nil
}

func (p *rasterPass) release() {
	for _, pl := range p.pipelines {
		pl.Release()
	}
	p.pipelines = nil
	for _, b := range []*wgpu.Buffer{p.cameraBuf, p.cubeBuf, p.vertexBuf, p.instanceBuf, p.staticBuf} {
		if b != nil {
			b.Release()
		}
	}
	p.cameraBuf, p.cubeBuf, p.vertexBuf, p.instanceBuf, p.staticBuf = nil, nil, nil, nil, nil
	if p.cameraBG != nil {
		p.cameraBG.Release()
		p.cameraBG = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.cameraBGL != nil {
		p.cameraBGL.Release()
		p.cameraBGL = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
