package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/shaders"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/cogentcore/webgpu/wgpu"
)

// tracePass shades one progressive sample into the back accumulation texture
// and resolves it into the frame. Bind group i reads history from
// accumulation texture i.
type tracePass struct {
	pipeline  *wgpu.RenderPipeline
	uniforms  *wgpu.Buffer
	bindings  [2]*wgpu.BindGroup
	volume    volumeTextures
	accum     [2]*wgpu.TextureView
	stale     bool
	resolve   *wgpu.RenderPipeline
	resolveBG [2]*wgpu.BindGroup
}

func (p *tracePass) init(device *wgpu.Device) error {
	module, err := shaderModule(device, "Trace Shader", shaders.TraceWGSL)
	if err != nil {
		return err
	}
	defer module.Release()
	p.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Trace Pipeline",
		Vertex: wgpu.VertexState{Module: module, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    accumFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive:   wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return err
	}
	p.uniforms, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Trace Uniforms",
		Size:  uint64(unsafe.Sizeof(TraceUniforms{})),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	p.resolve, err = fullscreenPipeline(device, "Trace Resolve", FrameFormat, false)
	return err
}

// bindTargets points the pass at a new pair of accumulation textures.
func (p *tracePass) bindTargets(device *wgpu.Device, accum [2]*wgpu.TextureView, sampler *wgpu.Sampler) error {
	p.accum = accum
	p.stale = true
	for i := range p.resolveBG {
		if p.resolveBG[i] != nil {
			p.resolveBG[i].Release()
		}
		bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  fmt.Sprintf("Resolve BG %d", i),
			Layout: p.resolve.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: accum[i]},
				{Binding: 1, Sampler: sampler},
			},
		})
		if err != nil {
			return fmt.Errorf("resolve bind group: %w", err)
		}
		p.resolveBG[i] = bg
	}
	return nil
}

// upload copies the volume into 3D textures when the grid has been rebuilt.
func (p *tracePass) upload(device *wgpu.Device, queue *wgpu.Queue, src *volume.VolumeTextures) error {
	v := &p.volume
	if src == v.src {
		return nil
	}
	n := src.Dimension
	if v.dim != n {
		v.release()
		var err error
		v.color, v.colorView, err = volumeTexture(device, "Volume Color", wgpu.TextureFormatRGBA8Unorm, n)
		if err != nil {
			return err
		}
		v.material, v.materialView, err = volumeTexture(device, "Volume Material", wgpu.TextureFormatR8Uint, n)
		if err != nil {
			return err
		}
		v.dim = n
		p.stale = true
	}
	extent := wgpu.Extent3D{Width: uint32(n), Height: uint32(n), DepthOrArrayLayers: uint32(n)}
	if err := queue.WriteTexture(v.color.AsImageCopy(), src.ColorSpace,
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: uint32(4 * n), RowsPerImage: uint32(n)}, &extent); err != nil {
		return fmt.Errorf("volume color upload: %w", err)
	}
	if err := queue.WriteTexture(v.material.AsImageCopy(), src.MaterialSpace,
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: uint32(n), RowsPerImage: uint32(n)}, &extent); err != nil {
		return fmt.Errorf("volume material upload: %w", err)
	}
	v.src = src
	return nil
}

func volumeTexture(device *wgpu.Device, label string, format wgpu.TextureFormat, n int) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(n), Height: uint32(n), DepthOrArrayLayers: uint32(n)},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension3D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("%s view: %w", label, err)
	}
	return tex, view, nil
}

// rebind recreates both trace bind groups after the volume or the
// accumulation textures changed.
func (p *tracePass) rebind(device *wgpu.Device) error {
	for i := range p.bindings {
		if p.bindings[i] != nil {
			p.bindings[i].Release()
			p.bindings[i] = nil
		}
	}
	layout := p.pipeline.GetBindGroupLayout(0)
	for i := range p.bindings {
		bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  fmt.Sprintf("Trace BG %d", i),
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: p.uniforms, Size: p.uniforms.GetSize()},
				{Binding: 1, TextureView: p.volume.colorView},
				{Binding: 2, TextureView: p.volume.materialView},
				{Binding: 3, TextureView: p.accum[i]},
			},
		})
		if err != nil {
			return fmt.Errorf("trace bind group: %w", err)
		}
		p.bindings[i] = bg
	}
	p.stale = false
	return nil
}

// draw shades into target reading history from accumulation texture front,
// then resolves target into frame.
func (p *tracePass) draw(device *wgpu.Device, queue *wgpu.Queue, encoder *wgpu.CommandEncoder, f *Frame, front int, target, frame *wgpu.TextureView) error {
	if f.Volume == nil {
		return fmt.Errorf("trace frame without volume textures")
	}
	if err := p.upload(device, queue, f.Volume); err != nil {
		return err
	}
	if p.stale {
		if err := p.rebind(device); err != nil {
			return err
		}
	}
	queue.WriteBuffer(p.uniforms, 0, bytesOf(&f.Trace))

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{A: 1},
		}},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.bindings[front], nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return err
	}

	resolve := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    frame,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	resolve.SetPipeline(p.resolve)
	resolve.SetBindGroup(0, p.resolveBG[1-front], nil)
	resolve.Draw(3, 1, 0, 0)
	return resolve.End()
}

func (v *volumeTextures) release() {
	for _, view := range []*wgpu.TextureView{v.colorView, v.materialView} {
		if view != nil {
			view.Release()
		}
	}
	for _, tex := range []*wgpu.Texture{v.color, v.material} {
		if tex != nil {
			tex.Release()
		}
	}
	*v = volumeTextures{}
}

func (p *tracePass) release() {
	p.volume.release()
	for i := range p.bindings {
		if p.bindings[i] != nil {
			p.bindings[i].Release()
		}
		if p.resolveBG[i] != nil {
			p.resolveBG[i].Release()
		}
	}
	p.bindings, p.resolveBG = [2]*wgpu.BindGroup{}, [2]*wgpu.BindGroup{}
	for _, pl := range []*wgpu.RenderPipeline{p.pipeline, p.resolve} {
		if pl != nil {
			pl.Release()
		}
	}
	p.pipeline, p.resolve = nil, nil
	if p.uniforms != nil {
		p.uniforms.Release()
		p.uniforms = nil
	}
}
