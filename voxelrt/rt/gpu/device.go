package gpu

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/shaders"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/dustin/go-humanize"
)

const (
	// FrameFormat is the format of the texture every path resolves into.
	FrameFormat = wgpu.TextureFormatRGBA8Unorm
	depthFormat = wgpu.TextureFormatDepth32Float
	accumFormat = wgpu.TextureFormatRGBA16Float
)

// Device runs frames on a webgpu device. The raster paths draw depth-tested
// batches into the frame texture; the trace path shades into one of two
// accumulation textures, reading history from the other, and resolves into
// the frame texture.
type Device struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	log    Logger

	width, height int

	frameTex  *wgpu.Texture
	frameView *wgpu.TextureView
	depthTex  *wgpu.Texture
	depthView *wgpu.TextureView
	accumTex  [2]*wgpu.Texture
	accumView [2]*wgpu.TextureView
	front     int

	sampler *wgpu.Sampler
	raster  rasterPass
	trace   tracePass
	overlay overlayPass

	readback *wgpu.Buffer
	drawn    bool
}

// NewDevice builds the pipelines on device. Targets are created by Resize.
func NewDevice(device *wgpu.Device, log Logger) (*Device, error) {
	if log == nil {
		log = nopLogger{}
	}
	d := &Device{device: device, queue: device.GetQueue(), log: log}

	var err error
	d.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeNearest,
		MagFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}
	if err := d.raster.init(device); err != nil {
		d.Release()
		return nil, fmt.Errorf("raster pass: %w", err)
	}
	if err := d.trace.init(device); err != nil {
		d.Release()
		return nil, fmt.Errorf("trace pass: %w", err)
	}
	if err := d.overlay.init(device); err != nil {
		d.Release()
		return nil, fmt.Errorf("overlay pass: %w", err)
	}
	return d, nil
}

// FrameView is the resolved frame for presentation. It changes on Resize.
func (d *Device) FrameView() *wgpu.TextureView { return d.frameView }

func (d *Device) Resize(width, height int) error {
	d.releaseTargets()
	d.drawn = false
	if width <= 0 || height <= 0 {
		return nil
	}
	d.width, d.height = width, height

	var err error
	d.frameTex, d.frameView, err = d.target("Frame Tex", FrameFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc)
	if err != nil {
		return err
	}
	d.depthTex, d.depthView, err = d.target("Depth Tex", depthFormat, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return err
	}
	for i := range d.accumTex {
		d.accumTex[i], d.accumView[i], err = d.target(fmt.Sprintf("Accum Tex %d", i), accumFormat,
			wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
		if err != nil {
			return err
		}
	}
	d.front = 0
	if err := d.trace.bindTargets(d.device, d.accumView, d.sampler); err != nil {
		return err
	}
	d.log.Debugf("device targets %dx%d: %s", width, height, humanize.Bytes(uint64(width*height*(4+4+2*8))))
	return nil
}

func (d *Device) target(label string, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(d.width), Height: uint32(d.height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
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

func (d *Device) Draw(f *Frame) error {
	if d.frameTex == nil {
		return ErrNoFrame
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	switch f.Path {
	case PathEditor, PathPreview:
		err = d.raster.draw(d.device, d.queue, encoder, f, d.frameView, d.depthView)
	case PathTrace:
		back := 1 - d.front
		err = d.trace.draw(d.device, d.queue, encoder, f, d.front, d.accumView[back], d.frameView)
	}
	if err != nil {
		return err
	}
	if f.HUD != nil {
		if err := d.overlay.draw(d.device, d.queue, encoder, f.HUD, d.sampler, d.frameView); err != nil {
			return err
		}
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmd.Release()
	d.queue.Submit(cmd)

	if f.Path == PathTrace {
		d.front = 1 - d.front
	}
	d.drawn = true
	return nil
}

// Capture copies the frame texture back to host memory and waits for it.
func (d *Device) Capture() (*image.RGBA, error) {
	if !d.drawn {
		return nil, ErrNoFrame
	}
	bytesPerRow := uint32(d.width*4+255) &^ 255
	size := uint64(bytesPerRow) * uint64(d.height)
	if d.readback == nil || d.readback.GetSize() < size {
		if d.readback != nil {
			d.readback.Release()
		}
		var err error
		d.readback, err = d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Frame Readback",
			Size:  size,
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("readback buffer: %w", err)
		}
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: d.frameTex, MipLevel: 0, Origin: wgpu.Origin3D{}},
		&wgpu.ImageCopyBuffer{
			Buffer: d.readback,
			Layout: wgpu.TextureDataLayout{Offset: 0, BytesPerRow: bytesPerRow, RowsPerImage: uint32(d.height)},
		},
		&wgpu.Extent3D{Width: uint32(d.width), Height: uint32(d.height), DepthOrArrayLayers: 1},
	)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	defer cmd.Release()
	d.queue.Submit(cmd)

	mapped := false
	d.readback.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		mapped = status == wgpu.BufferMapAsyncStatusSuccess
	})
	d.device.Poll(true, nil)
	if !mapped {
		return nil, errors.New("frame readback: buffer map failed")
	}
	defer d.readback.Unmap()

	data := d.readback.GetMappedRange(0, uint(size))
	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	for y := 0; y < d.height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+d.width*4], data[y*int(bytesPerRow):])
	}
	return img, nil
}

func (d *Device) releaseTargets() {
	for _, v := range []*wgpu.TextureView{d.frameView, d.depthView, d.accumView[0], d.accumView[1]} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{d.frameTex, d.depthTex, d.accumTex[0], d.accumTex[1]} {
		if t != nil {
			t.Release()
		}
	}
	d.frameTex, d.frameView, d.depthTex, d.depthView = nil, nil, nil, nil
	d.accumTex, d.accumView = [2]*wgpu.Texture{}, [2]*wgpu.TextureView{}
	d.width, d.height = 0, 0
}

func (d *Device) Release() {
	d.releaseTargets()
	d.raster.release()
	d.trace.release()
	d.overlay.release()
	if d.readback != nil {
		d.readback.Release()
		d.readback = nil
	}
	if d.sampler != nil {
		d.sampler.Release()
		d.sampler = nil
	}
	d.drawn = false
}

// ensureBuffer grows buf to hold at least size bytes.
func ensureBuffer(device *wgpu.Device, buf **wgpu.Buffer, label string, size uint64, usage wgpu.BufferUsage) error {
	if *buf != nil && (*buf).GetSize() >= size {
		return nil
	}
	if *buf != nil {
		(*buf).Release()
		*buf = nil
	}
	capacity := uint64(256)
	for capacity < size {
		capacity *= 2
	}
	b, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  capacity,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	*buf = b
	return nil
}

func bytesOf[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

func shaderModule(device *wgpu.Device, label, code string) (*wgpu.ShaderModule, error) {
	return device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
}

// fullscreenPipeline draws the viewport-covering triangle of fullscreen.wgsl
// into format, optionally blending a premultiplied source over the target.
func fullscreenPipeline(device *wgpu.Device, label string, format wgpu.TextureFormat, blend bool) (*wgpu.RenderPipeline, error) {
	module, err := shaderModule(device, label, shaders.FullscreenWGSL)
	if err != nil {
		return nil, err
	}
	defer module.Release()
	target := wgpu.ColorTargetState{Format: format, WriteMask: wgpu.ColorWriteMaskAll}
	if blend {
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		}
	}
	return device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label,
		Vertex: wgpu.VertexState{Module: module, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive:   wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
}

// overlayPass blends the HUD panel over the top-left corner of the frame.
type overlayPass struct {
	pipeline *wgpu.RenderPipeline
	tex      *wgpu.Texture
	view     *wgpu.TextureView
	bg       *wgpu.BindGroup
	size     image.Point
}

func (p *overlayPass) init(device *wgpu.Device) error {
	var err error
	p.pipeline, err = fullscreenPipeline(device, "HUD Overlay", FrameFormat, true)
	return err
}

func (p *overlayPass) draw(device *wgpu.Device, queue *wgpu.Queue, encoder *wgpu.CommandEncoder, panel *image.RGBA, sampler *wgpu.Sampler, dst *wgpu.TextureView) error {
	size := panel.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil
	}
	if p.tex == nil || p.size != size {
		p.releaseTexture()
		tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "HUD Tex",
			Size:          wgpu.Extent3D{Width: uint32(size.X), Height: uint32(size.Y), DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        wgpu.TextureFormatRGBA8Unorm,
			Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
			SampleCount:   1,
		})
		if err != nil {
			return fmt.Errorf("hud texture: %w", err)
		}
		p.tex, p.size = tex, size
		if p.view, err = tex.CreateView(nil); err != nil {
			return fmt.Errorf("hud view: %w", err)
		}
		p.bg, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: p.pipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: p.view},
				{Binding: 1, Sampler: sampler},
			},
		})
		if err != nil {
			return fmt.Errorf("hud bind group: %w", err)
		}
	}
	err := queue.WriteTexture(
		p.tex.AsImageCopy(),
		panel.Pix,
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: uint32(panel.Stride), RowsPerImage: uint32(size.Y)},
		&wgpu.Extent3D{Width: uint32(size.X), Height: uint32(size.Y), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("hud upload: %w", err)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    dst,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.bg, nil)
	pass.SetViewport(0, 0, float32(size.X), float32(size.Y), 0, 1)
	pass.Draw(3, 1, 0, 0)
	return pass.End()
}

func (p *overlayPass) releaseTexture() {
	if p.bg != nil {
		p.bg.Release()
	}
	if p.view != nil {
		p.view.Release()
	}
	if p.tex != nil {
		p.tex.Release()
	}
	p.bg, p.view, p.tex, p.size = nil, nil, nil, image.Point{}
}

func (p *overlayPass) release() {
	p.releaseTexture()
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}

// volumeTextures holds the grid uploaded as two 3D textures.
type volumeTextures struct {
	src          *volume.VolumeTextures
	dim          int
	color        *wgpu.Texture
	colorView    *wgpu.TextureView
	material     *wgpu.Texture
	materialView *wgpu.TextureView
}
