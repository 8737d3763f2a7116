package app

import (
	"fmt"
	"time"

	"github.com/gekko3d/voxcanvas"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/gpu"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// wheelStep converts one scroll notch to the pixel-like delta the input
// controller expects.
const wheelStep = 100

// App renders the session on the window's device and presents the resolved
// frame through a fullscreen blit. Window input is fed back to the session.
type App struct {
	Window  *glfw.Window
	Session *voxcanvas.Session
	Log     voxcanvas.Logger

	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Backend        *gpu.Device
	RenderPipeline *wgpu.RenderPipeline
	Sampler        *wgpu.Sampler
	RenderBG       *wgpu.BindGroup

	Profiler  *Profiler
	DebugMode bool
	// SavePath is written on Ctrl+S and when the window closes with unsaved changes.
	SavePath string

	clock      *voxcanvas.Clock
	blitView   *wgpu.TextureView
	cursorX    float64
	cursorY    float64
	control    bool
	reportTime time.Time
}

func NewApp(window *glfw.Window, session *voxcanvas.Session, log voxcanvas.Logger) *App {
	if log == nil {
		log = voxcanvas.NewNopLogger()
	}
	return &App{
		Window:   window,
		Session:  session,
		Log:      log,
		Profiler: NewProfiler(),
		clock:    voxcanvas.NewClock(),
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	a.Backend, err = gpu.NewDevice(a.Device, a.Log)
	if err != nil {
		return fmt.Errorf("render backend: %w", err)
	}
	a.Session.Renderer().SetBackend(a.Backend)

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      surfaceFormat(caps.Formats),
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	if width > 0 && height > 0 {
		a.Surface.Configure(adapter, a.Device, a.Config)
	}

	module, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Fullscreen VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.FullscreenWGSL},
	})
	if err != nil {
		return fmt.Errorf("fullscreen shader: %w", err)
	}
	a.RenderPipeline, err = a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Blit Pipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    a.Config.Format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("blit pipeline: %w", err)
	}

	a.Sampler, err = a.Device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeNearest,
		MagFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("sampler: %w", err)
	}

	a.clock = voxcanvas.NewClock()
	a.reportTime = a.clock.Time
	return nil
}

// surfaceFormat prefers a linear format; frames already hold display values.
func surfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f
		}
	}
	return formats[0]
}

// bindFrame points the blit at the backend's frame view, which is replaced
// whenever the backend resizes.
func (a *App) bindFrame() error {
	view := a.Backend.FrameView()
	if view == nil || view == a.blitView {
		return nil
	}
	if a.RenderBG != nil {
		a.RenderBG.Release()
		a.RenderBG = nil
	}
	bg, err := a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: a.RenderPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: a.Sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("blit bind group: %w", err)
	}
	a.RenderBG, a.blitView = bg, view
	return nil
}

// Resize reconfigures the surface. A minimised window keeps the old targets
// and the session skips its frames. The backend follows on the next Render.
func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
}

// InstallCallbacks routes window input to the session. Cursor coordinates are
// scaled to framebuffer pixels.
func (a *App) InstallCallbacks() {
	a.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		a.Resize(width, height)
	})

	a.Window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		x, y := a.toFramebuffer(xpos, ypos)
		dx, dy := x-a.cursorX, y-a.cursorY
		a.cursorX, a.cursorY = x, y
		a.Session.PointerMove(float32(x), float32(y), float32(dx), float32(dy))
	})

	a.Window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			a.Session.PointerDown(float32(a.cursorX), float32(a.cursorY))
		case glfw.Release:
			a.Session.PointerUp()
		}
	})

	a.Window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		a.Session.Wheel(float32(a.cursorX), float32(a.cursorY), float32(-yoff*wheelStep))
	})

	a.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		a.handleKey(key, action)
	})
}

func (a *App) handleKey(key glfw.Key, action glfw.Action) {
	k, ok := glfwToKey[key]
	if !ok {
		return
	}
	switch action {
	case glfw.Press, glfw.Repeat:
		if k == voxcanvas.KeyControl {
			a.control = true
		}
		if k == voxcanvas.KeyEscape {
			a.Window.SetShouldClose(true)
			return
		}
		if k == voxcanvas.KeyS && a.control {
			a.save()
			return
		}
		if action == glfw.Press || k == voxcanvas.KeyUp || k == voxcanvas.KeyDown {
			a.Session.KeyDown(k)
		}
	case glfw.Release:
		if k == voxcanvas.KeyControl {
			a.control = false
		}
		a.Session.KeyUp(k)
	}
}

func (a *App) save() {
	if a.SavePath == "" {
		a.Log.Warnf("no save path configured")
		return
	}
	if err := a.Session.SaveFile(a.SavePath); err != nil {
		a.Log.Errorf("save %s: %v", a.SavePath, err)
	}
}

func (a *App) toFramebuffer(x, y float64) (float64, float64) {
	ww, wh := a.Window.GetSize()
	fw, fh := a.Window.GetFramebufferSize()
	if ww == 0 || wh == 0 {
		return x, y
	}
	return x * float64(fw) / float64(ww), y * float64(fh) / float64(wh)
}

// Update advances the session by the frame delta.
func (a *App) Update() {
	a.Profiler.BeginScope("tick")
	a.Session.Tick(a.clock.Tick())
	a.Profiler.EndScope("tick")
}

// Render draws the session frame on the device and presents it.
func (a *App) Render() {
	w, h := a.Window.GetFramebufferSize()

	a.Profiler.BeginScope("render")
	res, err := a.Session.Render(w, h)
	a.Profiler.EndScope("render")
	if err != nil {
		a.Log.Errorf("render %s: %v", res.Path, err)
		return
	}
	if res.Skipped {
		return
	}
	if err := a.bindFrame(); err != nil {
		a.Log.Errorf("%v", err)
		return
	}

	a.present()
	a.Profiler.SetCount("samples", a.Session.State().SampleCount)
	a.Profiler.SetCount("voxels", a.Session.Grid().Len())
	a.Profiler.EndFrame()

	if a.DebugMode && a.clock.Time.Sub(a.reportTime) >= time.Second {
		a.Log.Debugf("%s path=%s frames=%d", a.Profiler.Summary(), res.Path, a.Profiler.Frames)
		a.Profiler.Reset()
		a.reportTime = a.clock.Time
	}
}

func (a *App) present() {
	next, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Log.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer next.Release()

	view, err := next.CreateView(nil)
	if err != nil {
		a.Log.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Log.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(a.RenderPipeline)
	pass.SetBindGroup(0, a.RenderBG, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		a.Log.Errorf("blit pass End failed: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Log.Errorf("Encoder Finish failed: %v", err)
		return
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()
}

// Run polls events and draws frames until the window closes.
func (a *App) Run() {
	for !a.Window.ShouldClose() {
		glfw.PollEvents()
		a.Update()
		a.Render()
	}
	if a.SavePath != "" && a.Session.HasUnsavedChanges() {
		a.save()
	}
}

// Release frees the GPU objects in reverse creation order.
func (a *App) Release() {
	if a.RenderBG != nil {
		a.RenderBG.Release()
	}
	if a.Backend != nil {
		a.Session.Renderer().SetBackend(nil)
		a.Backend.Release()
	}
	if a.Sampler != nil {
		a.Sampler.Release()
	}
	if a.RenderPipeline != nil {
		a.RenderPipeline.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}

var glfwToKey = map[glfw.Key]voxcanvas.Key{
	glfw.Key1:            voxcanvas.Key1,
	glfw.Key2:            voxcanvas.Key2,
	glfw.Key3:            voxcanvas.Key3,
	glfw.Key4:            voxcanvas.Key4,
	glfw.KeyX:            voxcanvas.KeyX,
	glfw.KeyY:            voxcanvas.KeyY,
	glfw.KeyZ:            voxcanvas.KeyZ,
	glfw.KeyR:            voxcanvas.KeyR,
	glfw.KeyS:            voxcanvas.KeyS,
	glfw.KeyTab:          voxcanvas.KeyTab,
	glfw.KeyEscape:       voxcanvas.KeyEscape,
	glfw.KeyUp:           voxcanvas.KeyUp,
	glfw.KeyDown:         voxcanvas.KeyDown,
	glfw.KeyPageUp:       voxcanvas.KeyPageUp,
	glfw.KeyPageDown:     voxcanvas.KeyPageDown,
	glfw.KeyLeftShift:    voxcanvas.KeyShift,
	glfw.KeyRightShift:   voxcanvas.KeyShift,
	glfw.KeyLeftControl:  voxcanvas.KeyControl,
	glfw.KeyRightControl: voxcanvas.KeyControl,
}
