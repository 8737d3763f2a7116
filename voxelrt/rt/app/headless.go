package app

import (
	"fmt"

	"github.com/gekko3d/voxcanvas"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
)

// Headless renders the session on a device without a window or surface.
// Frames are read back through Session.Frame.
type Headless struct {
	Session *voxcanvas.Session

	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Backend  *gpu.Device
}

func NewHeadless(session *voxcanvas.Session, log voxcanvas.Logger) (*Headless, error) {
	h := &Headless{Session: session, Instance: wgpu.CreateInstance(nil)}
	var err error
	h.Adapter, err = h.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		h.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	h.Device, err = h.Adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "Headless Device"})
	if err != nil {
		h.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	h.Backend, err = gpu.NewDevice(h.Device, log)
	if err != nil {
		h.Release()
		return nil, fmt.Errorf("render backend: %w", err)
	}
	session.Renderer().SetBackend(h.Backend)
	return h, nil
}

// Release hands the session back to the software backend and frees the device.
func (h *Headless) Release() {
	if h.Backend != nil {
		h.Session.Renderer().SetBackend(nil)
		h.Backend.Release()
		h.Backend = nil
	}
	if h.Device != nil {
		h.Device.Release()
		h.Device = nil
	}
	if h.Adapter != nil {
		h.Adapter.Release()
		h.Adapter = nil
	}
	if h.Instance != nil {
		h.Instance.Release()
		h.Instance = nil
	}
}
