// Package webgpu implements a pulse.Driver on top of wgpu-native.
package webgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

var forceFallbackAdapter = os.Getenv("WGPU_FORCE_FALLBACK_ADAPTER") == "1"

func init() {
	// the surface must be driven from the main thread on most platforms
	runtime.LockOSThread()

	switch strings.ToUpper(os.Getenv("WGPU_LOG_LEVEL")) {
	case "OFF":
		wgpu.SetLogLevel(wgpu.LogLevelOff)
	case "ERROR":
		wgpu.SetLogLevel(wgpu.LogLevelError)
	case "WARN":
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	case "INFO":
		wgpu.SetLogLevel(wgpu.LogLevelInfo)
	case "DEBUG":
		wgpu.SetLogLevel(wgpu.LogLevelDebug)
	case "TRACE":
		wgpu.SetLogLevel(wgpu.LogLevelTrace)
	}
}

// defaultLimits are the limits of a device requested without any
// required limits.
var defaultLimits = pulse.Limits{
	MaxTextureDimension2D: 8192,
}

var ErrNoSurfaceDescriptor = errors.New("window does not provide a surface descriptor")

// SurfaceWindow is a window wgpu can create a surface for.
type SurfaceWindow interface {
	pulse.Window
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

type Options struct {
	// prefer a software adapter, defaults to the value of the
	// WGPU_FORCE_FALLBACK_ADAPTER environment variable
	ForceFallbackAdapter bool

	PowerPreference wgpu.PowerPreference
}

type Driver struct {
	opts Options
}

func New(opts Options) *Driver {
	opts.ForceFallbackAdapter = opts.ForceFallbackAdapter || forceFallbackAdapter
	return &Driver{opts: opts}
}

func (d *Driver) Name() string {
	return "webgpu"
}

func (d *Driver) Open(win pulse.Window) (dev pulse.Device, err error) {
	surfaceWindow, ok := win.(SurfaceWindow)
	if !ok {
		return nil, &pulse.NoDeviceError{Driver: d.Name(), Err: ErrNoSurfaceDescriptor}
	}

	st := &Device{win: surfaceWindow}

	defer func() {
		if err != nil {
			st.Release()
		}
	}()

	defer recoverError(&err, func(err error) error {
		return &pulse.DeviceCreationError{Driver: d.Name(), Err: err}
	})

	// create the webgpu instance
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	// create a surface based on the window
	st.surface = instance.CreateSurface(surfaceWindow.SurfaceDescriptor())

	// find an adapter that can render to the surface
	st.adapter, err = instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.opts.ForceFallbackAdapter,
		PowerPreference:      d.opts.PowerPreference,
		CompatibleSurface:    st.surface,
	})

	if err != nil {
		return nil, &pulse.NoDeviceError{Driver: d.Name(), Err: err}
	}

	// get a device with the default limits
	st.device, err = st.adapter.RequestDevice(nil)
	if err != nil {
		return nil, &pulse.DeviceCreationError{Driver: d.Name(), Err: err}
	}

	st.queue = &queue{dev: st, wq: st.device.GetQueue()}
	st.presenter = &presenter{dev: st}
	st.blitter = newBlitter(st.device)

	pulse.Logger().Debug("WebGPU device opened",
		slog.Bool("fallbackAdapter", d.opts.ForceFallbackAdapter))

	return st, nil
}

// Device holds the low level webgpu state: the surface of the window,
// the adapter and the device.
type Device struct {
	win SurfaceWindow

	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device

	queue     *queue
	presenter *presenter
	blitter   *blitter
}

func (d *Device) Limits() pulse.Limits {
	return defaultLimits
}

func (d *Device) Queue() pulse.Queue {
	return d.queue
}

func (d *Device) Presenter() pulse.Presenter {
	return d.presenter
}

func (d *Device) CreateTexture(desc pulse.TextureDescriptor) (tex pulse.DeviceTexture, err error) {
	if d.device == nil {
		return nil, pulse.ErrReleased
	}

	format, ok := toWGPUFormat(desc.Format)
	if !ok {
		return nil, fmt.Errorf("unsupported texture format %s", desc.Format)
	}

	defer recoverError(&err, nil)

	texture := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		Dimension:     wgpu.TextureDimension2D,
		SampleCount:   1,
		MipLevelCount: 1,
	})

	return &texture2D{
		label:   desc.Label,
		format:  desc.Format,
		width:   desc.Width,
		height:  desc.Height,
		texture: texture,
		view:    texture.CreateView(nil),
	}, nil
}

func (d *Device) Release() {
	if d.blitter != nil {
		d.blitter.Release()
		d.blitter = nil
	}

	if d.queue != nil {
		d.queue.wq.Release()
		d.queue = nil
	}

	if d.device != nil {
		d.device.Release()
		d.device = nil
	}

	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}

	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
}
