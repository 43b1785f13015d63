// Package soft implements a pulse.Driver on the CPU. Command lists are
// executed by a worker goroutine, so submissions complete asynchronously
// like on a real device. It is used for headless runs and tests.
package soft

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oliverbestmann/onscreen/pulse"
)

var ErrNoAdapter = errors.New("no adapter available")
var ErrDeviceRejected = errors.New("device request rejected")

type Options struct {
	// surface formats in order of preference of the system,
	// defaults to BGRA8Unorm and RGBA8Unorm
	Formats []pulse.TextureFormat

	// defaults to fifo, mailbox and immediate
	PresentModes []pulse.PresentMode

	// defaults to 2 and 3
	MinImageCount uint32
	MaxImageCount uint32

	// defaults to 1x1 and 8192x8192
	MinExtent pulse.Extent
	MaxExtent pulse.Extent

	// defaults to a maximum texture dimension of 8192
	Limits pulse.Limits

	// simulate a system without a usable adapter
	NoAdapter bool

	// simulate a failing device request
	FailDevice bool

	// simulate a surface that can not be queried
	FailCapabilities bool

	// artificial time each command list takes on the device
	Latency time.Duration
}

func (opts Options) withDefaults() Options {
	if len(opts.Formats) == 0 {
		opts.Formats = []pulse.TextureFormat{
			pulse.TextureFormatBGRA8Unorm,
			pulse.TextureFormatRGBA8Unorm,
		}
	}

	if len(opts.PresentModes) == 0 {
		opts.PresentModes = []pulse.PresentMode{
			pulse.PresentModeFifo,
			pulse.PresentModeMailbox,
			pulse.PresentModeImmediate,
		}
	}

	if opts.MinImageCount == 0 {
		opts.MinImageCount = 2
	}

	if opts.MaxImageCount == 0 {
		opts.MaxImageCount = max(3, opts.MinImageCount)
	}

	if opts.MinExtent.IsZero() {
		opts.MinExtent = pulse.Extent{Width: 1, Height: 1}
	}

	if opts.MaxExtent.IsZero() {
		opts.MaxExtent = pulse.Extent{Width: 8192, Height: 8192}
	}

	if opts.Limits.MaxTextureDimension2D == 0 {
		opts.Limits.MaxTextureDimension2D = 8192
	}

	return opts
}

type Driver struct {
	opts Options

	mu     sync.Mutex
	device *Device
}

func New(opts Options) *Driver {
	return &Driver{opts: opts.withDefaults()}
}

func (d *Driver) Name() string {
	return "soft"
}

func (d *Driver) Open(win pulse.Window) (pulse.Device, error) {
	if d.opts.NoAdapter {
		return nil, &pulse.NoDeviceError{Driver: d.Name(), Err: ErrNoAdapter}
	}

	if d.opts.FailDevice {
		return nil, &pulse.DeviceCreationError{Driver: d.Name(), Err: ErrDeviceRejected}
	}

	dev := &Device{
		opts:  d.opts,
		queue: newQueue(d.opts.Latency),
	}

	dev.presenter = newPresenter(dev, win)

	d.mu.Lock()
	d.device = dev
	d.mu.Unlock()

	pulse.Logger().Debug("Software device opened",
		slog.Int("maxTextureDimension2D", int(d.opts.Limits.MaxTextureDimension2D)))

	return dev, nil
}

// Device returns the device opened last, or nil.
func (d *Driver) Device() *Device {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.device
}

type Device struct {
	opts      Options
	queue     *queue
	presenter *Presenter

	// textures created and not yet released
	live atomic.Int64
}

func (d *Device) Limits() pulse.Limits {
	return d.opts.Limits
}

func (d *Device) Queue() pulse.Queue {
	return d.queue
}

func (d *Device) Presenter() pulse.Presenter {
	return d.presenter
}

// SoftPresenter returns the presenter with access to the software specific
// controls and the presented images.
func (d *Device) SoftPresenter() *Presenter {
	return d.presenter
}

func (d *Device) CreateTexture(desc pulse.TextureDescriptor) (pulse.DeviceTexture, error) {
	if d.queue.closed() {
		return nil, pulse.ErrReleased
	}

	tex, err := newTexture(desc)
	if err != nil {
		return nil, err
	}

	tex.live = &d.live
	d.live.Add(1)

	return tex, nil
}

// LiveTextures returns the number of textures that were not released yet.
func (d *Device) LiveTextures() int {
	return int(d.live.Load())
}

func (d *Device) Released() bool {
	return d.queue.closed()
}

func (d *Device) Release() {
	d.queue.close()
}
