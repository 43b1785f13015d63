package webgpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

var errNotConfigured = errors.New("surface is not configured")

// wgpu does not report the image count of a surface, these are the
// bounds of the common backends.
const (
	minImageCount = 2
	maxImageCount = 3
)

type swapImage struct {
	index  int
	extent pulse.Extent
	format pulse.TextureFormat

	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (s *swapImage) Index() int {
	return s.index
}

func (s *swapImage) Extent() pulse.Extent {
	return s.extent
}

func (s *swapImage) Format() pulse.TextureFormat {
	return s.format
}

func (s *swapImage) release() {
	if s.view != nil {
		s.view.Release()
		s.view = nil
	}

	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}

type presenter struct {
	dev *Device

	config    *pulse.SurfaceConfig
	alphaMode wgpu.CompositeAlphaMode

	// number of images acquired so far
	acquired int
}

func (p *presenter) Capabilities() (caps pulse.Capabilities, err error) {
	if p.dev.surface == nil {
		return pulse.Capabilities{}, pulse.ErrReleased
	}

	defer recoverError(&err, nil)

	native := p.dev.surface.GetCapabilities(p.dev.adapter)

	// keep the order, the first format is the one preferred by the system
	for _, format := range native.Formats {
		if value, ok := fromWGPUFormat(format); ok {
			caps.Formats = append(caps.Formats, value)
		}
	}

	for _, mode := range native.PresentModes {
		if value, ok := fromWGPUPresentMode(mode); ok {
			caps.PresentModes = append(caps.PresentModes, value)
		}
	}

	if len(native.AlphaModes) > 0 {
		p.alphaMode = native.AlphaModes[0]
	}

	width, height := p.dev.win.Size()

	caps.MinImageCount = minImageCount
	caps.MaxImageCount = maxImageCount
	caps.CurrentExtent = pulse.Extent{Width: width, Height: height}
	caps.MinExtent = pulse.Extent{Width: 1, Height: 1}
	caps.MaxExtent = pulse.Extent{
		Width:  defaultLimits.MaxTextureDimension2D,
		Height: defaultLimits.MaxTextureDimension2D,
	}

	return caps, nil
}

func (p *presenter) Configure(config pulse.SurfaceConfig) (err error) {
	format, ok := toWGPUFormat(config.Format)
	if !ok {
		return fmt.Errorf("format %s not supported", config.Format)
	}

	presentMode, ok := toWGPUPresentMode(config.PresentMode)
	if !ok {
		return fmt.Errorf("present mode %s not supported", config.PresentMode)
	}

	defer recoverError(&err, nil)

	p.dev.surface.Configure(p.dev.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		PresentMode: presentMode,
		AlphaMode:   p.alphaMode,
		Width:       config.Extent.Width,
		Height:      config.Extent.Height,

		// images in flight besides the one being presented
		DesiredMaximumFrameLatency: max(1, config.ImageCount-1),
	})

	p.config = &config
	p.acquired = 0

	pulse.Logger().Debug("WebGPU surface configured", slog.String("config", config.String()))

	return nil
}

func (p *presenter) Unconfigure() {
	p.config = nil
}

func (p *presenter) Acquire(ctx context.Context) (image pulse.SwapImage, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.config == nil {
		return nil, errNotConfigured
	}

	// a window of a different size makes the surface stale
	width, height := p.dev.win.Size()
	if (pulse.Extent{Width: width, Height: height}) != p.config.Extent {
		return nil, pulse.ErrSurfaceStale
	}

	defer recoverError(&err, nil)

	texture, err := p.dev.surface.GetCurrentTexture()
	if err != nil {
		// outdated, lost and timed out surfaces are all fixed by
		// configuring the surface again
		return nil, fmt.Errorf("%w: %s", pulse.ErrSurfaceStale, err)
	}

	swap := &swapImage{
		index:   p.acquired % int(p.config.ImageCount),
		extent:  p.config.Extent,
		format:  p.config.Format,
		texture: texture,
		view:    texture.CreateView(nil),
	}

	p.acquired++

	return swap, nil
}

func (p *presenter) Present(value pulse.SwapImage) (err error) {
	swap, ok := value.(*swapImage)
	if !ok {
		return errForeignImage
	}

	if p.config == nil || swap.extent != p.config.Extent {
		swap.release()
		return pulse.ErrSurfaceStale
	}

	defer recoverError(&err, nil)

	p.dev.surface.Present()

	// the texture belongs to the surface after presenting
	swap.view.Release()
	swap.view = nil
	swap.texture = nil

	return nil
}
