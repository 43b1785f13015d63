package soft

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/oliverbestmann/onscreen/pulse"
)

var errNotConfigured = errors.New("surface is not configured")

type swapImage struct {
	index  int
	format pulse.TextureFormat
	img    *image.NRGBA

	// generation of the configuration this image belongs to
	generation int
}

func (s *swapImage) Index() int {
	return s.index
}

func (s *swapImage) Extent() pulse.Extent {
	return pulse.Extent{Width: uint32(s.img.Rect.Dx()), Height: uint32(s.img.Rect.Dy())}
}

func (s *swapImage) Format() pulse.TextureFormat {
	return s.format
}

// Presenter simulates a window surface. Images are presented in the order
// they are acquired. Presented images are copied into a front buffer
// that can be inspected.
type Presenter struct {
	dev *Device
	win pulse.Window

	mu         sync.Mutex
	config     *pulse.SurfaceConfig
	images     []*swapImage
	next       int
	generation int
	invalid    bool

	staleAcquires int
	stalePresents int

	front         *image.NRGBA
	presentations int
	configures    int
}

func newPresenter(dev *Device, win pulse.Window) *Presenter {
	return &Presenter{dev: dev, win: win}
}

func (p *Presenter) windowExtent() pulse.Extent {
	if p.win == nil {
		return pulse.Extent{}
	}

	w, h := p.win.Size()
	return pulse.Extent{Width: w, Height: h}
}

func (p *Presenter) Capabilities() (pulse.Capabilities, error) {
	opts := p.dev.opts

	if opts.FailCapabilities {
		return pulse.Capabilities{}, errors.New("surface capabilities unavailable")
	}

	return pulse.Capabilities{
		Formats:       slices.Clone(opts.Formats),
		PresentModes:  slices.Clone(opts.PresentModes),
		MinImageCount: opts.MinImageCount,
		MaxImageCount: opts.MaxImageCount,
		CurrentExtent: p.windowExtent(),
		MinExtent:     opts.MinExtent,
		MaxExtent:     opts.MaxExtent,
	}, nil
}

func (p *Presenter) Configure(config pulse.SurfaceConfig) error {
	opts := p.dev.opts

	if !slices.Contains(opts.Formats, config.Format) {
		return fmt.Errorf("format %s not supported", config.Format)
	}

	if !slices.Contains(opts.PresentModes, config.PresentMode) {
		return fmt.Errorf("present mode %s not supported", config.PresentMode)
	}

	if config.ImageCount < opts.MinImageCount || config.ImageCount > opts.MaxImageCount {
		return fmt.Errorf("image count %d not in range [%d, %d]",
			config.ImageCount, opts.MinImageCount, opts.MaxImageCount)
	}

	if config.Extent.Clamp(opts.MinExtent, opts.MaxExtent) != config.Extent {
		return fmt.Errorf("extent %s not within %s and %s", config.Extent, opts.MinExtent, opts.MaxExtent)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++

	images := make([]*swapImage, config.ImageCount)
	for idx := range images {
		images[idx] = &swapImage{
			index:      idx,
			format:     config.Format,
			img:        image.NewNRGBA(image.Rect(0, 0, int(config.Extent.Width), int(config.Extent.Height))),
			generation: p.generation,
		}
	}

	p.config = &config
	p.images = images
	p.next = 0
	p.invalid = false
	p.configures++

	return nil
}

func (p *Presenter) Unconfigure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.config = nil
	p.images = nil
}

func (p *Presenter) Acquire(ctx context.Context) (pulse.SwapImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config == nil {
		return nil, errNotConfigured
	}

	if p.staleAcquires > 0 {
		p.staleAcquires--
		return nil, pulse.ErrSurfaceStale
	}

	// a window of a different size invalidates the surface
	if p.invalid || (p.win != nil && p.windowExtent() != p.config.Extent) {
		return nil, pulse.ErrSurfaceStale
	}

	swap := p.images[p.next]
	p.next = (p.next + 1) % len(p.images)

	return swap, nil
}

func (p *Presenter) Present(value pulse.SwapImage) error {
	swap, ok := value.(*swapImage)
	if !ok {
		return errForeignImage
	}

	if err := p.checkPresentable(swap); err != nil {
		return err
	}

	// queued behind the submissions that render into the image
	_, err := p.dev.queue.enqueue("Present", func() {
		copied := cloneNRGBA(swap.img)

		p.mu.Lock()
		p.front = copied
		p.presentations++
		p.mu.Unlock()
	})

	return err
}

func (p *Presenter) checkPresentable(swap *swapImage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config == nil {
		return errNotConfigured
	}

	if p.stalePresents > 0 {
		p.stalePresents--
		return pulse.ErrSurfaceStale
	}

	if swap.generation != p.generation || p.invalid {
		return pulse.ErrSurfaceStale
	}

	return nil
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	copied := image.NewNRGBA(img.Rect)
	copy(copied.Pix, img.Pix)
	return copied
}

// Invalidate marks the surface as out of date until it is configured again.
func (p *Presenter) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.invalid = true
}

// FailAcquires makes the next count calls to Acquire report a stale surface.
func (p *Presenter) FailAcquires(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.staleAcquires += count
}

// FailPresents makes the next count calls to Present report a stale surface.
func (p *Presenter) FailPresents(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stalePresents += count
}

// Presentations returns the number of images shown so far.
func (p *Presenter) Presentations() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.presentations
}

// Configures returns how often the surface was configured.
func (p *Presenter) Configures() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.configures
}

// Config returns the current configuration.
func (p *Presenter) Config() (pulse.SurfaceConfig, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config == nil {
		return pulse.SurfaceConfig{}, false
	}

	return *p.config, true
}

// FrontBuffer returns a copy of the image presented last.
func (p *Presenter) FrontBuffer() (*image.NRGBA, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.front == nil {
		return nil, false
	}

	return cloneNRGBA(p.front), true
}
