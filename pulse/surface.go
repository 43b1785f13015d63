package pulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// fallbackExtent is used if neither the window nor the system reports a size.
var fallbackExtent = Extent{Width: 1280, Height: 1024}

// SurfaceConfig is the negotiated configuration of a presentation surface.
type SurfaceConfig struct {
	Format      TextureFormat
	PresentMode PresentMode
	ImageCount  uint32
	Extent      Extent
}

func (c SurfaceConfig) String() string {
	return fmt.Sprintf("%s %s images=%d %s", c.Extent, c.Format, c.ImageCount, c.PresentMode)
}

// SurfaceRequest holds the wishes of the application. Every field is optional.
type SurfaceRequest struct {
	Extent          Extent
	PreferredFormat TextureFormat
	PresentMode     PresentMode
	ImageCount      uint32
}

// NegotiateSurface picks a surface configuration the presenter supports
// that is as close as possible to the request.
func NegotiateSurface(caps Capabilities, req SurfaceRequest) (SurfaceConfig, error) {
	if len(caps.Formats) == 0 {
		return SurfaceConfig{}, &SurfaceCreationError{Err: errors.New("no supported surface format")}
	}

	// use the preferred format or fall back to the first one reported
	format := caps.Formats[0]
	if req.PreferredFormat != TextureFormatUndefined && slices.Contains(caps.Formats, req.PreferredFormat) {
		format = req.PreferredFormat
	}

	// fifo must always be supported
	presentMode := PresentModeFifo
	if req.PresentMode != PresentModeUndefined && slices.Contains(caps.PresentModes, req.PresentMode) {
		presentMode = req.PresentMode
	}

	minImages := max(caps.MinImageCount, 1)

	imageCount := req.ImageCount
	if imageCount == 0 {
		imageCount = minImages + 1
	}

	imageCount = max(imageCount, minImages)
	if caps.MaxImageCount > 0 {
		imageCount = min(imageCount, caps.MaxImageCount)
	}

	extent := req.Extent
	if extent.IsZero() {
		extent = caps.CurrentExtent
	}

	if extent.IsZero() {
		extent = fallbackExtent
	}

	minExtent := Extent{
		Width:  max(caps.MinExtent.Width, 1),
		Height: max(caps.MinExtent.Height, 1),
	}

	extent = extent.Clamp(minExtent, caps.MaxExtent)

	return SurfaceConfig{
		Format:      format,
		PresentMode: presentMode,
		ImageCount:  imageCount,
		Extent:      extent,
	}, nil
}

type SurfaceOptions struct {
	Extent          Extent
	PreferredFormat TextureFormat
	PresentMode     PresentMode

	// number of swap images, defaults to one more than the minimum
	ImageCount uint32

	// maximum number of frames submitted but not yet completed, defaults to 2
	MaxFramesInFlight int

	// maximum time to wait for a free image, defaults to one second
	AcquireTimeout time.Duration

	// called on every slot state change
	OnSlotTransition func(SlotTransition)
}

// Surface is the presentation side of a Context: a ring of FrameSlots
// backed by the images of the device's presenter.
type Surface struct {
	ctx       *Context
	presenter Presenter
	opts      SurfaceOptions

	config SurfaceConfig
	slots  []*FrameSlot
	serial uint64

	released bool
}

// NewSurface negotiates and configures the presenter of ctx.
func NewSurface(ctx *Context, opts SurfaceOptions) (*Surface, error) {
	if opts.MaxFramesInFlight <= 0 {
		opts.MaxFramesInFlight = 2
	}

	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = time.Second
	}

	s := &Surface{
		ctx:       ctx,
		presenter: ctx.Presenter(),
		opts:      opts,
	}

	if err := s.configure(opts.Extent); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Surface) configure(extent Extent) error {
	caps, err := s.presenter.Capabilities()
	if err != nil {
		return &SurfaceCreationError{Err: fmt.Errorf("query capabilities: %w", err)}
	}

	config, err := NegotiateSurface(caps, SurfaceRequest{
		Extent:          extent,
		PreferredFormat: s.opts.PreferredFormat,
		PresentMode:     s.opts.PresentMode,
		ImageCount:      s.opts.ImageCount,
	})
	if err != nil {
		return err
	}

	if err := s.presenter.Configure(config); err != nil {
		return &SurfaceCreationError{Err: fmt.Errorf("configure %s: %w", config, err)}
	}

	s.config = config

	s.slots = make([]*FrameSlot, config.ImageCount)
	for idx := range s.slots {
		s.slots[idx] = &FrameSlot{index: idx}
	}

	Logger().Info("Surface configured",
		slog.Int("width", int(config.Extent.Width)),
		slog.Int("height", int(config.Extent.Height)),
		slog.String("format", config.Format.String()),
		slog.String("presentMode", config.PresentMode.String()),
		slog.Int("images", int(config.ImageCount)),
	)

	return nil
}

func (s *Surface) Config() SurfaceConfig {
	return s.config
}

func (s *Surface) Extent() Extent {
	return s.config.Extent
}

// Slots returns the frame slots in image order.
func (s *Surface) Slots() []*FrameSlot {
	return slices.Clone(s.slots)
}

// InFlight returns the number of slots with a pending submission.
func (s *Surface) InFlight() int {
	var count int
	for _, slot := range s.slots {
		if slot.busy() {
			count++
		}
	}

	return count
}

// Acquire returns the next slot to render into. It blocks until the
// image is no longer used by the device. The returned error matches
// ErrSurfaceStale if the surface needs to be recreated.
func (s *Surface) Acquire(ctx context.Context) (*FrameSlot, error) {
	if s.released {
		return nil, ErrReleased
	}

	for _, slot := range s.slots {
		if slot.state == SlotAcquired {
			return nil, fmt.Errorf("slot %d is still acquired", slot.index)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.AcquireTimeout)
	defer cancel()

	s.reclaim()

	// respect the in flight budget before asking for another image
	for s.InFlight() >= s.opts.MaxFramesInFlight {
		if err := s.waitSlot(ctx, s.oldestBusy()); err != nil {
			return nil, err
		}
	}

	image, err := s.presenter.Acquire(ctx)
	switch {
	case errors.Is(err, ErrSurfaceStale):
		return nil, fmt.Errorf("acquire image: %w", err)

	case err != nil:
		return nil, &SubmissionError{Label: "acquire", Err: err}
	}

	idx := image.Index()
	if idx < 0 || idx >= len(s.slots) {
		return nil, &SubmissionError{
			Label: "acquire",
			Err:   fmt.Errorf("presenter returned image %d of %d", idx, len(s.slots)),
		}
	}

	slot := s.slots[idx]

	// the image may still be read by the device
	if slot.busy() {
		if err := s.waitSlot(ctx, slot); err != nil {
			return nil, err
		}
	}

	slot.image = image
	s.transition(slot, SlotAcquired)

	return slot, nil
}

// Submit hands the command list to the device queue. The list renders into
// the slot's image.
func (s *Surface) Submit(slot *FrameSlot, list *CommandList) error {
	if slot.state != SlotAcquired {
		return &SubmissionError{Label: list.Label, Err: fmt.Errorf("slot %d is %s", slot.index, slot.state)}
	}

	list.Target = slot.image

	fence, err := s.ctx.Queue().Submit(list)
	if err != nil {
		s.transition(slot, SlotFree)
		slot.image = nil

		return &SubmissionError{Label: list.Label, Err: err}
	}

	s.serial++

	slot.fence = fence
	slot.serial = s.serial
	s.transition(slot, SlotInFlight)

	return nil
}

// Present queues the slot's image for presentation once its submission has
// completed.
func (s *Surface) Present(slot *FrameSlot) error {
	if slot.state != SlotInFlight {
		return &SubmissionError{Label: "present", Err: fmt.Errorf("slot %d is %s", slot.index, slot.state)}
	}

	err := s.presenter.Present(slot.image)
	switch {
	case errors.Is(err, ErrSurfaceStale):
		// the slot stays in flight until its fence was observed
		return fmt.Errorf("present image: %w", err)

	case err != nil:
		return &SubmissionError{Label: "present", Err: err}
	}

	s.transition(slot, SlotPresented)

	return nil
}

// Recreate rebuilds all swap images for the given extent. Outstanding work
// is waited for before the old images are released.
func (s *Surface) Recreate(ctx context.Context, extent Extent) error {
	if s.released {
		return ErrReleased
	}

	if err := s.WaitIdle(ctx); err != nil {
		return fmt.Errorf("recreate surface: %w", err)
	}

	Logger().Debug("Recreate surface",
		slog.Int("width", int(extent.Width)),
		slog.Int("height", int(extent.Height)),
	)

	s.presenter.Unconfigure()

	return s.configure(extent)
}

// WaitIdle waits until no slot is in use anymore. An acquired slot that was
// never submitted is returned to the ring.
func (s *Surface) WaitIdle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.AcquireTimeout*time.Duration(max(1, len(s.slots))))
	defer cancel()

	for _, slot := range s.slots {
		switch {
		case slot.state == SlotAcquired:
			s.transition(slot, SlotFree)
			slot.image = nil

		case slot.busy():
			if err := s.waitSlot(ctx, slot); err != nil {
				return err
			}
		}
	}

	// presentations are queued behind the submissions
	if err := s.ctx.Queue().WaitIdle(ctx); err != nil {
		return &SubmissionError{Label: "present", Err: fmt.Errorf("wait for queue: %w", err)}
	}

	return nil
}

// Release waits for all slots and unconfigures the presenter.
func (s *Surface) Release() {
	if s.released {
		return
	}

	if err := s.WaitIdle(context.Background()); err != nil {
		Logger().Warn("Surface did not become idle before release", slog.Any("err", err))
	}

	s.presenter.Unconfigure()
	s.slots = nil
	s.released = true
}

// reclaim frees all slots whose fence already signaled.
func (s *Surface) reclaim() {
	for _, slot := range s.slots {
		if slot.busy() && slot.fence.Signaled() {
			s.free(slot)
		}
	}
}

func (s *Surface) oldestBusy() *FrameSlot {
	var oldest *FrameSlot
	for _, slot := range s.slots {
		if slot.busy() && (oldest == nil || slot.serial < oldest.serial) {
			oldest = slot
		}
	}

	return oldest
}

func (s *Surface) waitSlot(ctx context.Context, slot *FrameSlot) error {
	if err := slot.fence.Wait(ctx); err != nil {
		return &SubmissionError{
			Label: fmt.Sprintf("slot %d", slot.index),
			Err:   fmt.Errorf("wait for fence: %w", err),
		}
	}

	s.free(slot)
	return nil
}

func (s *Surface) free(slot *FrameSlot) {
	s.transition(slot, SlotFree)
	slot.fence = nil
	slot.image = nil
}

func (s *Surface) transition(slot *FrameSlot, to SlotState) {
	t := SlotTransition{Slot: slot.index, From: slot.state, To: to}
	if !t.valid() {
		panic(fmt.Sprintf("invalid transition of slot %d from %s to %s", slot.index, t.From, t.To))
	}

	slot.state = to

	if s.opts.OnSlotTransition != nil {
		s.opts.OnSlotTransition(t)
	}
}
