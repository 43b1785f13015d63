package orion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oliverbestmann/onscreen/glimpse"
	"github.com/oliverbestmann/onscreen/pixels"
	"github.com/oliverbestmann/onscreen/pulse"
)

// ErrSurfaceLost is returned if the surface is still stale after it was
// recreated within the same tick.
var ErrSurfaceLost = errors.New("surface stale after recreation")

type LoopState uint8

const (
	StateIdle LoopState = iota
	StateAcquiring
	StateRecreate
	StateRecording
	StateSubmitted
	StatePresenting
	StateClosed
)

func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAcquiring:
		return "Acquiring"
	case StateRecreate:
		return "Recreate"
	case StateRecording:
		return "Recording"
	case StateSubmitted:
		return "Submitted"
	case StatePresenting:
		return "Presenting"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("LoopState(%d)", uint8(s))
	}
}

// FrameInfo describes a presented frame.
type FrameInfo struct {
	// number of the frame, starting at one
	Frame  int
	Slot   int
	Extent pulse.Extent
	Phases FramePhases
}

type LoopOptions struct {
	// color of the letterbox, defaults to opaque black
	ClearColor *pulse.Color

	Filter pulse.FilterMode

	// end the loop after this many presentations, zero runs until closed
	MaxFrames int

	// called after every presentation
	OnFrame func(FrameInfo)

	// decoded images replacing the current texture
	Reloads <-chan *pixels.Buffer

	Surface pulse.SurfaceOptions
}

// Loop presents a texture to a window, once per tick.
type Loop struct {
	ctx     *pulse.Context
	win     glimpse.Window
	surface *pulse.Surface
	texture *pulse.Texture
	opts    LoopOptions

	clearColor pulse.Color

	state         LoopState
	presentations int
	errors        int
	recreations   int

	// the surface must be rebuilt before the next acquisition
	outdated bool

	// the window has no visible area
	paused bool

	times  FrameTimes
	phases FramePhases
}

// NewLoop configures a surface for win. The loop takes ownership of the
// texture, which may be nil to only show the clear color.
func NewLoop(ctx *pulse.Context, win glimpse.Window, texture *pulse.Texture, opts LoopOptions) (*Loop, error) {
	if ctx == nil || win == nil {
		return nil, errors.New("loop needs a context and a window")
	}

	if opts.MaxFrames < 0 {
		return nil, fmt.Errorf("invalid frame count %d", opts.MaxFrames)
	}

	clearColor := pulse.ColorBlack
	if opts.ClearColor != nil {
		clearColor = *opts.ClearColor
	}

	width, height := win.Size()

	surfaceOpts := opts.Surface
	surfaceOpts.Extent = pulse.Extent{Width: width, Height: height}

	// prefer a surface format matching the source pixels
	if surfaceOpts.PreferredFormat == pulse.TextureFormatUndefined && texture != nil {
		surfaceOpts.PreferredFormat = texture.Format()
	}

	surface, err := pulse.NewSurface(ctx, surfaceOpts)
	if err != nil {
		return nil, err
	}

	return &Loop{
		ctx:        ctx,
		win:        win,
		surface:    surface,
		texture:    texture,
		opts:       opts,
		clearColor: clearColor,
		paused:     width == 0 || height == 0,
	}, nil
}

func (l *Loop) State() LoopState {
	return l.state
}

// Presentations returns the number of frames presented so far.
func (l *Loop) Presentations() int {
	return l.presentations
}

// Errors returns the number of ticks that failed.
func (l *Loop) Errors() int {
	return l.errors
}

// Recreations returns how often the surface was rebuilt.
func (l *Loop) Recreations() int {
	return l.recreations
}

func (l *Loop) Surface() *pulse.Surface {
	return l.surface
}

func (l *Loop) Texture() *pulse.Texture {
	return l.texture
}

func (l *Loop) Paused() bool {
	return l.paused
}

func (l *Loop) FrameTimes() FrameTimes {
	return l.times
}

// Run polls the window and renders a frame on every tick until the window
// is closed, the frame limit is reached or ctx is done. The loop is closed
// before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	err := l.run(ctx)

	if closeErr := l.Close(); err == nil {
		err = closeErr
	}

	return err
}

func (l *Loop) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := l.reload(); err != nil {
			return err
		}

		for _, ev := range l.win.PollEvents() {
			done, err := l.Dispatch(ctx, ev)
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}

// Dispatch handles a single window event. It returns true if the loop
// should end.
func (l *Loop) Dispatch(ctx context.Context, ev glimpse.Event) (bool, error) {
	if l.state == StateClosed {
		return true, nil
	}

	switch ev.Kind {
	case glimpse.EventClose:
		slog.Info("Window closed", slog.Int("presentations", l.presentations))
		return true, nil

	case glimpse.EventResize:
		l.paused = ev.Width == 0 || ev.Height == 0
		l.outdated = true

		slog.Debug("Window resized",
			slog.Int("width", int(ev.Width)),
			slog.Int("height", int(ev.Height)))

		return false, nil

	case glimpse.EventTick:
		if err := l.Tick(ctx); err != nil {
			return true, err
		}

		return l.opts.MaxFrames > 0 && l.presentations >= l.opts.MaxFrames, nil

	default:
		return false, nil
	}
}

// Tick renders and presents a single frame. A stale surface is recreated
// once. All other errors are fatal.
func (l *Loop) Tick(ctx context.Context) error {
	if l.state == StateClosed {
		return pulse.ErrReleased
	}

	err := l.tick(ctx)
	if err != nil {
		l.errors++
		l.state = StateIdle

		return fmt.Errorf("frame %d: %w", l.presentations+1, err)
	}

	l.state = StateIdle
	return nil
}

func (l *Loop) tick(ctx context.Context) error {
	if l.outdated {
		if err := l.recreate(ctx); err != nil {
			return err
		}
	}

	if l.paused {
		return nil
	}

	timer := startPhases()

	recreated := false

	l.state = StateAcquiring

	slot, err := l.surface.Acquire(ctx)
	if errors.Is(err, pulse.ErrSurfaceStale) {
		slog.Debug("Surface is stale, recreating", slog.Any("err", err))

		if err := l.recreate(ctx); err != nil {
			return err
		}

		if l.paused {
			return nil
		}

		recreated = true

		l.state = StateAcquiring
		slot, err = l.surface.Acquire(ctx)

		if errors.Is(err, pulse.ErrSurfaceStale) {
			return &pulse.SurfaceCreationError{Err: ErrSurfaceLost}
		}
	}

	if err != nil {
		return fmt.Errorf("acquire frame: %w", err)
	}

	l.phases.Acquire = timer.lap()

	l.state = StateRecording
	list := l.record()
	l.phases.Record = timer.lap()

	l.state = StateSubmitted
	if err := l.surface.Submit(slot, list); err != nil {
		return err
	}

	l.phases.Submit = timer.lap()

	l.state = StatePresenting

	err = l.surface.Present(slot)
	if errors.Is(err, pulse.ErrSurfaceStale) {
		if recreated {
			return &pulse.SurfaceCreationError{Err: ErrSurfaceLost}
		}

		// the next tick acquires from the rebuilt surface
		return l.recreate(ctx)
	}

	if err != nil {
		return err
	}

	l.phases.Present = timer.lap()

	l.presentations++

	if l.times.Tick(time.Now()) {
		logFrameStats(&l.times, l.phases)
	}

	if l.opts.OnFrame != nil {
		l.opts.OnFrame(FrameInfo{
			Frame:  l.presentations,
			Slot:   slot.Index(),
			Extent: l.surface.Extent(),
			Phases: l.phases,
		})
	}

	return nil
}

// record builds the command list for the current frame: the texture is
// drawn aspect-fit onto the clear color.
func (l *Loop) record() *pulse.CommandList {
	list := &pulse.CommandList{Label: fmt.Sprintf("Frame %d", l.presentations+1)}
	list.Clear(l.clearColor)

	if l.texture != nil {
		dest := pulse.FitRect(l.texture.Extent(), l.surface.Extent())
		if !dest.Empty() {
			list.Blit(l.texture.Handle(), dest, l.opts.Filter)
		}
	}

	return list
}

// recreate rebuilds the surface for the current window size. A window
// without visible area pauses the loop instead.
func (l *Loop) recreate(ctx context.Context) error {
	l.state = StateRecreate
	l.outdated = false

	width, height := l.win.Size()
	if width == 0 || height == 0 {
		l.paused = true
		return nil
	}

	l.paused = false

	if err := l.surface.Recreate(ctx, pulse.Extent{Width: width, Height: height}); err != nil {
		return err
	}

	l.recreations++

	slog.Info("Surface recreated",
		slog.Int("width", int(width)),
		slog.Int("height", int(height)),
	)

	return nil
}

// SetTexture replaces the texture shown by the loop. The previous texture
// is released once the device no longer reads it.
func (l *Loop) SetTexture(ctx context.Context, texture *pulse.Texture) error {
	if l.state == StateClosed {
		return pulse.ErrReleased
	}

	if err := l.surface.WaitIdle(ctx); err != nil {
		return fmt.Errorf("wait for surface: %w", err)
	}

	previous := l.texture
	l.texture = texture

	if previous != nil && previous != texture {
		previous.Release()
	}

	return nil
}

// reload uploads the most recent image received on the reload channel.
func (l *Loop) reload() error {
	if l.opts.Reloads == nil {
		return nil
	}

	var buf *pixels.Buffer

	// only the most recent image matters
	for more := true; more; {
		select {
		case next, ok := <-l.opts.Reloads:
			if !ok {
				l.opts.Reloads = nil
				more = false
				break
			}

			buf = next

		default:
			more = false
		}
	}

	if buf == nil {
		return nil
	}

	texture, err := pulse.Upload(l.ctx, buf, pulse.UploadOptions{Label: "Reloaded"})
	if err != nil {
		return err
	}

	if err := l.SetTexture(context.Background(), texture); err != nil {
		texture.Release()
		return err
	}

	slog.Info("Image reloaded", slog.String("buffer", buf.String()))

	return nil
}

// Close waits for all outstanding work and releases the surface and the
// texture. Calling it again has no effect.
func (l *Loop) Close() error {
	if l.state == StateClosed {
		return nil
	}

	l.state = StateClosed

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := l.surface.WaitIdle(ctx)

	l.surface.Release()

	if l.texture != nil {
		l.texture.Release()
		l.texture = nil
	}

	if err != nil {
		return fmt.Errorf("drain frame loop: %w", err)
	}

	return nil
}
