package orion

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oliverbestmann/onscreen/driver/soft"
	"github.com/oliverbestmann/onscreen/glimpse"
	"github.com/oliverbestmann/onscreen/pixels"
	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opaqueRed = color.NRGBA{R: 255, A: 255}

func writePNG(t *testing.T, path string, width, height int, c color.Color) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, c)
		}
	}

	fp, err := os.Create(path)
	require.NoError(t, err)
	defer fp.Close()

	require.NoError(t, png.Encode(fp, img))
}

type fixture struct {
	win    *glimpse.Headless
	driver *soft.Driver
	ctx    *pulse.Context
}

func newFixture(t *testing.T, width, height uint32, opts soft.Options) *fixture {
	t.Helper()

	win := glimpse.NewHeadless(width, height)
	driver := soft.New(opts)

	ctx, err := pulse.New(driver, win)
	require.NoError(t, err)

	t.Cleanup(ctx.Release)

	return &fixture{win: win, driver: driver, ctx: ctx}
}

func (f *fixture) presenter() *soft.Presenter {
	return f.driver.Device().SoftPresenter()
}

func (f *fixture) upload(t *testing.T, buf *pixels.Buffer) *pulse.Texture {
	t.Helper()

	tex, err := pulse.Upload(f.ctx, buf, pulse.UploadOptions{Label: "Image"})
	require.NoError(t, err)

	return tex
}

func (f *fixture) loop(t *testing.T, tex *pulse.Texture, opts LoopOptions) *Loop {
	t.Helper()

	loop, err := NewLoop(f.ctx, f.win, tex, opts)
	require.NoError(t, err)

	t.Cleanup(func() { _ = loop.Close() })

	return loop
}

func redBuffer(t *testing.T, width, height int) *pixels.Buffer {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for idx := 0; idx < len(img.Pix); idx += 4 {
		copy(img.Pix[idx:], []byte{255, 0, 0, 255})
	}

	return pixels.FromImage(img)
}

func tick(t *testing.T, loop *Loop) {
	t.Helper()

	done, err := loop.Dispatch(context.Background(), glimpse.Tick())
	require.NoError(t, err)
	require.False(t, done)
}

func TestRedImageThreeTicks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "red.png")
	writePNG(t, path, 4, 4, opaqueRed)

	buf, err := pixels.Load(path)
	require.NoError(t, err)
	require.Equal(t, 64, buf.Len())

	for idx := 0; idx < buf.Len(); idx += 4 {
		require.Equal(t, []byte{255, 0, 0, 255}, buf.Pix()[idx:idx+4])
	}

	f := newFixture(t, 4, 4, soft.Options{})

	tex := f.upload(t, buf)
	require.Equal(t, uint64(64), tex.Size())

	loop := f.loop(t, tex, LoopOptions{Filter: pulse.FilterNearest})

	for range 3 {
		tick(t, loop)
		assert.Equal(t, StateIdle, loop.State())
	}

	assert.Equal(t, 3, loop.Presentations())
	assert.Equal(t, 0, loop.Errors())

	require.NoError(t, loop.Close())
	assert.Equal(t, 3, f.presenter().Presentations())

	front, ok := f.presenter().FrontBuffer()
	require.True(t, ok)

	for y := range 4 {
		for x := range 4 {
			assert.Equal(t, opaqueRed, front.NRGBAAt(x, y))
		}
	}
}

func TestSlotsAreNeverAcquiredTwice(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{Latency: time.Millisecond})

	held := map[int]bool{}

	loop := f.loop(t, f.upload(t, redBuffer(t, 2, 2)), LoopOptions{
		Surface: pulse.SurfaceOptions{
			OnSlotTransition: func(tr pulse.SlotTransition) {
				if tr.To == pulse.SlotAcquired {
					assert.False(t, held[tr.Slot], "slot %d acquired twice", tr.Slot)
					held[tr.Slot] = true
				}

				if tr.To == pulse.SlotFree {
					held[tr.Slot] = false
				}
			},
		},
	})

	for range 30 {
		tick(t, loop)
	}

	assert.Equal(t, 30, loop.Presentations())
}

func TestStaleAcquireRecreatesSurface(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, f.upload(t, redBuffer(t, 2, 2)), LoopOptions{})

	tick(t, loop)

	// the window changed its size without telling us
	f.win.SetSize(16, 10)

	tick(t, loop)

	assert.Equal(t, pulse.Extent{Width: 16, Height: 10}, loop.Surface().Extent())
	assert.Equal(t, 1, loop.Recreations())
	assert.Equal(t, 2, loop.Presentations())

	tick(t, loop)
	assert.Equal(t, 3, loop.Presentations())
	assert.Equal(t, 0, loop.Errors())
}

func TestInjectedStaleAcquireRecovers(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, nil, LoopOptions{})

	f.presenter().FailAcquires(1)

	tick(t, loop)

	assert.Equal(t, 1, loop.Recreations())
	assert.Equal(t, 1, loop.Presentations())
}

func TestStaleTwiceIsFatal(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, nil, LoopOptions{})

	f.presenter().FailAcquires(2)

	done, err := loop.Dispatch(context.Background(), glimpse.Tick())
	assert.True(t, done)

	var surfaceErr *pulse.SurfaceCreationError
	require.ErrorAs(t, err, &surfaceErr)
	assert.ErrorIs(t, err, ErrSurfaceLost)
	assert.True(t, pulse.IsFatal(err))

	assert.Equal(t, 1, loop.Errors())
	assert.Equal(t, 0, loop.Presentations())
}

func TestStalePresentRecreates(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, nil, LoopOptions{})

	f.presenter().FailPresents(1)

	tick(t, loop)
	assert.Equal(t, 0, loop.Presentations())
	assert.Equal(t, 1, loop.Recreations())

	tick(t, loop)
	assert.Equal(t, 1, loop.Presentations())
}

func TestStalePresentAfterRecreateIsFatal(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, nil, LoopOptions{})

	f.presenter().FailAcquires(1)
	f.presenter().FailPresents(1)

	err := loop.Tick(context.Background())
	assert.ErrorIs(t, err, ErrSurfaceLost)
}

func TestResizeEvent(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, f.upload(t, redBuffer(t, 2, 1)), LoopOptions{})

	tick(t, loop)

	f.win.Resize(20, 10)

	for _, ev := range f.win.PollEvents() {
		done, err := loop.Dispatch(context.Background(), ev)
		require.NoError(t, err)
		require.False(t, done)
	}

	assert.Equal(t, pulse.Extent{Width: 20, Height: 10}, loop.Surface().Extent())
	assert.Equal(t, 2, loop.Presentations())
	assert.Equal(t, 1, loop.Recreations())
}

func TestZeroExtentPauses(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, nil, LoopOptions{})

	tick(t, loop)

	// minimized
	f.win.SetSize(0, 0)
	_, err := loop.Dispatch(context.Background(), glimpse.Resize(0, 0))
	require.NoError(t, err)

	for range 3 {
		tick(t, loop)
	}

	assert.True(t, loop.Paused())
	assert.Equal(t, 1, loop.Presentations())

	// restored
	f.win.SetSize(8, 8)
	_, err = loop.Dispatch(context.Background(), glimpse.Resize(8, 8))
	require.NoError(t, err)

	tick(t, loop)

	assert.False(t, loop.Paused())
	assert.Equal(t, 2, loop.Presentations())
}

func TestCloseDrainsOutstandingWork(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{Latency: 10 * time.Millisecond})
	tex := f.upload(t, redBuffer(t, 2, 2))
	loop := f.loop(t, tex, LoopOptions{})

	for range 3 {
		tick(t, loop)
	}

	surface := loop.Surface()
	slots := surface.Slots()

	require.NoError(t, loop.Close())
	require.NoError(t, loop.Close())

	assert.Equal(t, StateClosed, loop.State())
	assert.Equal(t, 0, surface.InFlight())

	for _, slot := range slots {
		assert.Equal(t, pulse.SlotFree, slot.State())
	}

	// every frame reached the front buffer before close returned
	assert.Equal(t, 3, f.presenter().Presentations())
	assert.True(t, tex.Released())

	assert.ErrorIs(t, loop.Tick(context.Background()), pulse.ErrReleased)
}

func TestCloseEventEndsLoop(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, nil, LoopOptions{})

	done, err := loop.Dispatch(context.Background(), glimpse.Close())
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRunUntilClosed(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, nil, LoopOptions{})

	f.win.CloseAfter(5)

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 5, loop.Presentations())
	assert.Equal(t, StateClosed, loop.State())
}

func TestRunMaxFrames(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})

	var frames []FrameInfo

	loop := f.loop(t, nil, LoopOptions{
		MaxFrames: 4,
		OnFrame: func(info FrameInfo) {
			frames = append(frames, info)
		},
	})

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 4, loop.Presentations())

	require.Len(t, frames, 4)
	assert.Equal(t, 4, frames[3].Frame)
	assert.Equal(t, pulse.Extent{Width: 8, Height: 8}, frames[3].Extent)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, nil, LoopOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, loop.Run(ctx))
	assert.Equal(t, 0, loop.Presentations())
}

func TestRunReturnsFatalError(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})
	loop := f.loop(t, nil, LoopOptions{})

	f.presenter().FailAcquires(2)

	err := loop.Run(context.Background())
	assert.ErrorIs(t, err, ErrSurfaceLost)
	assert.Equal(t, StateClosed, loop.State())
}

func TestSetTextureReleasesPrevious(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})

	first := f.upload(t, redBuffer(t, 2, 2))
	loop := f.loop(t, first, LoopOptions{})

	tick(t, loop)

	second := f.upload(t, redBuffer(t, 4, 1))
	require.NoError(t, loop.SetTexture(context.Background(), second))

	assert.True(t, first.Released())
	assert.False(t, second.Released())
	assert.Same(t, second, loop.Texture())

	tick(t, loop)
	assert.Equal(t, 2, loop.Presentations())
}

func TestReloadUsesLatestImage(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})

	reloads := make(chan *pixels.Buffer, 2)
	reloads <- redBuffer(t, 2, 2)
	reloads <- redBuffer(t, 3, 1)

	loop := f.loop(t, f.upload(t, redBuffer(t, 1, 1)), LoopOptions{Reloads: reloads})

	require.NoError(t, loop.reload())
	assert.Equal(t, pulse.Extent{Width: 3, Height: 1}, loop.Texture().Extent())

	close(reloads)
	require.NoError(t, loop.reload())
	assert.Nil(t, loop.opts.Reloads)
}

func TestReloadAfterCloseReleasesUpload(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})

	reloads := make(chan *pixels.Buffer, 1)
	loop := f.loop(t, f.upload(t, redBuffer(t, 1, 1)), LoopOptions{Reloads: reloads})
	require.NoError(t, loop.Close())
	require.Equal(t, 0, f.driver.Device().LiveTextures())

	reloads <- redBuffer(t, 2, 2)

	err := loop.reload()
	require.ErrorIs(t, err, pulse.ErrReleased)
	assert.Equal(t, 0, f.driver.Device().LiveTextures())
}

func TestSurfacePrefersTextureFormat(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})

	caps, err := f.ctx.Presenter().Capabilities()
	require.NoError(t, err)
	require.Equal(t, pulse.TextureFormatBGRA8Unorm, caps.Formats[0])

	tex := f.upload(t, redBuffer(t, 2, 2))
	require.Equal(t, pulse.TextureFormatRGBA8Unorm, tex.Format())

	loop := f.loop(t, tex, LoopOptions{})
	assert.Equal(t, pulse.TextureFormatRGBA8Unorm, loop.Surface().Config().Format)

	tick(t, loop)
	front, ok := f.presenter().FrontBuffer()
	require.True(t, ok)
	assert.Equal(t, opaqueRed, front.NRGBAAt(4, 4))
}

func TestSurfaceKeepsRequestedFormat(t *testing.T) {
	f := newFixture(t, 8, 8, soft.Options{})

	loop := f.loop(t, f.upload(t, redBuffer(t, 2, 2)), LoopOptions{
		Surface: pulse.SurfaceOptions{PreferredFormat: pulse.TextureFormatBGRA8Unorm},
	})

	assert.Equal(t, pulse.TextureFormatBGRA8Unorm, loop.Surface().Config().Format)
}

func TestClearColorLetterbox(t *testing.T) {
	f := newFixture(t, 4, 2, soft.Options{})

	blue := pulse.ColorSRGBA(0, 0, 1, 1)
	loop := f.loop(t, f.upload(t, redBuffer(t, 1, 1)), LoopOptions{
		ClearColor: &blue,
		Filter:     pulse.FilterNearest,
	})

	tick(t, loop)
	require.NoError(t, loop.Close())

	front, ok := f.presenter().FrontBuffer()
	require.True(t, ok)

	opaqueBlue := color.NRGBA{B: 255, A: 255}

	// a 2x2 square centered in a 4x2 window
	assert.Equal(t, opaqueBlue, front.NRGBAAt(0, 0))
	assert.Equal(t, opaqueRed, front.NRGBAAt(1, 0))
	assert.Equal(t, opaqueRed, front.NRGBAAt(2, 1))
	assert.Equal(t, opaqueBlue, front.NRGBAAt(3, 1))
}
