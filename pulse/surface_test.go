package pulse_test

import (
	"context"
	"testing"
	"time"

	"github.com/oliverbestmann/onscreen/driver/soft"
	"github.com/oliverbestmann/onscreen/glimpse"
	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renderFrame runs one acquire, submit and present cycle.
func renderFrame(t *testing.T, surface *pulse.Surface) *pulse.FrameSlot {
	t.Helper()

	slot, err := surface.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, pulse.SlotAcquired, slot.State())

	list := &pulse.CommandList{Label: "Frame"}
	list.Clear(pulse.ColorBlack)

	require.NoError(t, surface.Submit(slot, list))
	require.NoError(t, surface.Present(slot))

	return slot
}

func TestSurfaceNegotiatesWindowExtent(t *testing.T) {
	ctx, driver := newContext(t, soft.Options{}, glimpse.NewHeadless(320, 200))

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{})
	require.NoError(t, err)
	defer surface.Release()

	assert.Equal(t, pulse.Extent{Width: 320, Height: 200}, surface.Extent())
	assert.Equal(t, pulse.TextureFormatBGRA8Unorm, surface.Config().Format)
	assert.Equal(t, pulse.PresentModeFifo, surface.Config().PresentMode)
	assert.Equal(t, uint32(3), surface.Config().ImageCount)
	assert.Len(t, surface.Slots(), 3)

	config, ok := driver.Device().SoftPresenter().Config()
	require.True(t, ok)
	assert.Equal(t, surface.Config(), config)
}

func TestSurfaceCapabilitiesFail(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{FailCapabilities: true}, glimpse.NewHeadless(4, 4))

	_, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{})

	var surfaceErr *pulse.SurfaceCreationError
	assert.ErrorAs(t, err, &surfaceErr)
}

func TestSurfaceSlotTransitions(t *testing.T) {
	ctx, driver := newContext(t, soft.Options{Latency: time.Millisecond}, glimpse.NewHeadless(8, 8))

	var transitions []pulse.SlotTransition

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{
		OnSlotTransition: func(t pulse.SlotTransition) {
			transitions = append(transitions, t)
		},
	})
	require.NoError(t, err)

	for range 20 {
		renderFrame(t, surface)
		assert.LessOrEqual(t, surface.InFlight(), 2)
	}

	surface.Release()

	require.NotEmpty(t, transitions)

	for _, tr := range transitions {
		if tr.To == pulse.SlotAcquired {
			assert.Equal(t, pulse.SlotFree, tr.From, "slot %d acquired while %s", tr.Slot, tr.From)
		}
	}

	assert.Equal(t, 20, driver.Device().SoftPresenter().Presentations())
}

func TestSurfaceAcquireTwice(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(8, 8))

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{})
	require.NoError(t, err)
	defer surface.Release()

	_, err = surface.Acquire(context.Background())
	require.NoError(t, err)

	_, err = surface.Acquire(context.Background())
	assert.Error(t, err)
}

func TestSurfaceSubmitWithoutAcquire(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(8, 8))

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{})
	require.NoError(t, err)
	defer surface.Release()

	slot := renderFrame(t, surface)

	// the slot was already presented
	err = surface.Submit(slot, &pulse.CommandList{Label: "Again"})

	var submission *pulse.SubmissionError
	assert.ErrorAs(t, err, &submission)

	err = surface.Present(slot)
	assert.ErrorAs(t, err, &submission)
}

func TestSurfaceStaleAcquire(t *testing.T) {
	ctx, driver := newContext(t, soft.Options{}, glimpse.NewHeadless(8, 8))

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{})
	require.NoError(t, err)
	defer surface.Release()

	driver.Device().SoftPresenter().FailAcquires(1)

	_, err = surface.Acquire(context.Background())
	assert.ErrorIs(t, err, pulse.ErrSurfaceStale)
	assert.False(t, pulse.IsFatal(err))

	// the next acquire works again
	renderFrame(t, surface)
}

func TestSurfaceRecreateOnResize(t *testing.T) {
	win := glimpse.NewHeadless(8, 8)
	ctx, driver := newContext(t, soft.Options{}, win)

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{})
	require.NoError(t, err)
	defer surface.Release()

	renderFrame(t, surface)

	win.SetSize(16, 12)

	_, err = surface.Acquire(context.Background())
	require.ErrorIs(t, err, pulse.ErrSurfaceStale)

	require.NoError(t, surface.Recreate(context.Background(), pulse.Extent{Width: 16, Height: 12}))
	assert.Equal(t, pulse.Extent{Width: 16, Height: 12}, surface.Extent())
	assert.Equal(t, 2, driver.Device().SoftPresenter().Configures())

	for _, slot := range surface.Slots() {
		assert.Equal(t, pulse.SlotFree, slot.State())
	}

	renderFrame(t, surface)
	require.NoError(t, ctx.WaitIdle(context.Background()))

	front, ok := driver.Device().SoftPresenter().FrontBuffer()
	require.True(t, ok)
	assert.Equal(t, 16, front.Rect.Dx())
	assert.Equal(t, 12, front.Rect.Dy())
}

func TestSurfaceStalePresentKeepsSlotInFlight(t *testing.T) {
	ctx, driver := newContext(t, soft.Options{}, glimpse.NewHeadless(8, 8))

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{})
	require.NoError(t, err)
	defer surface.Release()

	slot, err := surface.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, surface.Submit(slot, &pulse.CommandList{Label: "Frame"}))

	driver.Device().SoftPresenter().FailPresents(1)

	err = surface.Present(slot)
	require.ErrorIs(t, err, pulse.ErrSurfaceStale)
	assert.Equal(t, pulse.SlotInFlight, slot.State())

	// recreating waits for the submission and frees the slot
	require.NoError(t, surface.Recreate(context.Background(), surface.Extent()))
	assert.Equal(t, 0, surface.InFlight())
}

func TestSurfaceWaitIdleReturnsAcquiredSlot(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(8, 8))

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{})
	require.NoError(t, err)
	defer surface.Release()

	slot, err := surface.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, surface.WaitIdle(context.Background()))
	assert.Equal(t, pulse.SlotFree, slot.State())
}

func TestSurfaceAfterRelease(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(8, 8))

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{})
	require.NoError(t, err)

	surface.Release()
	surface.Release()

	_, err = surface.Acquire(context.Background())
	assert.ErrorIs(t, err, pulse.ErrReleased)
}
