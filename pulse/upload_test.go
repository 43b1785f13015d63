package pulse_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/oliverbestmann/onscreen/driver/soft"
	"github.com/oliverbestmann/onscreen/glimpse"
	"github.com/oliverbestmann/onscreen/pixels"
	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redBuffer(t *testing.T, width, height int) *pixels.Buffer {
	t.Helper()

	pix := bytes.Repeat([]byte{255, 0, 0, 255}, width*height)

	buf, err := pixels.New(width, height, pixels.FormatRGBA8, pix)
	require.NoError(t, err)

	return buf
}

func TestUploadSize(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(4, 4))

	tex, err := pulse.Upload(ctx, redBuffer(t, 4, 4), pulse.UploadOptions{Label: "red"})
	require.NoError(t, err)
	defer tex.Release()

	assert.Equal(t, uint64(64), tex.Size())
	assert.Equal(t, uint32(4), tex.Width())
	assert.Equal(t, uint32(4), tex.Height())
	assert.Equal(t, pulse.TextureFormatRGBA8Unorm, tex.Format())
}

func TestUploadIsRepeatable(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(4, 4))

	buf := redBuffer(t, 7, 3)

	first, err := pulse.Upload(ctx, buf, pulse.UploadOptions{})
	require.NoError(t, err)

	second, err := pulse.Upload(ctx, buf, pulse.UploadOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Size(), second.Size())
	assert.NotSame(t, first, second)
	assert.NotSame(t, first.Handle(), second.Handle())

	// releasing one does not affect the other
	first.Release()
	assert.True(t, first.Released())
	assert.False(t, second.Released())

	second.Release()
}

func TestUploadExceedsDimension(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{
		Limits: pulse.Limits{MaxTextureDimension2D: 8},
	}, glimpse.NewHeadless(4, 4))

	tex, err := pulse.Upload(ctx, redBuffer(t, 9, 2), pulse.UploadOptions{Label: "wide"})
	assert.Nil(t, tex)

	var uploadErr *pulse.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, 9, uploadErr.Width)
	assert.ErrorIs(t, err, pulse.ErrLimitExceeded)
}

func TestUploadExceedsBytes(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{
		Limits: pulse.Limits{MaxTextureBytes: 63},
	}, glimpse.NewHeadless(4, 4))

	_, err := pulse.Upload(ctx, redBuffer(t, 4, 4), pulse.UploadOptions{})
	assert.ErrorIs(t, err, pulse.ErrLimitExceeded)
}

func TestUploadFormatMismatch(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(4, 4))

	_, err := pulse.Upload(ctx, redBuffer(t, 1, 1), pulse.UploadOptions{
		Format: pulse.TextureFormatBGRA8Unorm,
	})

	var uploadErr *pulse.UploadError
	assert.ErrorAs(t, err, &uploadErr)
}

func TestUploadSrgbFormat(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(4, 4))

	tex, err := pulse.Upload(ctx, redBuffer(t, 1, 1), pulse.UploadOptions{
		Format: pulse.TextureFormatRGBA8UnormSrgb,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), tex.Size())
}

func TestUploadEmpty(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(4, 4))

	_, err := pulse.Upload(ctx, nil, pulse.UploadOptions{})
	assert.ErrorIs(t, err, pulse.ErrEmptyUpload)
}

func TestUploadAfterRelease(t *testing.T) {
	ctx, _ := newContext(t, soft.Options{}, glimpse.NewHeadless(4, 4))
	ctx.Release()

	_, err := pulse.Upload(ctx, redBuffer(t, 1, 1), pulse.UploadOptions{})
	assert.ErrorIs(t, err, pulse.ErrReleased)
}

func TestUploadedPixelsAreDrawn(t *testing.T) {
	win := glimpse.NewHeadless(2, 2)
	ctx, driver := newContext(t, soft.Options{}, win)

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	src.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})
	src.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})
	src.SetRGBA(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	tex, err := pulse.Upload(ctx, pixels.FromImage(src), pulse.UploadOptions{})
	require.NoError(t, err)
	defer tex.Release()

	surface, err := pulse.NewSurface(ctx, pulse.SurfaceOptions{
		Extent:          pulse.Extent{Width: 2, Height: 2},
		PreferredFormat: pulse.TextureFormatRGBA8Unorm,
	})
	require.NoError(t, err)
	defer surface.Release()

	slot, err := surface.Acquire(context.Background())
	require.NoError(t, err)

	list := &pulse.CommandList{Label: "Frame"}
	list.Clear(pulse.ColorBlack)
	list.Blit(tex.Handle(), pulse.FitRect(tex.Extent(), surface.Extent()), pulse.FilterNearest)

	require.NoError(t, surface.Submit(slot, list))
	require.NoError(t, surface.Present(slot))
	require.NoError(t, ctx.WaitIdle(context.Background()))

	front, ok := driver.Device().SoftPresenter().FrontBuffer()
	require.True(t, ok)
	assert.Equal(t, src.Pix, front.Pix)
}
