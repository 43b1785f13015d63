package pulse

import (
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/onscreen/pixels"
)

type UploadOptions struct {
	Label string

	// Format of the texture. Must have the same memory layout as the
	// pixel buffer. Defaults to the unorm format matching the buffer.
	Format TextureFormat
}

// Upload copies the pixel buffer into a new texture. Every later submission
// on the context's queue reads the texture after the copy has completed.
// Each call creates a new texture, nothing is cached.
func Upload(ctx *Context, buf *pixels.Buffer, opts UploadOptions) (*Texture, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, &UploadError{Label: opts.Label, Err: ErrEmptyUpload}
	}

	uploadErr := func(err error) error {
		return &UploadError{
			Label:  opts.Label,
			Width:  buf.Width(),
			Height: buf.Height(),
			Err:    err,
		}
	}

	if ctx.Released() {
		return nil, uploadErr(ErrReleased)
	}

	format := opts.Format
	if format == TextureFormatUndefined {
		format = TextureFormatOf(buf.Format())
	}

	if format.Layout() != buf.Format() {
		return nil, uploadErr(fmt.Errorf("texture format %s can not hold %s pixels", format, buf.Format()))
	}

	width, height := uint32(buf.Width()), uint32(buf.Height())

	limits := ctx.Limits()
	if limits.MaxTextureDimension2D > 0 && max(width, height) > limits.MaxTextureDimension2D {
		return nil, uploadErr(fmt.Errorf("%w: dimension exceeds %d",
			ErrLimitExceeded, limits.MaxTextureDimension2D))
	}

	size := uint64(width) * uint64(height) * uint64(format.BytesPerPixel())
	if limits.MaxTextureBytes > 0 && size > limits.MaxTextureBytes {
		return nil, uploadErr(fmt.Errorf("%w: %d bytes exceed %d bytes",
			ErrLimitExceeded, size, limits.MaxTextureBytes))
	}

	handle, err := ctx.Device().CreateTexture(TextureDescriptor{
		Label:  opts.Label,
		Width:  width,
		Height: height,
		Format: format,
	})
	if err != nil {
		return nil, uploadErr(fmt.Errorf("create texture: %w", err))
	}

	tex := &Texture{
		handle: handle,
		label:  opts.Label,
		format: format,
		width:  width,
		height: height,
	}

	guard := NewReleaseGuard(tex)
	defer guard.Release()

	err = tex.WritePixelsToRect(ctx, WritePixelsOptions{
		Pixels: buf.Pix(),
		Region: RectangleFromXYWH(0, 0, width, height),
		Stride: uint32(buf.Stride()),
	})
	if err != nil {
		return nil, uploadErr(err)
	}

	guard.Keep()

	Logger().Debug("Texture uploaded",
		slog.String("label", opts.Label),
		slog.Int("width", int(width)),
		slog.Int("height", int(height)),
		slog.Uint64("bytes", size),
	)

	return tex, nil
}
