package pulse

import (
	"fmt"
)

// Texture is an image in device memory created by Upload. It is owned by
// whoever uploaded it and must be released once it is no longer drawn.
type Texture struct {
	handle DeviceTexture
	label  string

	// equal to handle.Format()
	format TextureFormat

	width  uint32
	height uint32

	released bool
}

func (t *Texture) Label() string {
	return t.label
}

func (t *Texture) Width() uint32 {
	return t.width
}

func (t *Texture) Height() uint32 {
	return t.height
}

func (t *Texture) Extent() Extent {
	return Extent{Width: t.width, Height: t.height}
}

func (t *Texture) Format() TextureFormat {
	return t.format
}

// Size returns the number of bytes the texture occupies.
func (t *Texture) Size() uint64 {
	return uint64(t.width) * uint64(t.height) * uint64(t.format.BytesPerPixel())
}

// Handle returns the driver texture, e.g. to use it as a blit source.
func (t *Texture) Handle() DeviceTexture {
	return t.handle
}

func (t *Texture) Released() bool {
	return t.released
}

// Release frees the device memory. The texture must not be used by any
// pending submission. Calling Release again has no effect.
func (t *Texture) Release() {
	if t.released {
		return
	}

	t.handle.Release()
	t.released = true
}

func (t *Texture) String() string {
	return fmt.Sprintf("Texture(%q, %dx%d %s)", t.label, t.width, t.height, t.format)
}

type WritePixelsOptions struct {
	Pixels []byte
	Region Rectangle2u
	Stride uint32
}

// WritePixelsToRect copies pixels into a region of the texture. The copy is
// ordered on the device queue before any later submission.
func (t *Texture) WritePixelsToRect(ctx *Context, opts WritePixelsOptions) error {
	if t.released {
		return ErrReleased
	}

	bounds := RectangleFromXYWH(0, 0, t.width, t.height)

	// fail if not in rect
	if opts.Region.Empty() || !bounds.Contains(opts.Region) {
		return fmt.Errorf("target rect %s not in texture region %s", opts.Region, bounds)
	}

	if opts.Stride == 0 {
		opts.Stride = opts.Region.Width() * t.format.BytesPerPixel()
	}

	required := uint64(opts.Stride)*uint64(opts.Region.Height()-1) +
		uint64(opts.Region.Width())*uint64(t.format.BytesPerPixel())

	if uint64(len(opts.Pixels)) < required {
		return fmt.Errorf("expected at least %d bytes of pixel data, got %d", required, len(opts.Pixels))
	}

	// send data to the device
	err := ctx.Queue().WriteTexture(t.handle, opts.Region, opts.Pixels, opts.Stride)
	if err != nil {
		return fmt.Errorf("copy image data to texture: %w", err)
	}

	return nil
}
