package soft

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/oliverbestmann/onscreen/pixels"
	"github.com/oliverbestmann/onscreen/pulse"
)

// texture stores texels in an image.NRGBA. BGRA data is swizzled on write,
// so the image always holds rgba values.
type texture struct {
	label    string
	format   pulse.TextureFormat
	img      *image.NRGBA
	released atomic.Bool
	live     *atomic.Int64
}

func newTexture(desc pulse.TextureDescriptor) (*texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("invalid texture size %dx%d", desc.Width, desc.Height)
	}

	if desc.Format.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("unsupported texture format %s", desc.Format)
	}

	return &texture{
		label:  desc.Label,
		format: desc.Format,
		img:    image.NewNRGBA(image.Rect(0, 0, int(desc.Width), int(desc.Height))),
	}, nil
}

func (t *texture) Width() uint32 {
	return uint32(t.img.Rect.Dx())
}

func (t *texture) Height() uint32 {
	return uint32(t.img.Rect.Dy())
}

func (t *texture) Format() pulse.TextureFormat {
	return t.format
}

func (t *texture) Release() {
	if t.released.CompareAndSwap(false, true) && t.live != nil {
		t.live.Add(-1)
	}
}

// write copies pixels into region. Must only be called by the queue worker.
func (t *texture) write(region pulse.Rectangle2u, pix []byte, stride uint32) {
	x, y, w, h := region.XYWH()
	bgra := t.format.Layout() == pixels.FormatBGRA8

	for row := range h {
		src := pix[row*stride : row*stride+w*4]

		off := t.img.PixOffset(int(x), int(y+row))
		dst := t.img.Pix[off : off+int(w)*4]

		copy(dst, src)

		if bgra {
			for idx := 0; idx < len(dst); idx += 4 {
				dst[idx], dst[idx+2] = dst[idx+2], dst[idx]
			}
		}
	}
}

func asTexture(value pulse.DeviceTexture) (*texture, error) {
	tex, ok := value.(*texture)
	if !ok {
		return nil, fmt.Errorf("texture of type %T was not created by the soft driver", value)
	}

	if tex.released.Load() {
		return nil, fmt.Errorf("texture %q: %w", tex.label, pulse.ErrReleased)
	}

	return tex, nil
}

var errForeignImage = errors.New("swap image was not created by the soft driver")
