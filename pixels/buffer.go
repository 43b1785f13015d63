package pixels

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Format tags the memory layout of a single pixel.
type Format uint8

const (
	FormatUndefined Format = iota
	FormatRGBA8
	FormatBGRA8
)

func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8, FormatBGRA8:
		return 4
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatBGRA8:
		return "BGRA8"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Buffer is an immutable block of pixels. Rows are stored top to bottom,
// each row is Stride bytes long. A Buffer never changes after construction,
// all accessors hand out copies. Color channels are not premultiplied.
type Buffer struct {
	width  int
	height int
	stride int
	format Format
	pix    []byte
}

// New creates a Buffer from tightly packed pixel data. The pixel data
// is copied.
func New(width, height int, format Format, pix []byte) (*Buffer, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("unsupported pixel format %s", format)
	}

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}

	if len(pix) != width*height*bpp {
		return nil, fmt.Errorf("expected %d bytes for %dx%d %s, got %d",
			width*height*bpp, width, height, format, len(pix))
	}

	return &Buffer{
		width:  width,
		height: height,
		stride: width * bpp,
		format: format,
		pix:    append([]byte(nil), pix...),
	}, nil
}

// FromImage converts any image into an RGBA8 buffer with straight alpha.
func FromImage(src image.Image) *Buffer {
	b := src.Bounds()

	nrgba, ok := src.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) || nrgba.Stride != b.Dx()*4 {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), src, b.Min, draw.Src)
	}

	return &Buffer{
		width:  b.Dx(),
		height: b.Dy(),
		stride: nrgba.Stride,
		format: FormatRGBA8,
		pix:    append([]byte(nil), nrgba.Pix[:nrgba.Stride*b.Dy()]...),
	}
}

func (b *Buffer) Width() int {
	return b.width
}

func (b *Buffer) Height() int {
	return b.height
}

// Stride is the number of bytes between the start of two rows.
func (b *Buffer) Stride() int {
	return b.stride
}

func (b *Buffer) Format() Format {
	return b.format
}

// Len returns the number of bytes held by the buffer.
func (b *Buffer) Len() int {
	return len(b.pix)
}

// Pix returns a copy of the pixel data.
func (b *Buffer) Pix() []byte {
	return append([]byte(nil), b.pix...)
}

// At returns the pixel at x, y in RGBA order, independent of the storage format.
func (b *Buffer) At(x, y int) [4]byte {
	off := y*b.stride + x*b.format.BytesPerPixel()
	px := b.pix[off : off+4]

	if b.format == FormatBGRA8 {
		return [4]byte{px[2], px[1], px[0], px[3]}
	}

	return [4]byte{px[0], px[1], px[2], px[3]}
}

// Image returns a copy of the buffer as an image.NRGBA.
func (b *Buffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))

	for y := range b.height {
		row := img.Pix[y*img.Stride : y*img.Stride+b.width*4]

		for x := range b.width {
			px := b.At(x, y)
			copy(row[x*4:x*4+4], px[:])
		}
	}

	return img
}

func (b *Buffer) String() string {
	return fmt.Sprintf("%dx%d %s", b.width, b.height, b.format)
}
