package pulse

import (
	"fmt"
	"strings"

	"github.com/oliverbestmann/onscreen/pixels"
)

type TextureFormat uint8

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb
)

// TextureFormatOf returns the texture format that stores pixels of the
// given layout without conversion.
func TextureFormatOf(format pixels.Format) TextureFormat {
	switch format {
	case pixels.FormatRGBA8:
		return TextureFormatRGBA8Unorm
	case pixels.FormatBGRA8:
		return TextureFormatBGRA8Unorm
	default:
		return TextureFormatUndefined
	}
}

// Layout returns the memory layout of a single texel.
func (f TextureFormat) Layout() pixels.Format {
	switch f {
	case TextureFormatRGBA8Unorm, TextureFormatRGBA8UnormSrgb:
		return pixels.FormatRGBA8
	case TextureFormatBGRA8Unorm, TextureFormatBGRA8UnormSrgb:
		return pixels.FormatBGRA8
	default:
		return pixels.FormatUndefined
	}
}

func (f TextureFormat) BytesPerPixel() uint32 {
	return uint32(f.Layout().BytesPerPixel())
}

func (f TextureFormat) IsSrgb() bool {
	return f == TextureFormatRGBA8UnormSrgb || f == TextureFormatBGRA8UnormSrgb
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	case TextureFormatRGBA8UnormSrgb:
		return "RGBA8UnormSrgb"
	case TextureFormatBGRA8Unorm:
		return "BGRA8Unorm"
	case TextureFormatBGRA8UnormSrgb:
		return "BGRA8UnormSrgb"
	default:
		return fmt.Sprintf("TextureFormat(%d)", uint8(f))
	}
}

type PresentMode uint8

const (
	PresentModeUndefined PresentMode = iota
	PresentModeFifo
	PresentModeFifoRelaxed
	PresentModeMailbox
	PresentModeImmediate
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo-relaxed"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("PresentMode(%d)", uint8(m))
	}
}

// ParsePresentMode parses the lower case name of a present mode.
func ParsePresentMode(name string) (PresentMode, error) {
	switch strings.ToLower(name) {
	case "", "fifo":
		return PresentModeFifo, nil
	case "fifo-relaxed":
		return PresentModeFifoRelaxed, nil
	case "mailbox":
		return PresentModeMailbox, nil
	case "immediate":
		return PresentModeImmediate, nil
	default:
		return PresentModeUndefined, fmt.Errorf("unknown present mode %q", name)
	}
}

type FilterMode uint8

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

func (f FilterMode) String() string {
	if f == FilterNearest {
		return "nearest"
	}

	return "linear"
}

func ParseFilterMode(name string) (FilterMode, error) {
	switch strings.ToLower(name) {
	case "", "linear":
		return FilterLinear, nil
	case "nearest":
		return FilterNearest, nil
	default:
		return FilterLinear, fmt.Errorf("unknown filter mode %q", name)
	}
}

// Extent is the size of a surface or texture in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Clamp limits the extent to the bounds given by lo and hi. A zero
// component in hi means unbounded.
func (e Extent) Clamp(lo, hi Extent) Extent {
	e.Width = max(e.Width, lo.Width)
	e.Height = max(e.Height, lo.Height)

	if hi.Width > 0 {
		e.Width = min(e.Width, hi.Width)
	}

	if hi.Height > 0 {
		e.Height = min(e.Height, hi.Height)
	}

	return e
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}
