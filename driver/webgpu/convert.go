package webgpu

import (
	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

var formats = map[pulse.TextureFormat]wgpu.TextureFormat{
	pulse.TextureFormatRGBA8Unorm:     wgpu.TextureFormatRGBA8Unorm,
	pulse.TextureFormatRGBA8UnormSrgb: wgpu.TextureFormatRGBA8UnormSrgb,
	pulse.TextureFormatBGRA8Unorm:     wgpu.TextureFormatBGRA8Unorm,
	pulse.TextureFormatBGRA8UnormSrgb: wgpu.TextureFormatBGRA8UnormSrgb,
}

var presentModes = map[pulse.PresentMode]wgpu.PresentMode{
	pulse.PresentModeFifo:        wgpu.PresentModeFifo,
	pulse.PresentModeFifoRelaxed: wgpu.PresentModeFifoRelaxed,
	pulse.PresentModeMailbox:     wgpu.PresentModeMailbox,
	pulse.PresentModeImmediate:   wgpu.PresentModeImmediate,
}

func toWGPUFormat(format pulse.TextureFormat) (wgpu.TextureFormat, bool) {
	value, ok := formats[format]
	return value, ok
}

func fromWGPUFormat(format wgpu.TextureFormat) (pulse.TextureFormat, bool) {
	for key, value := range formats {
		if value == format {
			return key, true
		}
	}

	return pulse.TextureFormatUndefined, false
}

func toWGPUPresentMode(mode pulse.PresentMode) (wgpu.PresentMode, bool) {
	value, ok := presentModes[mode]
	return value, ok
}

func fromWGPUPresentMode(mode wgpu.PresentMode) (pulse.PresentMode, bool) {
	for key, value := range presentModes {
		if value == mode {
			return key, true
		}
	}

	return pulse.PresentModeUndefined, false
}

func toWGPUFilter(filter pulse.FilterMode) wgpu.FilterMode {
	if filter == pulse.FilterNearest {
		return wgpu.FilterModeNearest
	}

	return wgpu.FilterModeLinear
}

// clearValue returns the value a clear must write for the color to be
// shown as in the soft driver. Srgb targets encode on write.
func clearValue(color pulse.Color, target pulse.TextureFormat) wgpu.Color {
	if target.IsSrgb() {
		r, g, b, a := color.Components()
		return wgpu.Color{R: float64(r), G: float64(g), B: float64(b), A: float64(a)}
	}

	rgba := color.ToSRGBA8()

	return wgpu.Color{
		R: float64(rgba[0]) / 255,
		G: float64(rgba[1]) / 255,
		B: float64(rgba[2]) / 255,
		A: float64(rgba[3]) / 255,
	}
}
