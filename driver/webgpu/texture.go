package webgpu

import (
	"fmt"

	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

type texture2D struct {
	label  string
	format pulse.TextureFormat
	width  uint32
	height uint32

	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *texture2D) Width() uint32 {
	return t.width
}

func (t *texture2D) Height() uint32 {
	return t.height
}

func (t *texture2D) Format() pulse.TextureFormat {
	return t.format
}

func (t *texture2D) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}

	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

func asTexture(value pulse.DeviceTexture) (*texture2D, error) {
	tex, ok := value.(*texture2D)
	if !ok {
		return nil, fmt.Errorf("texture of type %T was not created by the webgpu driver", value)
	}

	if tex.texture == nil {
		return nil, fmt.Errorf("texture %q: %w", tex.label, pulse.ErrReleased)
	}

	return tex, nil
}
