package webgpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

var errForeignImage = errors.New("swap image was not created by the webgpu driver")

// fence is signaled once the device was polled to idle after the
// submission it belongs to.
type fence struct {
	q      *queue
	serial uint64
}

func (f *fence) Signaled() bool {
	return f.q.completed.Load() >= f.serial
}

func (f *fence) Wait(ctx context.Context) error {
	if f.Signaled() {
		return nil
	}

	return f.q.WaitIdle(ctx)
}

type queue struct {
	dev *Device
	wq  *wgpu.Queue

	// serial of the last submission and the last one known to be complete
	submitted atomic.Uint64
	completed atomic.Uint64
}

func (q *queue) markCompleted(serial uint64) {
	for {
		current := q.completed.Load()
		if current >= serial || q.completed.CompareAndSwap(current, serial) {
			return
		}
	}
}

func (q *queue) WriteTexture(dst pulse.DeviceTexture, region pulse.Rectangle2u, pix []byte, stride uint32) (err error) {
	tex, err := asTexture(dst)
	if err != nil {
		return err
	}

	bounds := pulse.RectangleFromXYWH(0, 0, tex.width, tex.height)
	if region.Empty() || !bounds.Contains(region) {
		return fmt.Errorf("region %s outside of texture %s", region, bounds)
	}

	if stride == 0 {
		stride = region.Width() * tex.format.BytesPerPixel()
	}

	layout := &wgpu.TexelCopyBufferLayout{
		Offset:       0,
		BytesPerRow:  stride,
		RowsPerImage: region.Height(),
	}

	size := &wgpu.Extent3D{
		Width:              region.Width(),
		Height:             region.Height(),
		DepthOrArrayLayers: 1,
	}

	dest := &wgpu.TexelCopyTextureInfo{
		Texture:  tex.texture,
		MipLevel: 0,
		Origin: wgpu.Origin3D{
			X: region.Min[0],
			Y: region.Min[1],
		},
		Aspect: wgpu.TextureAspectAll,
	}

	defer recoverError(&err, func(err error) error {
		return fmt.Errorf("copy image data to texture: %w", err)
	})

	// the data is copied into a staging buffer by wgpu
	q.wq.WriteTexture(dest, pix, layout, size)

	return nil
}

func (q *queue) Submit(list *pulse.CommandList) (_ pulse.Fence, err error) {
	target, ok := list.Target.(*swapImage)
	if !ok || target.view == nil {
		return nil, errForeignImage
	}

	defer recoverError(&err, nil)

	buf, release, err := q.dev.blitter.Encode(list, target)
	if err != nil {
		return nil, err
	}

	defer release()
	defer buf.Release()

	q.wq.Submit(buf)

	serial := q.submitted.Add(1)

	pulse.Logger().Debug("Command list submitted",
		slog.String("label", list.Label),
		slog.Int("commands", len(list.Commands)),
		slog.Uint64("serial", serial))

	return &fence{q: q, serial: serial}, nil
}

func (q *queue) WaitIdle(ctx context.Context) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	defer recoverError(&err, nil)

	// everything submitted before the blocking poll is complete after it
	serial := q.submitted.Load()

	q.dev.device.Poll(true, nil)

	q.markCompleted(serial)

	return nil
}
