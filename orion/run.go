package orion

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/oliverbestmann/onscreen/glimpse"
	"github.com/oliverbestmann/onscreen/pixels"
	"github.com/oliverbestmann/onscreen/pulse"
)

type Options struct {
	// image to show. This and the window and driver are required
	ImagePath string

	Window glimpse.Window
	Driver pulse.Driver

	// downscale images larger than the device supports
	Fit bool

	// reload the image when the file changes
	Watch bool

	// save the last presented frame as png, if the driver supports it
	DumpPath string

	Loop LoopOptions
}

// frontBuffer is implemented by presenters that keep a copy of the
// image presented last.
type frontBuffer interface {
	FrontBuffer() (*image.NRGBA, bool)
}

// Run shows the image in the window until it is closed.
func Run(ctx context.Context, opts Options) error {
	if opts.ImagePath == "" {
		return errors.New("no image given")
	}

	if opts.Window == nil {
		return errors.New("window must not be nil")
	}

	buf, err := pixels.Load(opts.ImagePath)
	if err != nil {
		return err
	}

	slog.Info("Image loaded",
		slog.String("path", opts.ImagePath),
		slog.Int("width", buf.Width()),
		slog.Int("height", buf.Height()),
	)

	// initialize the device
	device, err := pulse.New(opts.Driver, opts.Window)
	if err != nil {
		return err
	}

	defer device.Release()

	buf = fitToDevice(device, buf, opts.Fit)

	texture, err := pulse.Upload(device, buf, pulse.UploadOptions{Label: "Image"})
	if err != nil {
		return err
	}

	loopOpts := opts.Loop

	if opts.Watch {
		watcher, err := WatchImage(opts.ImagePath, func(buf *pixels.Buffer) *pixels.Buffer {
			return fitToDevice(device, buf, opts.Fit)
		})

		if err != nil {
			texture.Release()
			return fmt.Errorf("watch image: %w", err)
		}

		defer watcher.Close()

		loopOpts.Reloads = watcher.Updates()
	}

	loop, err := NewLoop(device, opts.Window, texture, loopOpts)
	if err != nil {
		texture.Release()
		return err
	}

	err = loop.Run(ctx)

	if opts.DumpPath != "" {
		if dumpErr := dumpFrontBuffer(device, opts.DumpPath); err == nil {
			err = dumpErr
		}
	}

	slog.Info("Frame loop finished",
		slog.Int("presentations", loop.Presentations()),
		slog.Int("recreations", loop.Recreations()),
		slog.Int("errors", loop.Errors()),
	)

	return err
}

// fitToDevice downscales buf to the maximum texture dimension of the
// device, if enabled.
func fitToDevice(device *pulse.Context, buf *pixels.Buffer, enabled bool) *pixels.Buffer {
	maxDim := int(device.Limits().MaxTextureDimension2D)
	if !enabled || maxDim == 0 || max(buf.Width(), buf.Height()) <= maxDim {
		return buf
	}

	fitted := pixels.Fit(buf, maxDim)

	slog.Info("Image downscaled to fit the device",
		slog.String("from", buf.String()),
		slog.String("to", fitted.String()),
	)

	return fitted
}

func dumpFrontBuffer(device *pulse.Context, path string) error {
	presenter, ok := device.Presenter().(frontBuffer)
	if !ok {
		return fmt.Errorf("driver %s can not read back presented frames", device.DriverName())
	}

	front, ok := presenter.FrontBuffer()
	if !ok {
		return errors.New("no frame was presented")
	}

	if err := pixels.SavePNG(path, front); err != nil {
		return fmt.Errorf("dump frame: %w", err)
	}

	slog.Info("Frame saved", slog.String("path", path))

	return nil
}
