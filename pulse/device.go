package pulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// releaseTimeout bounds the time Release waits for outstanding work.
const releaseTimeout = 5 * time.Second

// Context is the shared handle to a graphics device. It is created once
// and passed explicitly to everything that needs the device. The queue
// is the only part of the device that is mutated.
type Context struct {
	driver string
	device Device
	queue  Queue

	releaseOnce sync.Once
	released    atomic.Bool
}

// New opens a device of the given driver that is able to present to win.
func New(driver Driver, win Window) (*Context, error) {
	if driver == nil {
		return nil, &NoDeviceError{Driver: "none", Err: errors.New("no driver configured")}
	}

	device, err := driver.Open(win)
	if err != nil {
		var noDevice *NoDeviceError
		var creation *DeviceCreationError

		if !errors.As(err, &noDevice) && !errors.As(err, &creation) {
			err = &DeviceCreationError{Driver: driver.Name(), Err: err}
		}

		return nil, err
	}

	ctx := &Context{
		driver: driver.Name(),
		device: device,
		queue:  device.Queue(),
	}

	limits := device.Limits()

	Logger().Info("Device created",
		slog.String("driver", ctx.driver),
		slog.Int("maxTextureDimension2D", int(limits.MaxTextureDimension2D)),
	)

	return ctx, nil
}

func (c *Context) DriverName() string {
	return c.driver
}

// Device returns the driver device. Prefer the methods on Context.
func (c *Context) Device() Device {
	return c.device
}

func (c *Context) Queue() Queue {
	return c.queue
}

func (c *Context) Presenter() Presenter {
	return c.device.Presenter()
}

func (c *Context) Limits() Limits {
	return c.device.Limits()
}

// WaitIdle blocks until all submitted work has completed.
func (c *Context) WaitIdle(ctx context.Context) error {
	if c.released.Load() {
		return ErrReleased
	}

	if err := c.queue.WaitIdle(ctx); err != nil {
		return fmt.Errorf("wait for device: %w", err)
	}

	return nil
}

// Release waits for outstanding work and releases the device. It must be
// the last thing released. Calling it again has no effect.
func (c *Context) Release() {
	c.releaseOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := c.queue.WaitIdle(ctx); err != nil {
			Logger().Warn("Device did not become idle before release", slog.Any("err", err))
		}

		c.device.Release()
		c.released.Store(true)

		Logger().Info("Device released", slog.String("driver", c.driver))
	})
}

func (c *Context) Released() bool {
	return c.released.Load()
}
