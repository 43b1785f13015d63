package pulse

import "context"

// Window is the part of a window a driver needs to create a surface.
// Drivers may require additional methods, e.g. a native surface descriptor.
type Window interface {
	Size() (width, height uint32)
}

// Driver connects to a graphics device. Implementations live in the
// driver packages.
type Driver interface {
	Name() string

	// Open connects to a device that is able to present to the given window.
	// It returns a NoDeviceError if there is no such device and a
	// DeviceCreationError if the device could not be created.
	Open(win Window) (Device, error)
}

type Limits struct {
	MaxTextureDimension2D uint32

	// maximum size of a single texture in bytes, zero for no limit
	MaxTextureBytes uint64
}

type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format TextureFormat
}

// DeviceTexture is a texture living in device memory.
type DeviceTexture interface {
	Width() uint32
	Height() uint32
	Format() TextureFormat
	Release()
}

type Device interface {
	Limits() Limits
	Queue() Queue
	Presenter() Presenter
	CreateTexture(desc TextureDescriptor) (DeviceTexture, error)
	Release()
}

// Fence signals completion of a submission.
type Fence interface {
	// Signaled reports whether the submission has completed, without blocking.
	Signaled() bool

	// Wait blocks until the submission has completed or ctx is done.
	Wait(ctx context.Context) error
}

// Queue executes work asynchronously in submission order. Everything
// written or submitted to a queue is executed after everything written
// or submitted before.
type Queue interface {
	// WriteTexture copies pixels into the rectangle of a texture.
	// The pixel data is copied before WriteTexture returns.
	WriteTexture(dst DeviceTexture, region Rectangle2u, pix []byte, stride uint32) error

	Submit(list *CommandList) (Fence, error)

	// WaitIdle blocks until all work submitted so far has completed.
	WaitIdle(ctx context.Context) error
}

// SwapImage is one image of a presenter's swap chain.
type SwapImage interface {
	Index() int
	Extent() Extent
	Format() TextureFormat
}

type Capabilities struct {
	Formats      []TextureFormat
	PresentModes []PresentMode

	MinImageCount uint32

	// zero means no upper limit
	MaxImageCount uint32

	// size of the window surface as reported by the system,
	// zero if undefined
	CurrentExtent Extent

	MinExtent Extent

	// zero means no upper limit
	MaxExtent Extent
}

// Presenter is the window side of a device: a chain of images that are
// shown one after another.
type Presenter interface {
	Capabilities() (Capabilities, error)
	Configure(config SurfaceConfig) error
	Unconfigure()

	// Acquire returns the next image to render into. It returns
	// ErrSurfaceStale if the surface needs to be configured again.
	Acquire(ctx context.Context) (SwapImage, error)

	// Present shows the image once all work submitted before has completed.
	// It returns ErrSurfaceStale if the surface went out of date.
	Present(image SwapImage) error
}
