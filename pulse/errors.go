package pulse

import (
	"errors"
	"fmt"
)

// ErrSurfaceStale signals that the presentation surface no longer matches
// its window and must be recreated. It is the only recoverable error.
var ErrSurfaceStale = errors.New("surface is out of date")

var ErrLimitExceeded = errors.New("device limit exceeded")
var ErrEmptyUpload = errors.New("nothing to upload")
var ErrReleased = errors.New("resource already released")

// NoDeviceError is returned if no adapter is able to render to the window.
type NoDeviceError struct {
	Driver string
	Err    error
}

func (e *NoDeviceError) Error() string {
	return fmt.Sprintf("no usable %s device: %s", e.Driver, e.Err)
}

func (e *NoDeviceError) Unwrap() error {
	return e.Err
}

// DeviceCreationError is returned if an adapter was found, but the
// device could not be created with the requested features.
type DeviceCreationError struct {
	Driver string
	Err    error
}

func (e *DeviceCreationError) Error() string {
	return fmt.Sprintf("create %s device: %s", e.Driver, e.Err)
}

func (e *DeviceCreationError) Unwrap() error {
	return e.Err
}

type SurfaceCreationError struct {
	Err error
}

func (e *SurfaceCreationError) Error() string {
	return fmt.Sprintf("create surface: %s", e.Err)
}

func (e *SurfaceCreationError) Unwrap() error {
	return e.Err
}

type UploadError struct {
	Label  string
	Width  int
	Height int
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q (%dx%d): %s", e.Label, e.Width, e.Height, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// SubmissionError is returned when the device rejects work or stops
// making progress. It usually means a programming error or a lost device.
type SubmissionError struct {
	Label string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %q: %s", e.Label, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must terminate the frame loop.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrSurfaceStale)
}
