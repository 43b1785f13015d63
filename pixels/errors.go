package pixels

import (
	"errors"
	"fmt"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")
var ErrEmptyImage = errors.New("image has no pixels")

// DecodeError is returned if an image file is missing, unreadable
// or not in a supported format.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode image: %s", e.Err)
	}

	return fmt.Sprintf("decode image %q: %s", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
