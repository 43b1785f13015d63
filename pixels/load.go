package pixels

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

type decodeFunc func(r io.Reader) (image.Image, error)

// decoders by mime type as reported by filetype
var decoders = map[string]decodeFunc{
	"image/png":  png.Decode,
	"image/jpeg": jpeg.Decode,
	"image/gif":  gif.Decode,
	"image/bmp":  bmp.Decode,
	"image/tiff": tiff.Decode,
	"image/webp": webp.Decode,
}

// Load reads and decodes the image file at path. The format is detected
// by the file content, the extension is ignored.
func Load(path string) (*Buffer, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	defer fp.Close()

	return Decode(fp, path)
}

// Decode reads an image from r. The name is only used for error messages.
func Decode(r io.Reader, name string) (*Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Path: name, Err: fmt.Errorf("read: %w", err)}
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, &DecodeError{Path: name, Err: ErrUnsupportedFormat}
	}

	decode, ok := decoders[kind.MIME.Value]
	if !ok {
		return nil, &DecodeError{
			Path: name,
			Err:  fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind.MIME.Value),
		}
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Path: name, Err: fmt.Errorf("%s: %w", kind.Extension, err)}
	}

	if img.Bounds().Empty() {
		return nil, &DecodeError{Path: name, Err: ErrEmptyImage}
	}

	return FromImage(img), nil
}

// Supported reports whether the mime type can be decoded.
func Supported(mime string) bool {
	_, ok := decoders[mime]
	return ok
}
