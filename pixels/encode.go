package pixels

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// SavePNG encodes img as png into a new file at path.
func SavePNG(path string, img image.Image) (err error) {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}

	defer func() {
		if closeErr := fp.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close %q: %w", path, closeErr)
		}
	}()

	if err := png.Encode(fp, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	return nil
}
