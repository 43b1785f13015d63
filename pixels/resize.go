package pixels

import "github.com/nfnt/resize"

// Fit returns a copy of buf scaled down so that neither dimension exceeds
// maxDim. The aspect ratio is kept. Buffers that already fit are returned as is.
func Fit(buf *Buffer, maxDim int) *Buffer {
	if maxDim <= 0 || (buf.width <= maxDim && buf.height <= maxDim) {
		return buf
	}

	scaled := resize.Thumbnail(uint(maxDim), uint(maxDim), buf.Image(), resize.Lanczos3)
	return FromImage(scaled)
}
