package pulse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorRoundTrip(t *testing.T) {
	color, err := ParseColor("#ff8000")
	require.NoError(t, err)

	assert.Equal(t, [4]uint8{255, 128, 0, 255}, color.ToSRGBA8())
}

func TestParseColorWithAlpha(t *testing.T) {
	color, err := ParseColor("00000080")
	require.NoError(t, err)

	assert.InDelta(t, 128.0/255.0, color.Alpha(), 1e-6)
}

func TestParseColorInvalid(t *testing.T) {
	for _, text := range []string{"", "#fff", "#gggggg", "#12345"} {
		_, err := ParseColor(text)
		assert.Error(t, err, text)
	}
}

func TestZeroColorIsOpaqueWhite(t *testing.T) {
	var color Color
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, color.ToSRGBA8())
	assert.Equal(t, ColorWhite, color)
}
