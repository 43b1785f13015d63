package pulse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitRect(t *testing.T) {
	cases := []struct {
		name     string
		source   Extent
		target   Extent
		expected Rectangle2u
	}{
		{
			name:     "same aspect",
			source:   Extent{Width: 4, Height: 4},
			target:   Extent{Width: 100, Height: 100},
			expected: RectangleFromXYWH[uint32](0, 0, 100, 100),
		},
		{
			name:     "wide source",
			source:   Extent{Width: 200, Height: 100},
			target:   Extent{Width: 100, Height: 100},
			expected: RectangleFromXYWH[uint32](0, 25, 100, 50),
		},
		{
			name:     "tall source",
			source:   Extent{Width: 100, Height: 200},
			target:   Extent{Width: 100, Height: 100},
			expected: RectangleFromXYWH[uint32](25, 0, 50, 100),
		},
		{
			name:     "upscale",
			source:   Extent{Width: 4, Height: 4},
			target:   Extent{Width: 1000, Height: 600},
			expected: RectangleFromXYWH[uint32](200, 0, 600, 600),
		},
		{
			name:   "empty target",
			source: Extent{Width: 4, Height: 4},
			target: Extent{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FitRect(tc.source, tc.target))
		})
	}
}

func TestRectangleContains(t *testing.T) {
	outer := RectangleFromXYWH[uint32](0, 0, 10, 10)

	assert.True(t, outer.Contains(RectangleFromXYWH[uint32](2, 2, 8, 8)))
	assert.False(t, outer.Contains(RectangleFromXYWH[uint32](2, 2, 9, 8)))
}

func TestExtentClamp(t *testing.T) {
	lo := Extent{Width: 1, Height: 1}

	assert.Equal(t, Extent{Width: 5, Height: 7}, Extent{Width: 5, Height: 7}.Clamp(lo, Extent{}))
	assert.Equal(t, Extent{Width: 4, Height: 4}, Extent{Width: 5, Height: 7}.Clamp(lo, Extent{Width: 4, Height: 4}))
	assert.Equal(t, Extent{Width: 1, Height: 1}, Extent{}.Clamp(lo, Extent{Width: 4, Height: 4}))
}

func TestRectangleIntersect(t *testing.T) {
	a := RectangleFromXYWH[uint32](0, 0, 10, 10)

	assert.Equal(t, RectangleFromXYWH[uint32](5, 5, 5, 5), a.Intersect(RectangleFromXYWH[uint32](5, 5, 10, 10)))
	assert.True(t, a.Intersect(RectangleFromXYWH[uint32](20, 20, 2, 2)).Empty())
}
