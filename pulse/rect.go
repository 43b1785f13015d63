package pulse

import (
	"fmt"

	"github.com/oliverbestmann/onscreen/glm"
	"golang.org/x/exp/constraints"
)

type numeric interface {
	constraints.Integer | constraints.Float
}

type Rectangle2f = Rectangle2[float32]
type Rectangle2u = Rectangle2[uint32]

type Rectangle2[T numeric] struct {
	Min glm.Vec2[T]
	Max glm.Vec2[T]
}

func RectangleFromSize[T numeric](pos glm.Vec2[T], size glm.Vec2[T]) Rectangle2[T] {
	return RectangleFromPoints[T](pos, pos.Add(size))
}

func RectangleFromXYWH[T numeric](x, y, w, h T) Rectangle2[T] {
	return RectangleFromSize(glm.Vec2[T]{x, y}, glm.Vec2[T]{w, h})
}

func RectangleFromPoints[T numeric](a, b glm.Vec2[T]) Rectangle2[T] {
	return Rectangle2[T]{
		Min: glm.Vec2[T]{
			min(a[0], b[0]),
			min(a[1], b[1]),
		},
		Max: glm.Vec2[T]{
			max(a[0], b[0]),
			max(a[1], b[1]),
		},
	}
}

func (r Rectangle2[T]) Size() glm.Vec2[T] {
	return r.Max.Sub(r.Min)
}

func (r Rectangle2[T]) Width() T {
	return r.Max[0] - r.Min[0]
}

func (r Rectangle2[T]) Height() T {
	return r.Max[1] - r.Min[1]
}

func (r Rectangle2[T]) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains reports whether other lies completely within r.
func (r Rectangle2[T]) Contains(other Rectangle2[T]) bool {
	return other.Min[0] >= r.Min[0] && other.Min[1] >= r.Min[1] &&
		other.Max[0] <= r.Max[0] && other.Max[1] <= r.Max[1]
}

// Intersect returns the area covered by both rectangles. The result is
// empty if they do not overlap.
func (r Rectangle2[T]) Intersect(other Rectangle2[T]) Rectangle2[T] {
	minX, minY := max(r.Min[0], other.Min[0]), max(r.Min[1], other.Min[1])
	maxX, maxY := min(r.Max[0], other.Max[0]), min(r.Max[1], other.Max[1])

	if maxX < minX || maxY < minY {
		return Rectangle2[T]{}
	}

	return Rectangle2[T]{
		Min: glm.Vec2[T]{minX, minY},
		Max: glm.Vec2[T]{maxX, maxY},
	}
}

func (r Rectangle2[T]) XYWH() (T, T, T, T) {
	x, y := r.Min.XY()
	w, h := r.Size().XY()
	return x, y, w, h
}

func (r Rectangle2[T]) String() string {
	x, y, w, h := r.XYWH()
	return fmt.Sprintf("(%v,%v %vx%v)", x, y, w, h)
}

// FitRect returns the largest rectangle with the aspect ratio of source
// that is centered within target. The remaining area is the letterbox.
func FitRect(source, target Extent) Rectangle2u {
	if source.IsZero() || target.IsZero() {
		return Rectangle2u{}
	}

	sw, sh := float64(source.Width), float64(source.Height)
	tw, th := float64(target.Width), float64(target.Height)

	var w, h uint32
	if sw/sh >= tw/th {
		// full width, bars at the top and bottom
		w = target.Width
		h = uint32(sh*tw/sw + 0.5)
	} else {
		// full height, bars at the left and right
		w = uint32(sw*th/sh + 0.5)
		h = target.Height
	}

	w = max(1, min(w, target.Width))
	h = max(1, min(h, target.Height))

	return RectangleFromXYWH(
		(target.Width-w)/2,
		(target.Height-h)/2,
		w, h,
	)
}
