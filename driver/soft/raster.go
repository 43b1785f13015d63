package soft

import (
	"fmt"
	"image"
	"image/color"

	"github.com/oliverbestmann/onscreen/pulse"
	"golang.org/x/image/draw"
)

// op is a command with all resources resolved to soft driver types.
type op struct {
	clear *color.NRGBA

	source *texture
	dest   image.Rectangle
	filter pulse.FilterMode
}

func resolveCommand(cmd pulse.Command) (op, error) {
	switch cmd := cmd.(type) {
	case pulse.ClearCommand:
		rgba := cmd.Color.ToSRGBA8()
		return op{clear: &color.NRGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}}, nil

	case pulse.BlitCommand:
		source, err := asTexture(cmd.Source)
		if err != nil {
			return op{}, fmt.Errorf("blit: %w", err)
		}

		x, y, w, h := cmd.Dest.XYWH()

		return op{
			source: source,
			dest:   image.Rect(int(x), int(y), int(x+w), int(y+h)),
			filter: cmd.Filter,
		}, nil

	default:
		return op{}, fmt.Errorf("unsupported command %T", cmd)
	}
}

type scalerKey struct {
	filter pulse.FilterMode
	dw, dh int
	sw, sh int
}

// rasterizer executes ops on the queue worker.
type rasterizer struct {
	scalers *pulse.Cache[scalerKey, draw.Scaler]
}

func newRasterizer() *rasterizer {
	return &rasterizer{
		scalers: pulse.NewCache[scalerKey, draw.Scaler]("scaler", 16, nil),
	}
}

func (r *rasterizer) execute(target *image.NRGBA, op op) {
	switch {
	case op.clear != nil:
		draw.Draw(target, target.Bounds(), image.NewUniform(*op.clear), image.Point{}, draw.Src)

	case op.source != nil:
		dest := op.dest.Intersect(target.Bounds())
		if dest.Empty() {
			return
		}

		src := op.source.img

		scaler := r.scaler(op.filter, op.dest.Size(), src.Bounds().Size())

		// scale to the full destination, clipped to the target
		scaler.Scale(target, op.dest, src, src.Bounds(), draw.Src, nil)
	}
}

func (r *rasterizer) scaler(filter pulse.FilterMode, dest, source image.Point) draw.Scaler {
	if filter == pulse.FilterNearest {
		return draw.NearestNeighbor
	}

	key := scalerKey{filter: filter, dw: dest.X, dh: dest.Y, sw: source.X, sh: source.Y}

	scaler, _ := r.scalers.Get(key, func(key scalerKey) (draw.Scaler, error) {
		return draw.BiLinear.NewScaler(key.dw, key.dh, key.sw, key.sh), nil
	})

	return scaler
}
