package swizzle

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/memutils"
)

// Direction selects which side of a copy holds the tiled data
type Direction uint8

const (
	// DirectionDeswizzle copies tiled data into linear, row-major memory
	DirectionDeswizzle Direction = iota
	// DirectionSwizzle copies linear, row-major data into tiled memory
	DirectionSwizzle
)

var directionMapping = map[Direction]string{
	DirectionDeswizzle: "DirectionDeswizzle",
	DirectionSwizzle:   "DirectionSwizzle",
}

func (d Direction) String() string {
	str, ok := directionMapping[d]
	if !ok {
		return "unknown"
	}
	return str
}

// Deswizzle converts the tiled footprint in src into row-major data in dst. Both slices must hold
// at least layout.Footprint() bytes.
func Deswizzle(dst, src []byte, layout Layout) error {
	return Copy(src, dst, layout, DirectionDeswizzle)
}

// Swizzle converts the row-major data in src into the tiled footprint in dst. Both slices must hold
// at least layout.Footprint() bytes.
func Swizzle(dst, src []byte, layout Layout) error {
	return Copy(dst, src, layout, DirectionSwizzle)
}

// Copy moves the whole footprint between tiled and linear memory. The same addressing routine
// serves both directions, so a deswizzle followed by a swizzle of unmodified data reproduces the
// original tiled bytes exactly.
func Copy(tiled, linear []byte, layout Layout, direction Direction) error {
	err := layout.Validate()
	if err != nil {
		return errors.Mark(err, memutils.ErrSwizzleFailed)
	}

	footprint := layout.Footprint()
	if len(tiled) < footprint || len(linear) < footprint {
		return errors.Mark(
			errors.Newf("%s needs %d bytes but tiled memory holds %d and linear memory holds %d", direction, footprint, len(tiled), len(linear)),
			memutils.ErrSwizzleFailed,
		)
	}

	span := layout.Mode.Geometry().SpanBytes
	if layout.Mode == TileModeLinear {
		span = layout.Pitch
	}

	for y := 0; y < layout.Height; y++ {
		rowOffset := y * layout.Pitch
		for x := 0; x < layout.Pitch; x += span {
			tiledOffset := layout.TiledOffset(x, y)
			linearOffset := rowOffset + x

			if direction == DirectionDeswizzle {
				copy(linear[linearOffset:linearOffset+span], tiled[tiledOffset:tiledOffset+span])
			} else {
				copy(tiled[tiledOffset:tiledOffset+span], linear[linearOffset:linearOffset+span])
			}
		}
	}

	return nil
}
