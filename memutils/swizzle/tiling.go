package swizzle

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/memutils"
)

// TileMode is the addressing scheme of a tiled surface
type TileMode uint8

const (
	// TileModeLinear is plain row-major addressing
	TileModeLinear TileMode = iota
	// TileModeX tiles are 512 bytes wide and 8 rows tall, stored row-major inside the tile
	TileModeX
	// TileModeY tiles are 128 bytes wide and 32 rows tall. Inside the tile, data is stored as
	// 16-byte wide columns, each column holding all 32 rows before the next column starts.
	TileModeY
)

var tileModeMapping = map[TileMode]string{
	TileModeLinear: "TileModeLinear",
	TileModeX:      "TileModeX",
	TileModeY:      "TileModeY",
}

func (m TileMode) String() string {
	str, ok := tileModeMapping[m]
	if !ok {
		return "unknown"
	}
	return str
}

// TileGeometry describes the size of a single tile and the length of the longest run of bytes that
// is contiguous in both the tiled and the linear addressing
type TileGeometry struct {
	WidthBytes int
	Rows       int
	SpanBytes  int
}

// Size returns the number of bytes in one tile
func (g TileGeometry) Size() int {
	return g.WidthBytes * g.Rows
}

var tileGeometries = map[TileMode]TileGeometry{
	TileModeLinear: {WidthBytes: 1, Rows: 1, SpanBytes: 1},
	TileModeX:      {WidthBytes: 512, Rows: 8, SpanBytes: 512},
	TileModeY:      {WidthBytes: 128, Rows: 32, SpanBytes: 16},
}

// Geometry returns the tile dimensions of the mode
func (m TileMode) Geometry() TileGeometry {
	return tileGeometries[m]
}

// Layout is the full memory footprint of a surface: the allocated pitch and the allocated height,
// not the logical width and height of the picture it holds
type Layout struct {
	Mode   TileMode
	Pitch  int
	Height int
}

// Validate checks that the footprint is made up of whole tiles
func (l Layout) Validate() error {
	geometry, ok := tileGeometries[l.Mode]
	if !ok {
		return errors.Mark(errors.Newf("unknown tile mode %d", l.Mode), memutils.ErrInvalidArgument)
	}

	if l.Pitch <= 0 || l.Height <= 0 {
		return errors.Mark(errors.Newf("layout has non-positive pitch %d or height %d", l.Pitch, l.Height), memutils.ErrInvalidArgument)
	}

	if _, ok := memutils.CheckedMul(l.Pitch, l.Height); !ok {
		return errors.Mark(errors.Newf("layout of %d rows with a pitch of %d is larger than %d bytes", l.Height, l.Pitch, memutils.MaxObjectBytes), memutils.ErrInvalidArgument)
	}

	if l.Pitch%geometry.WidthBytes != 0 {
		return errors.Mark(errors.Newf("pitch %d is not a multiple of the %s tile width %d", l.Pitch, l.Mode, geometry.WidthBytes), memutils.ErrInvalidArgument)
	}

	if l.Height%geometry.Rows != 0 {
		return errors.Mark(errors.Newf("height %d is not a multiple of the %s tile height %d", l.Height, l.Mode, geometry.Rows), memutils.ErrInvalidArgument)
	}

	return nil
}

// Footprint returns the number of bytes covered by the layout
func (l Layout) Footprint() int {
	return l.Pitch * l.Height
}

// TiledOffset returns the offset in the tiled footprint of the byte at column x (in bytes) and row y
func (l Layout) TiledOffset(x, y int) int {
	geometry := tileGeometries[l.Mode]

	switch l.Mode {
	case TileModeX:
		tile := (y/geometry.Rows)*(l.Pitch/geometry.WidthBytes) + x/geometry.WidthBytes
		return tile*geometry.Size() + (y%geometry.Rows)*geometry.WidthBytes + x%geometry.WidthBytes
	case TileModeY:
		tile := (y/geometry.Rows)*(l.Pitch/geometry.WidthBytes) + x/geometry.WidthBytes
		column := (x % geometry.WidthBytes) / geometry.SpanBytes
		return tile*geometry.Size() +
			column*geometry.SpanBytes*geometry.Rows +
			(y%geometry.Rows)*geometry.SpanBytes +
			x%geometry.SpanBytes
	}

	return y*l.Pitch + x
}
