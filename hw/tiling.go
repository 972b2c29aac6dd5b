package hw

import "github.com/vkngwrapper/mediamem/memutils/swizzle"

// Tiling is the memory layout the hardware uses for a resource
type Tiling uint32

const (
	// TilingNone is linear, row-major memory
	TilingNone Tiling = iota
	// TilingX is the X-major tiled layout
	TilingX
	// TilingY is the Y-major tiled layout, the layout 2D media surfaces use by default and the
	// only one eligible for compression
	TilingY
)

var tilingMapping = map[Tiling]string{
	TilingNone: "TilingNone",
	TilingX:    "TilingX",
	TilingY:    "TilingY",
}

func (t Tiling) String() string {
	str, ok := tilingMapping[t]
	if !ok {
		return "unknown"
	}
	return str
}

// TilingByName looks up a tiling by its String() value
func TilingByName(name string) (Tiling, bool) {
	for tiling, tilingName := range tilingMapping {
		if tilingName == name {
			return tiling, true
		}
	}
	return TilingNone, false
}

// TileMode returns the swizzle addressing mode for the tiling
func (t Tiling) TileMode() swizzle.TileMode {
	switch t {
	case TilingX:
		return swizzle.TileModeX
	case TilingY:
		return swizzle.TileModeY
	}
	return swizzle.TileModeLinear
}

// Format modifiers declared by externally supplied memory. They follow the DRM format modifier
// encoding for Intel tiling.
const (
	ModifierLinear          uint64 = 0
	ModifierXTiled          uint64 = 0x0100000000000001
	ModifierYTiled          uint64 = 0x0100000000000002
	ModifierYTiledRenderCCS uint64 = 0x0100000000000006
	ModifierYTiledMediaCCS  uint64 = 0x0100000000000007
)

// TilingFromModifier infers the tiling of external memory from its declared modifier. Unknown
// modifiers are reported with ok == false.
func TilingFromModifier(modifier uint64) (tiling Tiling, ok bool) {
	switch modifier {
	case ModifierLinear:
		return TilingNone, true
	case ModifierXTiled:
		return TilingX, true
	case ModifierYTiled, ModifierYTiledRenderCCS, ModifierYTiledMediaCCS:
		return TilingY, true
	}

	return TilingNone, false
}
