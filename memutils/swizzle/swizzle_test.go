package swizzle

import (
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/mediamem/memutils"
)

func TestTiledOffset_TileY(t *testing.T) {
	layout := Layout{Mode: TileModeY, Pitch: 256, Height: 64}

	require.Equal(t, 0, layout.TiledOffset(0, 0))
	require.Equal(t, 15, layout.TiledOffset(15, 0))
	// The next 16-byte column starts after all 32 rows of the first
	require.Equal(t, 512, layout.TiledOffset(16, 0))
	require.Equal(t, 16, layout.TiledOffset(0, 1))
	require.Equal(t, 31*16+5, layout.TiledOffset(5, 31))
	// Second tile in the row of tiles
	require.Equal(t, 4096, layout.TiledOffset(128, 0))
	// First tile of the second row of tiles
	require.Equal(t, 8192, layout.TiledOffset(0, 32))
	require.Equal(t, 8192+4096+7*512+3*16+1, layout.TiledOffset(128+7*16+1, 35))
}

func TestTiledOffset_TileX(t *testing.T) {
	layout := Layout{Mode: TileModeX, Pitch: 1024, Height: 16}

	require.Equal(t, 0, layout.TiledOffset(0, 0))
	require.Equal(t, 511, layout.TiledOffset(511, 0))
	require.Equal(t, 512, layout.TiledOffset(0, 1))
	require.Equal(t, 4096, layout.TiledOffset(512, 0))
	require.Equal(t, 8192, layout.TiledOffset(0, 8))
	require.Equal(t, 8192+4096+3*512+10, layout.TiledOffset(522, 11))
}

func TestTiledOffset_IsABijection(t *testing.T) {
	for _, layout := range []Layout{
		{Mode: TileModeX, Pitch: 1536, Height: 24},
		{Mode: TileModeY, Pitch: 384, Height: 96},
		{Mode: TileModeLinear, Pitch: 100, Height: 7},
	} {
		seen := make([]bool, layout.Footprint())
		for y := 0; y < layout.Height; y++ {
			for x := 0; x < layout.Pitch; x++ {
				offset := layout.TiledOffset(x, y)
				require.False(t, seen[offset], "%s offset %d produced twice", layout.Mode, offset)
				seen[offset] = true
			}
		}
	}
}

func TestDeswizzle_MatchesAddressing(t *testing.T) {
	layout := Layout{Mode: TileModeY, Pitch: 256, Height: 64}

	tiled := make([]byte, layout.Footprint())
	rng := rand.New(rand.NewSource(11))
	rng.Read(tiled)

	linear := make([]byte, layout.Footprint())
	require.NoError(t, Deswizzle(linear, tiled, layout))

	for y := 0; y < layout.Height; y++ {
		for x := 0; x < layout.Pitch; x++ {
			require.Equal(t, tiled[layout.TiledOffset(x, y)], linear[y*layout.Pitch+x])
		}
	}
}

func TestSwizzle_RoundTrip(t *testing.T) {
	for _, layout := range []Layout{
		{Mode: TileModeX, Pitch: 2048, Height: 1088},
		{Mode: TileModeY, Pitch: 1920, Height: 1088},
		{Mode: TileModeY, Pitch: 128, Height: 32},
		{Mode: TileModeLinear, Pitch: 4096, Height: 3},
	} {
		t.Run(layout.Mode.String(), func(t *testing.T) {
			original := make([]byte, layout.Footprint())
			rng := rand.New(rand.NewSource(int64(layout.Pitch)))
			rng.Read(original)

			linear := make([]byte, layout.Footprint())
			require.NoError(t, Deswizzle(linear, original, layout))

			retiled := make([]byte, layout.Footprint())
			require.NoError(t, Swizzle(retiled, linear, layout))

			require.Equal(t, original, retiled)
		})
	}
}

func TestSwizzle_LinearEditLandsInTile(t *testing.T) {
	layout := Layout{Mode: TileModeY, Pitch: 256, Height: 32}

	tiled := make([]byte, layout.Footprint())
	linear := make([]byte, layout.Footprint())
	require.NoError(t, Deswizzle(linear, tiled, layout))

	linear[3*layout.Pitch+200] = 0xAB
	require.NoError(t, Swizzle(tiled, linear, layout))

	require.Equal(t, byte(0xAB), tiled[layout.TiledOffset(200, 3)])
}

func TestCopy_Errors(t *testing.T) {
	buf := make([]byte, 8192)

	err := Deswizzle(buf, buf, Layout{Mode: TileModeY, Pitch: 100, Height: 32})
	require.True(t, errors.Is(err, memutils.ErrSwizzleFailed))
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	err = Deswizzle(buf, buf, Layout{Mode: TileModeY, Pitch: 128, Height: 40})
	require.True(t, errors.Is(err, memutils.ErrSwizzleFailed))

	err = Swizzle(buf[:4096], buf, Layout{Mode: TileModeY, Pitch: 256, Height: 32})
	require.True(t, errors.Is(err, memutils.ErrSwizzleFailed))

	err = Swizzle(buf, buf, Layout{Mode: TileMode(9), Pitch: 256, Height: 32})
	require.True(t, errors.Is(err, memutils.ErrSwizzleFailed))

	// Footprints beyond the object size limit are rejected before the length check
	err = Deswizzle(buf, buf, Layout{Mode: TileModeY, Pitch: 1 << 20, Height: 1 << 12})
	require.True(t, errors.Is(err, memutils.ErrSwizzleFailed))
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
}
