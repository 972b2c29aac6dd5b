package policy

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
	"golang.org/x/exp/slog"
)

func newTestEngine() (*Engine, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewEngine(slog.New(slog.NewTextHandler(&buf))), &buf
}

func localPlatform(workarounds hw.WorkaroundFlags) *hw.Platform {
	return &hw.Platform{Features: hw.FeatureLocalMemory, Workarounds: workarounds}
}

func surface2D() *ResourceDescriptor {
	return &ResourceDescriptor{
		Type:     ResourceSurface2D,
		Category: hw.CategoryVideoSurface,
		Format:   hw.FormatNV12,
		Tiling:   hw.TilingY,
		Width:    1920,
		Height:   1080,
	}
}

func linearBuffer(category hw.ResourceCategory) *ResourceDescriptor {
	return &ResourceDescriptor{
		Type:     ResourceBuffer1D,
		Category: category,
		Format:   hw.FormatBuffer,
		Tiling:   hw.TilingNone,
		Width:    4096,
		Height:   1,
	}
}

func TestDecidePool_NilArguments(t *testing.T) {
	engine, logs := newTestEngine()

	pool, err := engine.DecidePool(nil, surface2D(), hw.PoolGeneric, false)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
	require.Equal(t, hw.PoolGeneric, pool)

	pool, err = engine.DecidePool(localPlatform(0), nil, hw.PoolGeneric, false)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
	require.Equal(t, hw.PoolGeneric, pool)

	require.Contains(t, logs.String(), "Engine::DecidePool rejected arguments")
}

func TestDecidePool_NoLocalMemory(t *testing.T) {
	engine, _ := newTestEngine()

	desc := surface2D()
	pool, err := engine.DecidePool(&hw.Platform{Workarounds: hw.WaForceLocalMemory}, desc, hw.PoolDevice, true)
	require.NoError(t, err)
	require.Equal(t, hw.PoolGeneric, pool)
	require.False(t, desc.LocalOnly)
	require.False(t, desc.NonLocalOnly)
}

func TestDecidePool_Defaults(t *testing.T) {
	engine, _ := newTestEngine()

	desc := surface2D()
	pool, err := engine.DecidePool(localPlatform(0), desc, hw.PoolGeneric, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolDevice, pool)
	require.True(t, desc.LocalOnly)
	require.False(t, desc.NonLocalOnly)

	desc = linearBuffer(hw.CategoryGeneric)
	pool, err = engine.DecidePool(localPlatform(0), desc, hw.PoolGeneric, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolSystem, pool)
	require.False(t, desc.LocalOnly)
	require.True(t, desc.NonLocalOnly)

	// A tiled one dimensional resource is not eligible for the system memory default
	desc = linearBuffer(hw.CategoryGeneric)
	desc.Tiling = hw.TilingX
	pool, err = engine.DecidePool(localPlatform(0), desc, hw.PoolGeneric, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolDevice, pool)
}

func TestDecidePool_PreferredOverride(t *testing.T) {
	engine, _ := newTestEngine()

	desc := linearBuffer(hw.CategoryGeneric)
	pool, err := engine.DecidePool(localPlatform(0), desc, hw.PoolDevice, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolDevice, pool)
	require.True(t, desc.LocalOnly)
	require.False(t, desc.NonLocalOnly)

	desc = surface2D()
	pool, err = engine.DecidePool(localPlatform(0), desc, hw.PoolSystem, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolSystem, pool)
	require.False(t, desc.LocalOnly)
	require.True(t, desc.NonLocalOnly)
}

func TestDecidePool_Idempotent(t *testing.T) {
	engine, _ := newTestEngine()
	platform := localPlatform(0)

	desc := surface2D()
	first, err := engine.Decide(platform, desc, hw.PoolDevice, false)
	require.NoError(t, err)

	snapshot := *desc
	second, err := engine.Decide(platform, desc, hw.PoolDevice, false)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, snapshot, *desc)
}

func TestDecidePool_Deterministic(t *testing.T) {
	engine, _ := newTestEngine()

	platforms := []*hw.Platform{
		localPlatform(0),
		localPlatform(hw.WaForceLocalMemory),
		localPlatform(hw.WaForceLocalMemory | hw.WaStagingInSystemMemory),
		localPlatform(hw.WaServerCommandBufferInSystemMemory),
		{},
	}
	categories := []hw.ResourceCategory{hw.CategoryGeneric, hw.CategoryStaging, hw.CategoryCommandBuffer, hw.CategoryVideoSurface}
	pools := []hw.Pool{hw.PoolGeneric, hw.PoolDevice, hw.PoolSystem}

	for _, platform := range platforms {
		for _, category := range categories {
			for _, preferred := range pools {
				for _, isServer := range []bool{false, true} {
					descA := linearBuffer(category)
					descB := linearBuffer(category)

					a, err := engine.Decide(platform, descA, preferred, isServer)
					require.NoError(t, err)
					b, err := engine.Decide(platform, descB, preferred, isServer)
					require.NoError(t, err)

					require.Equal(t, a, b)
					require.Equal(t, *descA, *descB)
					require.False(t, descA.LocalOnly && descA.NonLocalOnly)
				}
			}
		}
	}
}

func TestDecidePool_ForceLocalMemory(t *testing.T) {
	engine, _ := newTestEngine()

	desc := linearBuffer(hw.CategoryGeneric)
	pool, err := engine.DecidePool(localPlatform(hw.WaForceLocalMemory), desc, hw.PoolSystem, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolDevice, pool)
	require.True(t, desc.LocalOnly)

	// Staging buffers are only exempt when the more specific erratum is also present
	desc = linearBuffer(hw.CategoryStaging)
	pool, err = engine.DecidePool(localPlatform(hw.WaForceLocalMemory), desc, hw.PoolGeneric, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolDevice, pool)

	desc = linearBuffer(hw.CategoryStaging)
	pool, err = engine.DecidePool(localPlatform(hw.WaForceLocalMemory|hw.WaStagingInSystemMemory), desc, hw.PoolGeneric, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolSystem, pool)
	require.True(t, desc.NonLocalOnly)
}

func TestDecidePool_ServerCommandBuffer(t *testing.T) {
	engine, _ := newTestEngine()
	platform := localPlatform(hw.WaServerCommandBufferInSystemMemory)

	desc := linearBuffer(hw.CategoryCommandBuffer)
	pool, err := engine.DecidePool(platform, desc, hw.PoolDevice, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolDevice, pool)

	desc = linearBuffer(hw.CategoryCommandBuffer)
	pool, err = engine.DecidePool(platform, desc, hw.PoolDevice, true)
	require.NoError(t, err)
	require.Equal(t, hw.PoolSystem, pool)
	require.True(t, desc.NonLocalOnly)
	require.False(t, desc.LocalOnly)

	// Only command buffers are affected
	desc = surface2D()
	pool, err = engine.DecidePool(platform, desc, hw.PoolGeneric, true)
	require.NoError(t, err)
	require.Equal(t, hw.PoolDevice, pool)
}

// A local-only resource that is both CPU accessed and marked not lockable is allowed through with
// only a warning. Placement does not reject it and does not move it to system memory.
func TestDecidePool_LocalOnlyNotLockableIsOnlyDiagnosed(t *testing.T) {
	engine, logs := newTestEngine()

	desc := surface2D()
	desc.Usage = hw.UsageCPUAccess | hw.UsageNotLockable

	pool, err := engine.DecidePool(localPlatform(0), desc, hw.PoolDevice, false)
	require.NoError(t, err)
	require.Equal(t, hw.PoolDevice, pool)
	require.True(t, desc.LocalOnly)
	require.Contains(t, logs.String(), "level=WARN")
	require.Contains(t, logs.String(), "not lockable")

	logs.Reset()
	desc = surface2D()
	desc.Usage = hw.UsageCPUAccess
	_, err = engine.DecidePool(localPlatform(0), desc, hw.PoolDevice, false)
	require.NoError(t, err)
	require.Empty(t, logs.String())
}
