package vsm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/mediamem/backend/simulated"
	"github.com/vkngwrapper/mediamem/hw"
	"golang.org/x/exp/slog"
)

var (
	integratedPlatform = hw.Platform{}
	softwarePlatform   = hw.Platform{Features: hw.FeatureLocalMemory | hw.FeatureLosslessCompression}
	discretePlatform   = hw.Platform{Features: hw.FeatureLocalMemory | hw.FeatureLosslessCompression | hw.FeatureCopyEngineSwizzle}
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var logs bytes.Buffer
	return slog.New(slog.NewTextHandler(&logs)), &logs
}

func readyAllocator(t *testing.T, platform hw.Platform, options CreateOptions) (*Allocator, *simulated.Backend, *bytes.Buffer) {
	logger, logs := newTestLogger()
	memoryBackend := simulated.New(logger, simulated.Options{})

	allocator, err := New(logger, memoryBackend, platform, options)
	require.NoError(t, err)

	return allocator, memoryBackend, logs
}

func createNV12(t *testing.T, allocator *Allocator, width, height int, usage hw.UsageFlags) (Handle, *Surface) {
	handle, err := allocator.CreateSurface(SurfaceCreateInfo{
		Format: hw.FormatNV12,
		Width:  width,
		Height: height,
		Usage:  usage,
	})
	require.NoError(t, err)

	surface, ok := allocator.Surface(handle)
	require.True(t, ok)
	return handle, surface
}
