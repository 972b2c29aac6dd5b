package vsm

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/mediamem/backend"
	"github.com/vkngwrapper/mediamem/backend/mocks"
	"github.com/vkngwrapper/mediamem/backend/simulated"
	"github.com/vkngwrapper/mediamem/compression"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
	"github.com/vkngwrapper/mediamem/memutils/swizzle"
	"go.uber.org/mock/gomock"
)

// lockRoundTrip fills the surface memory, locks it, checks that the CPU view is the linear form of
// the surface, writes through the view and checks the write lands in the surface after unlock
func lockRoundTrip(t *testing.T, allocator *Allocator, memoryBackend *simulated.Backend, surface *Surface) {
	contents, ok := memoryBackend.Contents(surface.Object())
	require.True(t, ok)
	rng := rand.New(rand.NewSource(int64(surface.Size())))
	rng.Read(contents)

	layout := swizzle.Layout{Mode: surface.Tiling().TileMode(), Pitch: surface.Pitch(), Height: surface.Rows()}

	view, err := allocator.Lock(surface.Handle(), AccessRead|AccessWrite)
	require.NoError(t, err)
	require.Len(t, view, surface.Size())
	require.True(t, surface.Mapped())
	require.Equal(t, 1, surface.RefCount())

	pitch, rows := surface.Pitch(), surface.Rows()
	for _, point := range [][2]int{{0, 0}, {17, 3}, {pitch/2 + 5, rows / 2}, {pitch - 1, rows - 1}} {
		x, y := point[0], point[1]
		require.Equal(t, contents[layout.TiledOffset(x, y)], view[y*pitch+x], "byte (%d, %d)", x, y)
	}

	view[3*pitch+pitch-3] = 0xAB
	view[(rows-1)*pitch] = 0xCD

	require.NoError(t, allocator.Unlock(surface.Handle()))
	require.False(t, surface.Mapped())
	require.Equal(t, 0, surface.RefCount())
	require.Equal(t, 0, memoryBackend.MapCount(surface.Object()))

	require.Equal(t, byte(0xAB), contents[layout.TiledOffset(pitch-3, 3)])
	require.Equal(t, byte(0xCD), contents[layout.TiledOffset(0, rows-1)])
}

func TestLock_Direct(t *testing.T) {
	allocator, memoryBackend, _ := readyAllocator(t, discretePlatform, CreateOptions{})

	_, surface := createNV12(t, allocator, 256, 64, hw.UsageLinear)
	require.Equal(t, hw.TilingNone, surface.Tiling())

	lockRoundTrip(t, allocator, memoryBackend, surface)

	counters := memoryBackend.Counters()
	require.Equal(t, 1, counters.Maps)
	require.Equal(t, 1, counters.Unmaps)
	require.Equal(t, 0, counters.ForwardBlits)
	require.Equal(t, 1, counters.Allocations)
}

func TestLock_SoftwareSwizzle(t *testing.T) {
	allocator, memoryBackend, _ := readyAllocator(t, softwarePlatform, CreateOptions{})

	_, surface := createNV12(t, allocator, 256, 64, 0)
	require.Equal(t, hw.TilingY, surface.Tiling())

	lockRoundTrip(t, allocator, memoryBackend, surface)

	counters := memoryBackend.Counters()
	require.Equal(t, 1, counters.Maps)
	require.Equal(t, 1, counters.Unmaps)
	require.Equal(t, 0, counters.ForwardBlits)
	require.Equal(t, 0, counters.ReverseBlits)
}

func TestLock_HardwareSwizzle(t *testing.T) {
	allocator, memoryBackend, _ := readyAllocator(t, discretePlatform, CreateOptions{})

	handle, surface := createNV12(t, allocator, 256, 64, 0)

	_, err := allocator.Lock(handle, AccessRead)
	require.NoError(t, err)
	require.Equal(t, 2, memoryBackend.LiveObjects())

	stats := allocator.Statistics()
	require.Equal(t, 1, stats.Pools[hw.PoolSystem].ObjectCount)
	require.Equal(t, surface.Size(), stats.Pools[hw.PoolDevice].ShadowBytes)
	require.Equal(t, 1, stats.Pools[hw.PoolDevice].MappedCount)

	require.NoError(t, allocator.Unlock(handle))
	require.Equal(t, 1, memoryBackend.LiveObjects())

	lockRoundTrip(t, allocator, memoryBackend, surface)

	counters := memoryBackend.Counters()
	require.Equal(t, 2, counters.ForwardBlits)
	require.Equal(t, 2, counters.ReverseBlits)
	require.Equal(t, counters.Maps, counters.Unmaps)
	require.Equal(t, 1, memoryBackend.LiveObjects())
	require.Equal(t, 0, allocator.Statistics().Pools[hw.PoolSystem].ObjectCount)
}

func TestLock_HardwareSwizzleDisqualified(t *testing.T) {
	allocator, memoryBackend, _ := readyAllocator(t, discretePlatform, CreateOptions{})

	_, small := createNV12(t, allocator, 16, 64, 0)
	lockRoundTrip(t, allocator, memoryBackend, small)

	handle, err := allocator.CreateSurface(SurfaceCreateInfo{Format: hw.FormatR8G8B8, Width: 64, Height: 64})
	require.NoError(t, err)
	packed, ok := allocator.Surface(handle)
	require.True(t, ok)
	require.Equal(t, hw.TilingY, packed.Tiling())
	lockRoundTrip(t, allocator, memoryBackend, packed)

	require.Equal(t, 0, memoryBackend.Counters().ForwardBlits)
}

func TestLock_HardwareFallsBackToSoftware(t *testing.T) {
	for _, fault := range []simulated.FaultFlags{simulated.FaultLinearAllocate, simulated.FaultBlit} {
		t.Run(fault.String(), func(t *testing.T) {
			allocator, memoryBackend, logs := readyAllocator(t, discretePlatform, CreateOptions{})
			_, surface := createNV12(t, allocator, 256, 64, 0)

			memoryBackend.SetFaults(fault)
			lockRoundTrip(t, allocator, memoryBackend, surface)

			require.Contains(t, logs.String(), "falling back to software swizzle")
			require.Equal(t, 0, memoryBackend.Counters().ForwardBlits)
			require.Equal(t, 1, memoryBackend.LiveObjects())
			require.Equal(t, 0, allocator.Statistics().Pools[hw.PoolSystem].ObjectCount)
		})
	}
}

func TestUnlock_ReverseBlitFallsBackToSoftware(t *testing.T) {
	allocator, memoryBackend, logs := readyAllocator(t, discretePlatform, CreateOptions{})
	handle, surface := createNV12(t, allocator, 256, 64, 0)

	view, err := allocator.Lock(handle, AccessWrite)
	require.NoError(t, err)
	view[5*surface.Pitch()+130] = 0x5A

	memoryBackend.SetFaults(simulated.FaultReverseBlit)
	require.NoError(t, allocator.Unlock(handle))
	require.Contains(t, logs.String(), "re-tile failed")

	contents, ok := memoryBackend.Contents(surface.Object())
	require.True(t, ok)
	layout := swizzle.Layout{Mode: swizzle.TileModeY, Pitch: surface.Pitch(), Height: surface.Rows()}
	require.Equal(t, byte(0x5A), contents[layout.TiledOffset(130, 5)])

	require.Equal(t, 1, memoryBackend.LiveObjects())
	require.False(t, surface.Mapped())
	require.Equal(t, 0, memoryBackend.Counters().ReverseBlits)
}

func TestLock_FailureLeavesResourceUnlocked(t *testing.T) {
	for name, platform := range map[string]hw.Platform{"software": softwarePlatform, "hardware": discretePlatform} {
		t.Run(name, func(t *testing.T) {
			allocator, memoryBackend, _ := readyAllocator(t, platform, CreateOptions{})
			handle, surface := createNV12(t, allocator, 256, 64, 0)

			memoryBackend.SetFaults(simulated.FaultMap)
			view, err := allocator.Lock(handle, AccessRead)
			require.Nil(t, view)
			require.True(t, errors.Is(err, memutils.ErrSwizzleFailed))

			require.Equal(t, 0, surface.RefCount())
			require.False(t, surface.Mapped())
			require.Equal(t, 1, memoryBackend.LiveObjects())
			require.Equal(t, 0, allocator.Statistics().Total.MappedCount)

			// Unlocking after a failed lock does nothing
			require.NoError(t, allocator.Unlock(handle))

			memoryBackend.SetFaults(0)
			lockRoundTrip(t, allocator, memoryBackend, surface)
		})
	}
}

func TestLock_Nested(t *testing.T) {
	allocator, memoryBackend, _ := readyAllocator(t, discretePlatform, CreateOptions{})
	handle, surface := createNV12(t, allocator, 256, 64, 0)

	first, err := allocator.Lock(handle, AccessRead)
	require.NoError(t, err)
	second, err := allocator.Lock(handle, AccessWrite)
	require.NoError(t, err)
	require.Same(t, &first[0], &second[0])
	require.Equal(t, 2, surface.RefCount())
	require.Equal(t, 1, memoryBackend.Counters().ForwardBlits)

	require.NoError(t, allocator.Unlock(handle))
	require.True(t, surface.Mapped())
	require.Equal(t, 1, surface.RefCount())
	require.Equal(t, 0, memoryBackend.Counters().ReverseBlits)

	require.NoError(t, allocator.Unlock(handle))
	require.False(t, surface.Mapped())
	require.Equal(t, 1, memoryBackend.Counters().ReverseBlits)

	// Unlocking an unlocked surface is a no-op
	require.NoError(t, allocator.Unlock(handle))
	require.NoError(t, allocator.Unlock(handle))
	require.Equal(t, 0, surface.RefCount())
	require.Equal(t, 1, memoryBackend.Counters().ReverseBlits)

	counters := memoryBackend.Counters()
	require.Equal(t, counters.Maps, counters.Unmaps)
}

func TestLock_InvalidArguments(t *testing.T) {
	allocator, _, _ := readyAllocator(t, discretePlatform, CreateOptions{})
	handle, _ := createNV12(t, allocator, 64, 64, 0)
	context, err := allocator.CreateContext("ctx")
	require.NoError(t, err)

	_, err = allocator.Lock(handle, 0)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
	_, err = allocator.Lock(handle, AccessFlags(0x100))
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	_, err = allocator.Lock(NullHandle, AccessRead)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
	_, err = allocator.Lock(context, AccessRead)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
	_, err = allocator.Lock(makeHandle(KindSurface, 40), AccessRead)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
	_, err = allocator.Lock(Handle(0xF0000000), AccessRead)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	require.True(t, errors.Is(allocator.Unlock(NullHandle), memutils.ErrInvalidArgument))
	require.True(t, errors.Is(allocator.Unlock(context), memutils.ErrInvalidArgument))
	require.True(t, errors.Is(allocator.Unlock(makeHandle(KindBuffer, 3)), memutils.ErrInvalidArgument))
}

func TestLock_NotLockableWarning(t *testing.T) {
	allocator, _, logs := readyAllocator(t, discretePlatform, CreateOptions{})

	handle, surface := createNV12(t, allocator, 64, 64, hw.UsageNotLockable)
	require.True(t, surface.LocalOnly())

	_, err := allocator.Lock(handle, AccessRead)
	require.NoError(t, err)
	require.Contains(t, logs.String(), "marked not lockable")
	require.NoError(t, allocator.Unlock(handle))
}

func TestLock_Buffer(t *testing.T) {
	allocator, memoryBackend, _ := readyAllocator(t, discretePlatform, CreateOptions{})

	handle, err := allocator.CreateBuffer(BufferCreateInfo{Size: 4000, Kind: BufferBitstream})
	require.NoError(t, err)
	buffer, ok := allocator.Buffer(handle)
	require.True(t, ok)

	data, err := allocator.Lock(handle, AccessWrite)
	require.NoError(t, err)
	require.Len(t, data, 4000)
	require.True(t, buffer.Mapped())
	copy(data, []byte("bitstream"))

	require.NoError(t, allocator.Unlock(handle))
	require.False(t, buffer.Mapped())
	require.NoError(t, allocator.Unlock(handle))

	contents, ok := memoryBackend.Contents(buffer.Object())
	require.True(t, ok)
	require.Equal(t, []byte("bitstream"), contents[:9])
	require.Equal(t, 0, memoryBackend.MapCount(buffer.Object()))
}

func TestLock_Image(t *testing.T) {
	allocator, memoryBackend, _ := readyAllocator(t, discretePlatform, CreateOptions{})

	handle, err := allocator.CreateImage(ImageCreateInfo{Format: hw.FormatNV12, Width: 100, Height: 50})
	require.NoError(t, err)
	image, ok := allocator.Image(handle)
	require.True(t, ok)
	buffer, ok := allocator.Buffer(image.Buffer())
	require.True(t, ok)

	data, err := allocator.Lock(handle, AccessRead|AccessWrite)
	require.NoError(t, err)
	require.Len(t, data, image.Size())

	// The image and its backing buffer share one lock count
	_, err = allocator.Lock(image.Buffer(), AccessRead)
	require.NoError(t, err)
	require.Equal(t, 2, buffer.RefCount())
	require.Equal(t, 1, memoryBackend.Counters().Maps)

	require.NoError(t, allocator.Unlock(image.Buffer()))
	require.NoError(t, allocator.Unlock(handle))
	require.False(t, buffer.Mapped())
	require.Equal(t, 1, memoryBackend.Counters().Unmaps)
}

func TestLock_Concurrent(t *testing.T) {
	allocator, memoryBackend, _ := readyAllocator(t, discretePlatform, CreateOptions{})
	handle, surface := createNV12(t, allocator, 256, 64, 0)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			for i := 0; i < 50; i++ {
				view, err := allocator.Lock(handle, AccessWrite)
				require.NoError(t, err)
				require.Len(t, view, surface.Size())

				buffer, err := allocator.CreateBuffer(BufferCreateInfo{Size: 256 + worker})
				require.NoError(t, err)
				require.NoError(t, allocator.Destroy(buffer))

				require.NoError(t, allocator.Unlock(handle))
			}
		}(worker)
	}
	wg.Wait()

	require.Equal(t, 0, surface.RefCount())
	require.False(t, surface.Mapped())

	counters := memoryBackend.Counters()
	require.Equal(t, counters.Maps, counters.Unmaps)
	require.Equal(t, counters.ForwardBlits, counters.ReverseBlits)
	require.Equal(t, 1, memoryBackend.LiveObjects())

	stats := allocator.Statistics()
	require.Equal(t, 0, stats.Total.MappedCount)
	require.Equal(t, 0, stats.Total.ShadowBytes)
	require.Equal(t, 1, stats.Total.ObjectCount)
}

func TestLock_CompressedSurfaceHardwarePath(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockBackend := mocks.NewMockBackend(ctrl)
	logger, _ := newTestLogger()

	allocator, err := New(logger, mockBackend, discretePlatform, CreateOptions{})
	require.NoError(t, err)

	size := 1920 * 1632
	surfaceObject := backend.Object{
		Handle:              1,
		Pool:                hw.PoolDevice,
		Tiling:              hw.TilingY,
		Compression:         compression.ModeMedia,
		Pitch:               1920,
		Rows:                1632,
		Size:                size,
		HasCompressionTable: true,
	}
	shadowObject := backend.Object{
		Handle: 2,
		Pool:   hw.PoolSystem,
		Tiling: hw.TilingNone,
		Pitch:  size,
		Rows:   1,
		Size:   size,
	}

	mockBackend.EXPECT().Allocate(gomock.Any()).DoAndReturn(func(request backend.AllocateRequest) (backend.Object, error) {
		require.Equal(t, hw.PoolDevice, request.Pool)
		require.Equal(t, hw.TilingY, request.Tiling)
		require.Equal(t, compression.ModeMedia, request.Compression)
		return surfaceObject, nil
	})

	handle, err := allocator.CreateSurface(SurfaceCreateInfo{
		Format:        hw.FormatNV12,
		Width:         1920,
		Height:        1080,
		Usage:         hw.UsageDecode,
		PreferredPool: hw.PoolDevice,
	})
	require.NoError(t, err)
	surface, ok := allocator.Surface(handle)
	require.True(t, ok)
	require.True(t, surface.Compression().Enabled)

	shadowData := make([]byte, size)
	gomock.InOrder(
		mockBackend.EXPECT().Allocate(gomock.Any()).DoAndReturn(func(request backend.AllocateRequest) (backend.Object, error) {
			require.Equal(t, hw.PoolSystem, request.Pool)
			require.Equal(t, hw.TilingNone, request.Tiling)
			require.Equal(t, compression.ModeNone, request.Compression)
			require.Equal(t, size, request.Pitch*request.Rows)
			return shadowObject, nil
		}),
		mockBackend.EXPECT().Blit(backend.Handle(1), backend.Handle(2), true).Return(nil),
		mockBackend.EXPECT().Map(backend.Handle(2)).Return(shadowData, nil),
		mockBackend.EXPECT().Blit(backend.Handle(2), backend.Handle(1), false).Return(nil),
		mockBackend.EXPECT().Unmap(backend.Handle(2)).Return(nil),
		mockBackend.EXPECT().Free(backend.Handle(2)).Return(nil),
	)

	view, err := allocator.Lock(handle, AccessRead)
	require.NoError(t, err)
	require.Len(t, view, size)
	require.Same(t, &shadowData[0], &view[0])

	require.NoError(t, allocator.Unlock(handle))

	gomock.InOrder(
		mockBackend.EXPECT().ReleaseCompressionTable(backend.Handle(1)).Return(nil),
		mockBackend.EXPECT().Free(backend.Handle(1)).Return(nil),
	)
	require.NoError(t, allocator.Destroy(handle))
}

func TestLock_ShadowTeardownOnMapFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockBackend := mocks.NewMockBackend(ctrl)
	logger, logs := newTestLogger()

	allocator, err := New(logger, mockBackend, discretePlatform, CreateOptions{})
	require.NoError(t, err)

	mockBackend.EXPECT().Allocate(gomock.Any()).Return(backend.Object{
		Handle: 1, Pool: hw.PoolDevice, Tiling: hw.TilingY, Pitch: 256, Rows: 96, Size: 256 * 96,
	}, nil)
	handle, _ := createNV12(t, allocator, 256, 64, 0)

	surfaceData := make([]byte, 256*96)
	gomock.InOrder(
		mockBackend.EXPECT().Allocate(gomock.Any()).Return(backend.Object{
			Handle: 2, Pool: hw.PoolSystem, Tiling: hw.TilingNone, Pitch: 256 * 96, Rows: 1, Size: 256 * 96,
		}, nil),
		mockBackend.EXPECT().Blit(backend.Handle(1), backend.Handle(2), true).Return(nil),
		mockBackend.EXPECT().Map(backend.Handle(2)).Return(nil, errors.New("mapping failed")),
		mockBackend.EXPECT().Free(backend.Handle(2)).Return(nil),
		mockBackend.EXPECT().Map(backend.Handle(1)).Return(surfaceData, nil),
	)

	view, err := allocator.Lock(handle, AccessRead)
	require.NoError(t, err)
	require.Len(t, view, 256*96)
	require.Contains(t, logs.String(), "falling back to software swizzle")

	mockBackend.EXPECT().Unmap(backend.Handle(1)).Return(nil)
	require.NoError(t, allocator.Unlock(handle))
}
