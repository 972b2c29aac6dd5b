package vsm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/mediamem/memutils/heap"
)

func TestHandle_Encoding(t *testing.T) {
	handle := makeHandle(KindBuffer, 5)
	require.Equal(t, KindBuffer, handle.Kind())
	require.Equal(t, heap.SlotID(5), handle.slot())
	require.Equal(t, "KindBuffer(5)", handle.String())

	handle = makeHandle(KindContext, maxHeapSlots-1)
	require.Equal(t, KindContext, handle.Kind())
	require.Equal(t, heap.SlotID(maxHeapSlots-1), handle.slot())

	require.Equal(t, KindInvalid, NullHandle.Kind())
	require.Equal(t, "NullHandle", NullHandle.String())

	// Slot 0 of a real kind is never the null handle
	require.NotEqual(t, NullHandle, makeHandle(KindSurface, 0))
}

func TestHandle_AccessorsCheckKind(t *testing.T) {
	allocator, _, _ := readyAllocator(t, discretePlatform, CreateOptions{})

	buffer, err := allocator.CreateBuffer(BufferCreateInfo{Size: 128})
	require.NoError(t, err)

	_, ok := allocator.Buffer(buffer)
	require.True(t, ok)

	// Same slot, different heap
	_, ok = allocator.Surface(makeHandle(KindSurface, buffer.slot()))
	require.False(t, ok)
	_, ok = allocator.Image(buffer)
	require.False(t, ok)
	_, ok = allocator.Context(buffer)
	require.False(t, ok)
}

func TestLockCounter_Transitions(t *testing.T) {
	var counter lockCounter

	require.Equal(t, transitionIgnore, counter.onUnlock())
	counter.commitUnlock()
	require.Equal(t, 0, counter.references())

	require.Equal(t, transitionMap, counter.onLock())
	counter.commitLock()
	require.Equal(t, transitionNone, counter.onLock())
	counter.commitLock()
	require.Equal(t, 2, counter.references())

	require.Equal(t, transitionNone, counter.onUnlock())
	counter.commitUnlock()
	require.Equal(t, transitionUnmap, counter.onUnlock())
	counter.commitUnlock()
	require.Equal(t, 0, counter.references())
	require.Equal(t, transitionIgnore, counter.onUnlock())
}

func TestLockCounter_FailedMapLeavesCount(t *testing.T) {
	var counter lockCounter

	// A lock that fails to map never commits
	require.Equal(t, transitionMap, counter.onLock())
	require.Equal(t, 0, counter.references())
	require.Equal(t, transitionMap, counter.onLock())

	counter.commitLock()
	counter.commitLock()
	counter.commitLock()
	require.Equal(t, 3, counter.reset())
	require.Equal(t, 0, counter.references())
	require.Equal(t, transitionMap, counter.onLock())
}
