package simulated

import (
	"fmt"
	"sync/atomic"

	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/mediamem/hw"
)

// poolBudget tracks the live bytes and objects of each pool and enforces an optional byte limit
type poolBudget struct {
	limits      [hw.PoolCount]int64
	bytes       [hw.PoolCount]int64
	objectCount [hw.PoolCount]int32
}

func (b *poolBudget) add(pool hw.Pool, size int) error {
	limit := b.limits[pool]
	if limit == 0 {
		atomic.AddInt64(&b.bytes[pool], int64(size))
		atomic.AddInt32(&b.objectCount[pool], 1)
		return nil
	}

	for {
		currentVal := atomic.LoadInt64(&b.bytes[pool])
		targetVal := currentVal + int64(size)

		if targetVal > limit {
			if pool == hw.PoolSystem {
				return core1_0.VKErrorOutOfHostMemory.ToError()
			}
			return core1_0.VKErrorOutOfDeviceMemory.ToError()
		}

		if atomic.CompareAndSwapInt64(&b.bytes[pool], currentVal, targetVal) {
			break
		}
	}

	atomic.AddInt32(&b.objectCount[pool], 1)
	return nil
}

func (b *poolBudget) remove(pool hw.Pool, size int) {
	newVal := atomic.AddInt64(&b.bytes[pool], int64(-size))
	if newVal < 0 {
		panic(fmt.Sprintf("byte budget for %s went negative", pool))
	}

	newCountVal := atomic.AddInt32(&b.objectCount[pool], -1)
	if newCountVal < 0 {
		panic(fmt.Sprintf("object count for %s went negative", pool))
	}
}

func (b *poolBudget) usage(pool hw.Pool) (bytes int, objects int) {
	return int(atomic.LoadInt64(&b.bytes[pool])), int(atomic.LoadInt32(&b.objectCount[pool]))
}
