package vsm

import (
	"sync/atomic"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
)

// HeapUsage is the slot usage of one resource heap
type HeapUsage struct {
	InUse    int
	Capacity int
}

// AllocatorStatistics is a cheap snapshot of the allocator's counters. Objects and bytes are
// counted against the pool the backend object lives in. Mapped resources and lock shadow bytes
// are counted against the pool of the resource being locked.
type AllocatorStatistics struct {
	Pools [hw.PoolCount]memutils.Statistics
	Total memutils.Statistics

	Surfaces HeapUsage
	Buffers  HeapUsage
	Images   HeapUsage
	Contexts HeapUsage
}

// DetailedAllocatorStatistics adds object size extremes, computed by walking every tracked object
type DetailedAllocatorStatistics struct {
	Pools [hw.PoolCount]memutils.DetailedStatistics
	Total memutils.DetailedStatistics
}

type poolCounters struct {
	objectCount [hw.PoolCount]int64
	objectBytes [hw.PoolCount]int64
	mappedCount [hw.PoolCount]int64
	shadowBytes [hw.PoolCount]int64
}

func (c *poolCounters) addObject(pool hw.Pool, size int) {
	atomic.AddInt64(&c.objectCount[pool], 1)
	atomic.AddInt64(&c.objectBytes[pool], int64(size))
}

func (c *poolCounters) removeObject(pool hw.Pool, size int) {
	atomic.AddInt64(&c.objectCount[pool], -1)
	atomic.AddInt64(&c.objectBytes[pool], int64(-size))
}

func (c *poolCounters) addMapping(pool hw.Pool, shadowBytes int) {
	atomic.AddInt64(&c.mappedCount[pool], 1)
	atomic.AddInt64(&c.shadowBytes[pool], int64(shadowBytes))
}

func (c *poolCounters) removeMapping(pool hw.Pool, shadowBytes int) {
	atomic.AddInt64(&c.mappedCount[pool], -1)
	atomic.AddInt64(&c.shadowBytes[pool], int64(-shadowBytes))
}

func (c *poolCounters) populate(pool hw.Pool, stats *memutils.Statistics) {
	stats.ObjectCount = int(atomic.LoadInt64(&c.objectCount[pool]))
	stats.ObjectBytes = int(atomic.LoadInt64(&c.objectBytes[pool]))
	stats.MappedCount = int(atomic.LoadInt64(&c.mappedCount[pool]))
	stats.ShadowBytes = int(atomic.LoadInt64(&c.shadowBytes[pool]))
}

// Statistics returns the current counters of the allocator
func (a *Allocator) Statistics() AllocatorStatistics {
	var stats AllocatorStatistics

	for pool := 0; pool < hw.PoolCount; pool++ {
		a.counters.populate(hw.Pool(pool), &stats.Pools[pool])
		stats.Total.AddStatistics(&stats.Pools[pool])
	}

	stats.Surfaces = HeapUsage{InUse: a.surfaces.InUse(), Capacity: a.surfaces.Capacity()}
	stats.Buffers = HeapUsage{InUse: a.buffers.InUse(), Capacity: a.buffers.Capacity()}
	stats.Images = HeapUsage{InUse: a.images.InUse(), Capacity: a.images.Capacity()}
	stats.Contexts = HeapUsage{InUse: a.contexts.InUse(), Capacity: a.contexts.Capacity()}

	return stats
}

// CalculateStatistics walks every tracked backend object and returns per-pool statistics
// including object size extremes
func (a *Allocator) CalculateStatistics() DetailedAllocatorStatistics {
	var stats DetailedAllocatorStatistics
	stats.Total.Clear()

	for pool := 0; pool < hw.PoolCount; pool++ {
		stats.Pools[pool].Clear()
	}

	for _, record := range a.tracker.snapshot() {
		stats.Pools[record.pool].AddObject(record.size)
	}

	for pool := 0; pool < hw.PoolCount; pool++ {
		var counters memutils.Statistics
		a.counters.populate(hw.Pool(pool), &counters)
		stats.Pools[pool].MappedCount = counters.MappedCount
		stats.Pools[pool].ShadowBytes = counters.ShadowBytes

		stats.Total.AddDetailedStatistics(&stats.Pools[pool])
	}

	return stats
}

func printStatistics(json *jwriter.ObjectState, stats *memutils.Statistics) {
	json.Name("ObjectCount").Int(stats.ObjectCount)
	json.Name("ObjectBytes").Int(stats.ObjectBytes)
	json.Name("MappedCount").Int(stats.MappedCount)
	json.Name("ShadowBytes").Int(stats.ShadowBytes)
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	printStatistics(json, &stats.Statistics)
	if stats.ObjectCount > 0 {
		json.Name("ObjectSizeMin").Int(stats.ObjectSizeMin)
		json.Name("ObjectSizeMax").Int(stats.ObjectSizeMax)
	}
}

func printHeapUsage(json *jwriter.ObjectState, name string, usage HeapUsage) {
	heapObj := json.Name(name).Object()
	defer heapObj.End()

	heapObj.Name("InUse").Int(usage.InUse)
	heapObj.Name("Capacity").Int(usage.Capacity)
}

// BuildStatsString returns a JSON document describing the allocator's pools and heaps. When
// detailed is true every live backend object is listed as well.
func (a *Allocator) BuildStatsString(detailed bool) string {
	a.logger.Debug("Allocator::BuildStatsString")

	stats := a.Statistics()
	detailedStats := a.CalculateStatistics()

	writer := jwriter.NewWriter()
	root := writer.Object()

	general := root.Name("General").Object()
	general.Name("Features").String(a.platform.Features.String())
	general.Name("Workarounds").String(a.platform.Workarounds.String())
	general.Name("Flags").String(a.createFlags.String())
	general.Name("ServerContext").Bool(a.isServer)
	general.End()

	total := root.Name("Total").Object()
	printDetailedStatistics(&total, &detailedStats.Total)
	total.End()

	pools := root.Name("Pools").Object()
	for pool := 0; pool < hw.PoolCount; pool++ {
		poolObj := pools.Name(hw.Pool(pool).String()).Object()
		printDetailedStatistics(&poolObj, &detailedStats.Pools[pool])
		poolObj.End()
	}
	pools.End()

	heaps := root.Name("Heaps").Object()
	printHeapUsage(&heaps, "Surfaces", stats.Surfaces)
	printHeapUsage(&heaps, "Buffers", stats.Buffers)
	printHeapUsage(&heaps, "Images", stats.Images)
	printHeapUsage(&heaps, "Contexts", stats.Contexts)
	heaps.End()

	if detailed {
		objects := root.Name("Objects").Array()
		for _, record := range a.tracker.snapshot() {
			obj := objects.Object()
			record.printParameters(&obj)
			obj.End()
		}
		objects.End()
	}

	root.End()
	return string(writer.Bytes())
}
