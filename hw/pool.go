package hw

import "github.com/vkngwrapper/core/v2/core1_0"

// Pool is the class of backing memory a resource is placed in
type Pool uint32

const (
	// PoolGeneric is generic video memory: the backend decides where the memory lives. It is the
	// only pool used on hardware without FeatureLocalMemory, and it doubles as "no preference"
	// when a caller passes a preferred pool.
	PoolGeneric Pool = iota
	// PoolDevice is device-local video memory
	PoolDevice
	// PoolSystem is system memory visible to both the CPU and the device
	PoolSystem

	poolCount
)

// PoolCount is the number of distinct pools
const PoolCount = int(poolCount)

var poolMapping = map[Pool]string{
	PoolGeneric: "PoolGeneric",
	PoolDevice:  "PoolDevice",
	PoolSystem:  "PoolSystem",
}

func (p Pool) String() string {
	str, ok := poolMapping[p]
	if !ok {
		return "unknown"
	}
	return str
}

// Valid reports whether p is one of the known pools
func (p Pool) Valid() bool {
	return int(p) < PoolCount
}

// PropertyFlags returns the memory properties a backend must provide for the pool
func (p Pool) PropertyFlags() core1_0.MemoryPropertyFlags {
	switch p {
	case PoolDevice:
		return core1_0.MemoryPropertyDeviceLocal
	case PoolSystem:
		return core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent | core1_0.MemoryPropertyHostCached
	}

	return 0
}

// PoolByName looks up a pool by its String() value
func PoolByName(name string) (Pool, bool) {
	for pool, poolName := range poolMapping {
		if poolName == name {
			return pool, true
		}
	}
	return PoolGeneric, false
}
