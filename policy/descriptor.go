package policy

import "github.com/vkngwrapper/mediamem/hw"

// ResourceType is the logical shape of a resource
type ResourceType uint32

const (
	ResourceBuffer1D ResourceType = iota
	ResourceSurface2D
	ResourceVolume3D
)

var resourceTypeMapping = map[ResourceType]string{
	ResourceBuffer1D:  "ResourceBuffer1D",
	ResourceSurface2D: "ResourceSurface2D",
	ResourceVolume3D:  "ResourceVolume3D",
}

func (t ResourceType) String() string {
	str, ok := resourceTypeMapping[t]
	if !ok {
		return "unknown"
	}
	return str
}

// ResourceDescriptor is the record describing a resource that is fed through the placement and
// compression policies. DecidePool writes LocalOnly and NonLocalOnly; those two flags are what
// downstream consumers read.
type ResourceDescriptor struct {
	Type     ResourceType
	Category hw.ResourceCategory
	Format   hw.Format
	Tiling   hw.Tiling
	Usage    hw.UsageFlags

	Width  int
	Height int
	Depth  int

	Compressed bool

	LocalOnly    bool
	NonLocalOnly bool
}

// NotLockable reports whether the caller declared the resource must never be mapped
func (d *ResourceDescriptor) NotLockable() bool {
	return d.Usage&hw.UsageNotLockable != 0
}

// CPUAccess reports whether the caller declared it intends to map the resource
func (d *ResourceDescriptor) CPUAccess() bool {
	return d.Usage&hw.UsageCPUAccess != 0
}
