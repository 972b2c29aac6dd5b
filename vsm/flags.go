package vsm

import (
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/mediamem/hw"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

var allocatorCreateFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	allocatorCreateFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return allocatorCreateFlagsMapping.FlagsToString(f)
}

const (
	// AllocatorCreateExternallySynchronized ensures that this allocator and all resources created from it
	// will not be synchronized internally. The consumer must guarantee they are used from only one
	// goroutine at a time or are synchronized by some other mechanism, but performance may improve because
	// internal mutexes are not used.
	AllocatorCreateExternallySynchronized CreateFlags = 1 << iota
	// AllocatorCreateVerboseTracking records the name, shape and creation site of every backend
	// object alongside the metadata that is always tracked. The extra fields show up in
	// BuildStatsString and in leak reports when the allocator is destroyed.
	AllocatorCreateVerboseTracking
)

func init() {
	AllocatorCreateExternallySynchronized.Register("AllocatorCreateExternallySynchronized")
	AllocatorCreateVerboseTracking.Register("AllocatorCreateVerboseTracking")
}

// AccessFlags describe what the caller will do with a locked resource
type AccessFlags int32

var accessFlagsMapping = common.NewFlagStringMapping[AccessFlags]()

func (f AccessFlags) Register(str string) {
	accessFlagsMapping.Register(f, str)
}
func (f AccessFlags) String() string {
	return accessFlagsMapping.FlagsToString(f)
}

const (
	AccessRead AccessFlags = 1 << iota
	AccessWrite

	accessAll = AccessRead | AccessWrite
)

func init() {
	AccessRead.Register("AccessRead")
	AccessWrite.Register("AccessWrite")
}

// BufferKind is the role of a linear buffer
type BufferKind uint32

const (
	BufferGeneric BufferKind = iota
	BufferBitstream
	BufferSliceParameter
	BufferCommand
	BufferStaging
	BufferImageData
	BufferShadow
)

var bufferKindMapping = map[BufferKind]string{
	BufferGeneric:        "BufferGeneric",
	BufferBitstream:      "BufferBitstream",
	BufferSliceParameter: "BufferSliceParameter",
	BufferCommand:        "BufferCommand",
	BufferStaging:        "BufferStaging",
	BufferImageData:      "BufferImageData",
	BufferShadow:         "BufferShadow",
}

func (k BufferKind) String() string {
	str, ok := bufferKindMapping[k]
	if !ok {
		return "unknown"
	}
	return str
}

// Category returns the resource category the placement policy sees for buffers of this kind
func (k BufferKind) Category() hw.ResourceCategory {
	switch k {
	case BufferBitstream:
		return hw.CategoryBitstream
	case BufferCommand:
		return hw.CategoryCommandBuffer
	case BufferStaging:
		return hw.CategoryStaging
	case BufferImageData:
		return hw.CategoryImageData
	case BufferShadow:
		return hw.CategoryShadow
	}

	return hw.CategoryGeneric
}
