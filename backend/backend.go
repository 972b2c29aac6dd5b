package backend

//go:generate mockgen -source backend.go -destination ./mocks/backend.go -package mocks

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_external_memory_capabilities"
	"github.com/vkngwrapper/mediamem/compression"
	"github.com/vkngwrapper/mediamem/hw"
)

// Handle identifies a memory object owned by a Backend. The zero Handle never refers to a live
// object.
type Handle uint64

const NullHandle Handle = 0

// AllocateRequest asks the backend for a new memory object
type AllocateRequest struct {
	// Name is a debug label for the object, it may be empty
	Name string

	Pool       hw.Pool
	Properties core1_0.MemoryPropertyFlags
	Tiling     hw.Tiling
	// Compression is the compression mode the object is created with. A backend that allocates a
	// compressed object also allocates its compression table.
	Compression compression.Mode

	// Pitch is the minimum row stride in bytes and Rows the minimum number of rows. A linear
	// buffer is requested as a single row.
	Pitch int
	Rows  int
	// Alignment is the alignment of the pitch of linear objects. It must be a power of two.
	Alignment int
}

// ImportRequest asks the backend to wrap caller-supplied memory in a memory object
type ImportRequest struct {
	Name string

	HandleType khr_external_memory_capabilities.ExternalMemoryHandleTypeFlags
	// ExternalHandle is the OS-level handle of the memory, e.g. a file descriptor
	ExternalHandle uintptr

	Tiling      hw.Tiling
	Compression compression.Mode
	Pitch       int
	Rows        int
	Size        int
}

// Object describes a memory object as it was actually created. A backend may round any of the
// requested values up and the reported values are authoritative.
type Object struct {
	Handle      Handle
	Pool        hw.Pool
	Tiling      hw.Tiling
	Compression compression.Mode

	Pitch int
	Rows  int
	Size  int

	// HasCompressionTable is true when the backend allocated compression metadata alongside the
	// object that must be released with ReleaseCompressionTable before the object is freed
	HasCompressionTable bool
	External            bool
}

// Backend is the OS/hardware memory layer the allocator requests memory objects from
type Backend interface {
	Allocate(request AllocateRequest) (Object, error)
	Import(request ImportRequest) (Object, error)
	Free(handle Handle) error

	Map(handle Handle) ([]byte, error)
	Unmap(handle Handle) error

	// Blit copies src into dst with the hardware copy engine. When deswizzle is true src is a
	// tiled object and dst receives its contents in linear order, otherwise src is linear and
	// dst is tiled.
	Blit(src, dst Handle, deswizzle bool) error

	ReleaseCompressionTable(handle Handle) error
}
