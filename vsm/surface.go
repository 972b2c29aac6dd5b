package vsm

import (
	"github.com/vkngwrapper/extensions/v2/khr_external_memory_capabilities"
	"github.com/vkngwrapper/mediamem/backend"
	"github.com/vkngwrapper/mediamem/compression"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/internal/utils"
	"github.com/vkngwrapper/mediamem/memutils/swizzle"
)

// ExternalMemory describes caller-supplied memory a surface is created on top of
type ExternalMemory struct {
	HandleType khr_external_memory_capabilities.ExternalMemoryHandleTypeFlags
	// Handle is the OS-level handle of the memory, e.g. a dma-buf file descriptor
	Handle uintptr
	// Modifier is the declared format modifier, which determines the tiling of the memory
	Modifier uint64

	Pitch int
	// Rows is the number of rows at Pitch the memory holds. When zero, Size / Pitch is used.
	Rows int
	Size int

	// Compression is the compression state the memory declares. It is trusted as-is.
	Compression compression.ExternalDescriptor
}

// SurfaceCreateInfo describes a surface to create
type SurfaceCreateInfo struct {
	// Name is an optional debug label
	Name string

	Format hw.Format
	Width  int
	Height int
	Usage  hw.UsageFlags
	// Category is the role of the surface as seen by the placement policy. CategoryGeneric is
	// treated as CategoryVideoSurface.
	Category hw.ResourceCategory
	// PreferredPool overrides the default placement when it is PoolDevice or PoolSystem
	PreferredPool hw.Pool

	// Owner is an optional context that destroys the surface when the context is destroyed
	Owner Handle

	// External wraps caller-supplied memory instead of allocating new memory
	External *ExternalMemory
}

// Surface is a 2D pixel resource. Its layout is fixed when it is created, resizing a surface
// requires destroying it and creating a new one.
type Surface struct {
	handle Handle
	name   string
	owner  Handle

	format     hw.Format
	formatInfo hw.FormatInfo
	usage      hw.UsageFlags
	category   hw.ResourceCategory

	width         int
	height        int
	alignedWidth  int
	alignedHeight int

	tiling      hw.Tiling
	pitch       int
	rows        int
	size        int
	planes      []Plane
	compression compression.Decision

	pool         hw.Pool
	localOnly    bool
	nonLocalOnly bool

	object   backend.Object
	external *ExternalMemory

	lockMutex utils.OptionalMutex
	cpu       cpuAccess
}

func (s *Surface) Handle() Handle                    { return s.handle }
func (s *Surface) Name() string                      { return s.name }
func (s *Surface) Format() hw.Format                 { return s.format }
func (s *Surface) Usage() hw.UsageFlags              { return s.usage }
func (s *Surface) Width() int                        { return s.width }
func (s *Surface) Height() int                       { return s.height }
func (s *Surface) AlignedWidth() int                 { return s.alignedWidth }
func (s *Surface) AlignedHeight() int                { return s.alignedHeight }
func (s *Surface) Tiling() hw.Tiling                 { return s.tiling }
func (s *Surface) Pitch() int                        { return s.pitch }
func (s *Surface) Rows() int                         { return s.rows }
func (s *Surface) Size() int                         { return s.size }
func (s *Surface) Compression() compression.Decision { return s.compression }
func (s *Surface) Pool() hw.Pool                     { return s.pool }
func (s *Surface) LocalOnly() bool                   { return s.localOnly }
func (s *Surface) NonLocalOnly() bool                { return s.nonLocalOnly }
func (s *Surface) IsExternal() bool                  { return s.external != nil }
func (s *Surface) Object() backend.Handle            { return s.object.Handle }

// Planes returns the offset and pitch of each plane of the surface
func (s *Surface) Planes() []Plane {
	planes := make([]Plane, len(s.planes))
	copy(planes, s.planes)
	return planes
}

// RefCount returns the number of outstanding locks
func (s *Surface) RefCount() int {
	s.lockMutex.Lock()
	defer s.lockMutex.Unlock()

	return s.cpu.counter.references()
}

// Mapped reports whether the surface is currently mapped for CPU access
func (s *Surface) Mapped() bool {
	s.lockMutex.Lock()
	defer s.lockMutex.Unlock()

	return s.cpu.mapped
}

func (s *Surface) swizzleLayout() swizzle.Layout {
	return swizzle.Layout{
		Mode:   s.tiling.TileMode(),
		Pitch:  s.pitch,
		Height: s.rows,
	}
}
