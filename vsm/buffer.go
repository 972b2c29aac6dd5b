package vsm

import (
	"github.com/vkngwrapper/mediamem/backend"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/internal/utils"
)

// BufferCreateInfo describes a linear buffer to create
type BufferCreateInfo struct {
	Name string
	Kind BufferKind
	Size int
	// Usage hints. UsageCPUAccess and UsageNotLockable feed the placement diagnostics.
	Usage         hw.UsageFlags
	PreferredPool hw.Pool

	// Owner is an optional context that destroys the buffer when the context is destroyed
	Owner Handle
	// Parent is an optional surface the buffer mirrors, used for BufferShadow buffers
	Parent Handle
}

// Buffer is a linear resource. It is never tiled or compressed.
type Buffer struct {
	handle Handle
	name   string
	owner  Handle
	parent Handle
	// image is set when the buffer backs an Image, in which case the Image owns it
	image Handle

	kind  BufferKind
	usage hw.UsageFlags

	requestedSize int
	size          int
	pool          hw.Pool
	localOnly     bool
	nonLocalOnly  bool

	object backend.Object

	lockMutex utils.OptionalMutex
	cpu       cpuAccess
}

func (b *Buffer) Handle() Handle         { return b.handle }
func (b *Buffer) Name() string           { return b.name }
func (b *Buffer) Kind() BufferKind       { return b.kind }
func (b *Buffer) RequestedSize() int     { return b.requestedSize }
func (b *Buffer) Size() int              { return b.size }
func (b *Buffer) Pool() hw.Pool          { return b.pool }
func (b *Buffer) LocalOnly() bool        { return b.localOnly }
func (b *Buffer) NonLocalOnly() bool     { return b.nonLocalOnly }
func (b *Buffer) Object() backend.Handle { return b.object.Handle }

// Parent returns the surface the buffer mirrors. It returns NullHandle once that surface has been
// destroyed.
func (b *Buffer) Parent() Handle {
	b.lockMutex.Lock()
	defer b.lockMutex.Unlock()

	return b.parent
}

func (b *Buffer) detachFrom(surface Handle) {
	b.lockMutex.Lock()
	defer b.lockMutex.Unlock()

	if b.parent == surface {
		b.parent = NullHandle
	}
}

// RefCount returns the number of outstanding locks
func (b *Buffer) RefCount() int {
	b.lockMutex.Lock()
	defer b.lockMutex.Unlock()

	return b.cpu.counter.references()
}

// Mapped reports whether the buffer is currently mapped for CPU access
func (b *Buffer) Mapped() bool {
	b.lockMutex.Lock()
	defer b.lockMutex.Unlock()

	return b.cpu.mapped
}
