package vsm

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/backend"
	"github.com/vkngwrapper/mediamem/compression"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/internal/utils"
	"github.com/vkngwrapper/mediamem/memutils"
	"github.com/vkngwrapper/mediamem/memutils/heap"
	"github.com/vkngwrapper/mediamem/policy"
	"golang.org/x/exp/slog"
)

const (
	// linearPitchAlignment is the pitch alignment of untiled surfaces and images
	linearPitchAlignment int = 64
	// bufferAlignment is the size alignment of linear buffers
	bufferAlignment int = 64
)

// Allocator creates, locks and destroys media surfaces and buffers. Each resource occupies a slot in
// one of four heaps (surfaces, buffers, images, contexts), and the Handle returned to the caller
// identifies the heap and the slot.
type Allocator struct {
	useMutex    bool
	logger      *slog.Logger
	backend     backend.Backend
	platform    hw.Platform
	policy      *policy.Engine
	createFlags CreateFlags
	isServer    bool

	surfaces *heap.Heap[Surface]
	buffers  *heap.Heap[Buffer]
	images   *heap.Heap[Image]
	contexts *heap.Heap[Context]

	tracker  *objectTracker
	counters poolCounters
	closed   atomic.Bool
}

func (a *Allocator) checkOpen() error {
	if a.closed.Load() {
		return errors.Mark(errors.New("the allocator has been closed"), memutils.ErrInvalidArgument)
	}
	return nil
}

func (a *Allocator) track(record trackedObject) {
	a.tracker.add(record)
	a.counters.addObject(record.pool, record.size)
}

func (a *Allocator) untrack(object backend.Handle) {
	record, ok := a.tracker.remove(object)
	if !ok {
		a.logger.Error("Allocator::untrack attempted to untrack an object that was never tracked", slog.Uint64("object", uint64(object)))
		return
	}
	a.counters.removeObject(record.pool, record.size)
}

// freeObject releases the compression table of an object, if it has one, and frees it
func (a *Allocator) freeObject(object backend.Object) error {
	var result error

	if object.HasCompressionTable {
		err := a.backend.ReleaseCompressionTable(object.Handle)
		if err != nil {
			result = errors.CombineErrors(result, errors.Wrapf(err, "failed to release the compression table of object %d", object.Handle))
		}
	}

	err := a.backend.Free(object.Handle)
	if err != nil {
		result = errors.CombineErrors(result, errors.Wrapf(err, "failed to free object %d", object.Handle))
	}

	return result
}

// acceptObject checks that a memory object reported by the backend can hold the footprint it was
// requested with. A rejected object is freed before the error is returned.
func (a *Allocator) acceptObject(object backend.Object, pitch, rows int) error {
	footprint, ok := memutils.CheckedMul(object.Pitch, object.Rows)

	var err error
	switch {
	case !object.Pool.Valid():
		err = errors.Newf("object %d was placed in unknown pool %d", object.Handle, object.Pool)
	case object.Pitch < pitch || object.Rows < rows:
		err = errors.Newf("object %d has %d rows with a pitch of %d, but %d rows with a pitch of %d were requested",
			object.Handle, object.Rows, object.Pitch, rows, pitch)
	case !ok || object.Size < footprint:
		err = errors.Newf("object %d holds %d bytes, which cannot cover %d rows with a pitch of %d",
			object.Handle, object.Size, object.Rows, object.Pitch)
	}
	if err == nil {
		return nil
	}

	freeErr := a.freeObject(object)
	return errors.CombineErrors(errors.Mark(err, memutils.ErrAllocationFailed), freeErr)
}

func (a *Allocator) resolveOwner(owner Handle) (*Context, error) {
	if owner == NullHandle {
		return nil, nil
	}

	if owner.Kind() != KindContext {
		return nil, errors.Mark(errors.Newf("owner %s is not a context", owner), memutils.ErrInvalidArgument)
	}

	context, ok := a.contexts.Get(owner.slot())
	if !ok {
		return nil, errors.Mark(errors.Newf("owner %s does not exist", owner), memutils.ErrInvalidArgument)
	}

	return context, nil
}

// adoptInto registers a new resource with its owner context. If the context was destroyed while
// the resource was being created, the resource is destroyed again.
func (a *Allocator) adoptInto(owner *Context, resource Handle) error {
	if owner == nil || owner.adopt(resource) {
		return nil
	}

	err := a.Destroy(resource)
	return errors.CombineErrors(
		errors.Mark(errors.Newf("owner %s was destroyed while %s was being created", owner.handle, resource), memutils.ErrInvalidArgument),
		err,
	)
}

// CreateSurface creates a 2D surface. The returned Handle stays valid until Destroy is called for
// it, or for its owner context.
func (a *Allocator) CreateSurface(info SurfaceCreateInfo) (Handle, error) {
	a.logger.Debug("Allocator::CreateSurface")

	err := a.checkOpen()
	if err != nil {
		return NullHandle, err
	}

	if info.Width <= 0 || info.Height <= 0 {
		return NullHandle, errors.Mark(errors.Newf("surface dimensions %dx%d must be positive", info.Width, info.Height), memutils.ErrInvalidArgument)
	}

	formatInfo, err := hw.LookupFormat(info.Format)
	if err != nil {
		return NullHandle, err
	}

	owner, err := a.resolveOwner(info.Owner)
	if err != nil {
		return NullHandle, err
	}

	category := info.Category
	if category == hw.CategoryGeneric {
		category = hw.CategoryVideoSurface
	}

	footprint, err := measure(formatInfo, hw.AlignmentFor(info.Format, info.Usage), info.Width, info.Height, 1)
	if err != nil {
		return NullHandle, err
	}

	surface := &Surface{
		name:          info.Name,
		owner:         info.Owner,
		format:        info.Format,
		formatInfo:    formatInfo,
		usage:         info.Usage,
		category:      category,
		width:         info.Width,
		height:        info.Height,
		alignedWidth:  footprint.alignedWidth,
		alignedHeight: footprint.alignedHeight,
		lockMutex:     utils.OptionalMutex{UseMutex: a.useMutex},
	}

	if info.External != nil {
		err = a.importSurface(surface, info.External)
	} else {
		err = a.allocateSurface(surface, footprint, info.PreferredPool)
	}
	if err != nil {
		return NullHandle, err
	}

	surface.pitch = surface.object.Pitch
	surface.rows = surface.object.Rows
	surface.size = surface.object.Size
	surface.tiling = surface.object.Tiling
	surface.planes = planeLayout(formatInfo, surface.pitch, surface.alignedHeight)

	slot, err := a.surfaces.Allocate(surface)
	if err != nil {
		freeErr := a.freeObject(surface.object)
		return NullHandle, errors.CombineErrors(errors.Wrap(err, "failed to register the surface"), freeErr)
	}
	surface.handle = makeHandle(KindSurface, slot)

	a.track(a.tracker.newRecord(surface.object, surface.handle, category, info.Name, info.Format, info.Width, info.Height))

	err = a.adoptInto(owner, surface.handle)
	if err != nil {
		return NullHandle, err
	}

	return surface.handle, nil
}

func (a *Allocator) allocateSurface(surface *Surface, footprint extent, preferred hw.Pool) error {
	tiling := hw.TilingY
	if surface.formatInfo.LinearOnly || surface.usage&hw.UsageLinear != 0 {
		tiling = hw.TilingNone
	}

	decision := compression.ShouldCompress(&a.platform, surface.format, tiling, surface.usage)
	desc := policy.ResourceDescriptor{
		Type:       policy.ResourceSurface2D,
		Category:   surface.category,
		Format:     surface.format,
		Tiling:     tiling,
		Usage:      surface.usage,
		Width:      surface.alignedWidth,
		Height:     surface.alignedHeight,
		Depth:      1,
		Compressed: decision.Enabled,
	}

	pool, err := a.policy.DecidePool(&a.platform, &desc, preferred, a.isServer)
	if err != nil {
		return err
	}

	object, err := a.backend.Allocate(backend.AllocateRequest{
		Name:        surface.name,
		Pool:        pool,
		Properties:  pool.PropertyFlags(),
		Tiling:      tiling,
		Compression: decision.Mode,
		Pitch:       footprint.pitch,
		Rows:        footprint.rows,
		Alignment:   linearPitchAlignment,
	})
	if err != nil {
		return errors.Mark(
			errors.Wrapf(err, "failed to allocate a %dx%d %s surface in %s", surface.width, surface.height, surface.format, pool),
			memutils.ErrAllocationFailed,
		)
	}

	err = a.acceptObject(object, footprint.pitch, footprint.rows)
	if err != nil {
		return err
	}

	surface.object = object
	surface.compression = decision
	surface.pool = pool
	surface.localOnly = desc.LocalOnly
	surface.nonLocalOnly = desc.NonLocalOnly
	return nil
}

func (a *Allocator) importSurface(surface *Surface, external *ExternalMemory) error {
	tiling, ok := hw.TilingFromModifier(external.Modifier)
	if !ok {
		return errors.Mark(errors.Newf("external memory declares unknown modifier %#x", external.Modifier), memutils.ErrInvalidArgument)
	}

	if external.Pitch <= 0 {
		return errors.Mark(errors.Newf("external memory pitch %d must be positive", external.Pitch), memutils.ErrInvalidArgument)
	}

	rows := external.Rows
	if rows == 0 {
		// Only whole rows of tiles are usable when the row count has to be inferred from the size
		rows = memutils.AlignDown(external.Size/external.Pitch, uint(tiling.TileMode().Geometry().Rows))
	}

	decision := compression.ForExternal(&external.Compression)
	object, err := a.backend.Import(backend.ImportRequest{
		Name:           surface.name,
		HandleType:     external.HandleType,
		ExternalHandle: external.Handle,
		Tiling:         tiling,
		Compression:    decision.Mode,
		Pitch:          external.Pitch,
		Rows:           rows,
		Size:           external.Size,
	})
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to import external memory"), memutils.ErrAllocationFailed)
	}

	err = a.acceptObject(object, external.Pitch, rows)
	if err != nil {
		return err
	}

	descriptor := *external
	surface.external = &descriptor
	surface.object = object
	surface.compression = decision
	surface.pool = object.Pool
	return nil
}

// CreateBuffer creates a linear buffer
func (a *Allocator) CreateBuffer(info BufferCreateInfo) (Handle, error) {
	a.logger.Debug("Allocator::CreateBuffer")

	err := a.checkOpen()
	if err != nil {
		return NullHandle, err
	}

	owner, err := a.resolveOwner(info.Owner)
	if err != nil {
		return NullHandle, err
	}

	if info.Parent != NullHandle {
		if info.Parent.Kind() != KindSurface {
			return NullHandle, errors.Mark(errors.Newf("parent %s is not a surface", info.Parent), memutils.ErrInvalidArgument)
		}
		if _, ok := a.surfaces.Get(info.Parent.slot()); !ok {
			return NullHandle, errors.Mark(errors.Newf("parent %s does not exist", info.Parent), memutils.ErrInvalidArgument)
		}
	}

	buffer, err := a.createBuffer(info)
	if err != nil {
		return NullHandle, err
	}

	err = a.adoptInto(owner, buffer.handle)
	if err != nil {
		return NullHandle, err
	}

	return buffer.handle, nil
}

func (a *Allocator) createBuffer(info BufferCreateInfo) (*Buffer, error) {
	if info.Size <= 0 || info.Size > memutils.MaxObjectBytes {
		return nil, errors.Mark(errors.Newf("buffer size %d must be positive and at most %d", info.Size, memutils.MaxObjectBytes), memutils.ErrInvalidArgument)
	}

	desc := policy.ResourceDescriptor{
		Type:     policy.ResourceBuffer1D,
		Category: info.Kind.Category(),
		Format:   hw.FormatBuffer,
		Tiling:   hw.TilingNone,
		Usage:    info.Usage,
		Width:    info.Size,
		Height:   1,
		Depth:    1,
	}

	pool, err := a.policy.DecidePool(&a.platform, &desc, info.PreferredPool, a.isServer)
	if err != nil {
		return nil, err
	}

	object, err := a.backend.Allocate(backend.AllocateRequest{
		Name:       info.Name,
		Pool:       pool,
		Properties: pool.PropertyFlags(),
		Tiling:     hw.TilingNone,
		Pitch:      info.Size,
		Rows:       1,
		Alignment:  bufferAlignment,
	})
	if err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "failed to allocate a %d byte %s buffer in %s", info.Size, info.Kind, pool),
			memutils.ErrAllocationFailed,
		)
	}

	err = a.acceptObject(object, info.Size, 1)
	if err != nil {
		return nil, err
	}

	buffer := &Buffer{
		name:          info.Name,
		owner:         info.Owner,
		parent:        info.Parent,
		kind:          info.Kind,
		usage:         info.Usage,
		requestedSize: info.Size,
		size:          object.Size,
		pool:          pool,
		localOnly:     desc.LocalOnly,
		nonLocalOnly:  desc.NonLocalOnly,
		object:        object,
		lockMutex:     utils.OptionalMutex{UseMutex: a.useMutex},
	}

	slot, err := a.buffers.Allocate(buffer)
	if err != nil {
		freeErr := a.freeObject(object)
		return nil, errors.CombineErrors(errors.Wrap(err, "failed to register the buffer"), freeErr)
	}
	buffer.handle = makeHandle(KindBuffer, slot)

	a.track(a.tracker.newRecord(object, buffer.handle, desc.Category, info.Name, hw.FormatUndefined, 0, 0))
	return buffer, nil
}

// CreateImage creates a linear CPU-facing image and the image-data buffer behind it
func (a *Allocator) CreateImage(info ImageCreateInfo) (Handle, error) {
	a.logger.Debug("Allocator::CreateImage")

	err := a.checkOpen()
	if err != nil {
		return NullHandle, err
	}

	if info.Width <= 0 || info.Height <= 0 {
		return NullHandle, errors.Mark(errors.Newf("image dimensions %dx%d must be positive", info.Width, info.Height), memutils.ErrInvalidArgument)
	}

	formatInfo, err := hw.LookupFormat(info.Format)
	if err != nil {
		return NullHandle, err
	}

	owner, err := a.resolveOwner(info.Owner)
	if err != nil {
		return NullHandle, err
	}

	footprint, err := measure(formatInfo, hw.AlignmentFor(info.Format, 0), info.Width, info.Height, linearPitchAlignment)
	if err != nil {
		return NullHandle, err
	}

	buffer, err := a.createBuffer(BufferCreateInfo{
		Name:  info.Name,
		Kind:  BufferImageData,
		Size:  footprint.size,
		Usage: hw.UsageCPUAccess,
	})
	if err != nil {
		return NullHandle, err
	}

	image := &Image{
		name:   info.Name,
		owner:  info.Owner,
		format: info.Format,
		width:  info.Width,
		height: info.Height,
		pitch:  footprint.pitch,
		size:   footprint.size,
		planes: planeLayout(formatInfo, footprint.pitch, footprint.alignedHeight),
		buffer: buffer,
	}

	slot, err := a.images.Allocate(image)
	if err != nil {
		destroyErr := a.destroyBuffer(buffer)
		return NullHandle, errors.CombineErrors(errors.Wrap(err, "failed to register the image"), destroyErr)
	}
	image.handle = makeHandle(KindImage, slot)
	buffer.image = image.handle

	err = a.adoptInto(owner, image.handle)
	if err != nil {
		return NullHandle, err
	}

	return image.handle, nil
}

// CreateContext creates an owner that resources can be grouped under
func (a *Allocator) CreateContext(name string) (Handle, error) {
	a.logger.Debug("Allocator::CreateContext")

	err := a.checkOpen()
	if err != nil {
		return NullHandle, err
	}

	context := newContext(a.useMutex, name)
	slot, err := a.contexts.Allocate(context)
	if err != nil {
		return NullHandle, errors.Wrap(err, "failed to register the context")
	}
	context.handle = makeHandle(KindContext, slot)

	return context.handle, nil
}

// Surface returns the surface a handle refers to
func (a *Allocator) Surface(handle Handle) (*Surface, bool) {
	if handle.Kind() != KindSurface {
		return nil, false
	}
	return a.surfaces.Get(handle.slot())
}

// Buffer returns the buffer a handle refers to
func (a *Allocator) Buffer(handle Handle) (*Buffer, bool) {
	if handle.Kind() != KindBuffer {
		return nil, false
	}
	return a.buffers.Get(handle.slot())
}

// Image returns the image a handle refers to
func (a *Allocator) Image(handle Handle) (*Image, bool) {
	if handle.Kind() != KindImage {
		return nil, false
	}
	return a.images.Get(handle.slot())
}

// Context returns the context a handle refers to
func (a *Allocator) Context(handle Handle) (*Context, bool) {
	if handle.Kind() != KindContext {
		return nil, false
	}
	return a.contexts.Get(handle.slot())
}
