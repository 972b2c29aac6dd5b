package simulated

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/mediamem/backend"
	"github.com/vkngwrapper/mediamem/compression"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/internal/utils"
	"github.com/vkngwrapper/mediamem/memutils"
	"github.com/vkngwrapper/mediamem/memutils/swizzle"
	"golang.org/x/exp/slog"
)

// Options configure a simulated Backend
type Options struct {
	// PoolBudgets caps the live bytes of each pool, indexed by hw.Pool. A zero budget is
	// unlimited.
	PoolBudgets [hw.PoolCount]int
}

// Counters are the number of operations a Backend has performed
type Counters struct {
	Allocations       int
	Imports           int
	Frees             int
	Maps              int
	Unmaps            int
	ForwardBlits      int
	ReverseBlits      int
	CompressionTables int
}

type object struct {
	backend.Object
	data             []byte
	mapCount         int
	compressionTable bool
}

func (o *object) layout() swizzle.Layout {
	return swizzle.Layout{
		Mode:   o.Tiling.TileMode(),
		Pitch:  o.Pitch,
		Height: o.Rows,
	}
}

// Backend is an in-process implementation of backend.Backend. Memory objects are plain byte
// slices and its copy engine is a model of the hardware tiling engine built on the software
// swizzle, which makes it byte-compatible with the CPU swizzle path.
type Backend struct {
	logger *slog.Logger

	mutex      utils.OptionalMutex
	objects    *swiss.Map[backend.Handle, *object]
	nextHandle backend.Handle
	budget     poolBudget
	faults     atomic.Int32

	allocations       atomic.Int64
	imports           atomic.Int64
	frees             atomic.Int64
	maps              atomic.Int64
	unmaps            atomic.Int64
	forwardBlits      atomic.Int64
	reverseBlits      atomic.Int64
	compressionTables atomic.Int64
}

var _ backend.Backend = &Backend{}

// New creates an empty simulated backend
func New(logger *slog.Logger, options Options) *Backend {
	b := &Backend{
		logger:     logger,
		mutex:      utils.OptionalMutex{UseMutex: true},
		objects:    swiss.NewMap[backend.Handle, *object](64),
		nextHandle: 1,
	}

	for pool, limit := range options.PoolBudgets {
		b.budget.limits[pool] = int64(limit)
	}

	return b
}

// SetFaults replaces the set of operations that fail on purpose
func (b *Backend) SetFaults(faults FaultFlags) {
	b.faults.Store(int32(faults))
}

func (b *Backend) faulted(fault FaultFlags) error {
	if FaultFlags(b.faults.Load())&fault != 0 {
		return errors.Newf("simulated fault: %s", fault)
	}
	return nil
}

func (b *Backend) register(obj *object) backend.Object {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	obj.Handle = b.nextHandle
	b.nextHandle++
	b.objects.Put(obj.Handle, obj)

	return obj.Object
}

func (b *Backend) lookup(handle backend.Handle) (*object, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	obj, ok := b.objects.Get(handle)
	if !ok {
		return nil, errors.Mark(errors.Newf("memory object %d does not exist", handle), memutils.ErrInvalidArgument)
	}
	return obj, nil
}

func tileAlignment(tiling hw.Tiling) (pitch int, rows int) {
	geometry := tiling.TileMode().Geometry()
	return geometry.WidthBytes, geometry.Rows
}

func (b *Backend) Allocate(request backend.AllocateRequest) (backend.Object, error) {
	b.logger.Debug("Backend::Allocate")

	if request.Pitch <= 0 || request.Rows <= 0 {
		return backend.Object{}, errors.Mark(errors.Newf("cannot allocate an object of %d rows with a pitch of %d", request.Rows, request.Pitch), memutils.ErrInvalidArgument)
	}
	if !request.Pool.Valid() {
		return backend.Object{}, errors.Mark(errors.Newf("cannot allocate an object in unknown pool %d", request.Pool), memutils.ErrInvalidArgument)
	}
	err := memutils.CheckPow2(request.Alignment, "alignment")
	if err != nil {
		return backend.Object{}, err
	}

	err = b.faulted(FaultAllocate)
	if err == nil && request.Tiling == hw.TilingNone {
		err = b.faulted(FaultLinearAllocate)
	}
	if err != nil {
		return backend.Object{}, err
	}

	pitchAlignment, rowAlignment := tileAlignment(request.Tiling)
	if request.Tiling == hw.TilingNone {
		pitchAlignment = request.Alignment
	}

	pitch, pitchOK := memutils.CheckedAlignUp(request.Pitch, uint(pitchAlignment))
	rows, rowsOK := memutils.CheckedAlignUp(request.Rows, uint(rowAlignment))
	size, sizeOK := memutils.CheckedMul(pitch, rows)
	if !pitchOK || !rowsOK || !sizeOK {
		return backend.Object{}, errors.Mark(errors.Newf("%d rows with a pitch of %d do not fit in %d bytes", request.Rows, request.Pitch, memutils.MaxObjectBytes), memutils.ErrInvalidArgument)
	}

	err = b.budget.add(request.Pool, size)
	if err != nil {
		return backend.Object{}, errors.Wrapf(err, "%s cannot fit %d more bytes", request.Pool, size)
	}

	obj := &object{
		Object: backend.Object{
			Pool:        request.Pool,
			Tiling:      request.Tiling,
			Compression: request.Compression,
			Pitch:       pitch,
			Rows:        rows,
			Size:        size,
		},
		data: make([]byte, size),
	}
	if request.Compression != compression.ModeNone {
		obj.HasCompressionTable = true
		obj.compressionTable = true
		b.compressionTables.Add(1)
	}

	b.allocations.Add(1)
	return b.register(obj), nil
}

func (b *Backend) Import(request backend.ImportRequest) (backend.Object, error) {
	b.logger.Debug("Backend::Import")

	err := b.faulted(FaultImport)
	if err != nil {
		return backend.Object{}, err
	}

	footprint, ok := memutils.CheckedMul(request.Pitch, request.Rows)
	if !ok || request.Pitch <= 0 || request.Rows <= 0 || request.Size < footprint || request.Size > memutils.MaxObjectBytes {
		return backend.Object{}, errors.Mark(errors.Newf("external memory of %d bytes cannot hold %d rows with a pitch of %d", request.Size, request.Rows, request.Pitch), memutils.ErrInvalidArgument)
	}

	layout := swizzle.Layout{Mode: request.Tiling.TileMode(), Pitch: request.Pitch, Height: request.Rows}
	err = layout.Validate()
	if err != nil {
		return backend.Object{}, errors.Wrap(err, "external memory does not match its declared tiling")
	}

	obj := &object{
		Object: backend.Object{
			Pool:        hw.PoolGeneric,
			Tiling:      request.Tiling,
			Compression: request.Compression,
			Pitch:       request.Pitch,
			Rows:        request.Rows,
			Size:        request.Size,
			External:    true,
		},
		data: make([]byte, request.Size),
	}

	b.imports.Add(1)
	return b.register(obj), nil
}

func (b *Backend) Free(handle backend.Handle) error {
	b.logger.Debug("Backend::Free")

	b.mutex.Lock()
	obj, ok := b.objects.Get(handle)
	if ok {
		b.objects.Delete(handle)
	}
	b.mutex.Unlock()

	if !ok {
		return errors.Mark(errors.Newf("memory object %d does not exist", handle), memutils.ErrInvalidArgument)
	}

	if obj.mapCount > 0 {
		b.logger.Warn("Backend::Free freed a mapped object", slog.Uint64("handle", uint64(handle)), slog.Int("mapCount", obj.mapCount))
	}
	if obj.compressionTable {
		b.logger.Warn("Backend::Free freed an object whose compression table was not released", slog.Uint64("handle", uint64(handle)))
		b.compressionTables.Add(-1)
	}

	if !obj.External {
		b.budget.remove(obj.Pool, obj.Size)
	}
	b.frees.Add(1)
	return nil
}

func (b *Backend) Map(handle backend.Handle) ([]byte, error) {
	b.logger.Debug("Backend::Map")

	err := b.faulted(FaultMap)
	if err != nil {
		return nil, err
	}

	obj, err := b.lookup(handle)
	if err != nil {
		return nil, err
	}

	b.mutex.Lock()
	obj.mapCount++
	b.mutex.Unlock()

	b.maps.Add(1)
	return obj.data, nil
}

func (b *Backend) Unmap(handle backend.Handle) error {
	b.logger.Debug("Backend::Unmap")

	obj, err := b.lookup(handle)
	if err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if obj.mapCount == 0 {
		return errors.Newf("memory object %d is not mapped", handle)
	}
	obj.mapCount--

	b.unmaps.Add(1)
	return nil
}

func (b *Backend) Blit(src, dst backend.Handle, deswizzle bool) error {
	b.logger.Debug("Backend::Blit")

	err := b.faulted(FaultBlit)
	if err == nil && !deswizzle {
		err = b.faulted(FaultReverseBlit)
	}
	if err != nil {
		return err
	}

	srcObj, err := b.lookup(src)
	if err != nil {
		return err
	}
	dstObj, err := b.lookup(dst)
	if err != nil {
		return err
	}

	if deswizzle {
		err = swizzle.Deswizzle(dstObj.data, srcObj.data, srcObj.layout())
		if err != nil {
			return errors.Wrapf(err, "copy engine failed to de-tile object %d", src)
		}
		b.forwardBlits.Add(1)
		return nil
	}

	err = swizzle.Swizzle(dstObj.data, srcObj.data, dstObj.layout())
	if err != nil {
		return errors.Wrapf(err, "copy engine failed to tile object %d", dst)
	}
	b.reverseBlits.Add(1)
	return nil
}

func (b *Backend) ReleaseCompressionTable(handle backend.Handle) error {
	b.logger.Debug("Backend::ReleaseCompressionTable")

	obj, err := b.lookup(handle)
	if err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !obj.compressionTable {
		return errors.Mark(errors.Newf("memory object %d has no compression table", handle), memutils.ErrAlreadyReleased)
	}
	obj.compressionTable = false
	b.compressionTables.Add(-1)

	return nil
}

// Counters returns the number of operations performed so far. CompressionTables is the number
// of compression tables currently live.
func (b *Backend) Counters() Counters {
	return Counters{
		Allocations:       int(b.allocations.Load()),
		Imports:           int(b.imports.Load()),
		Frees:             int(b.frees.Load()),
		Maps:              int(b.maps.Load()),
		Unmaps:            int(b.unmaps.Load()),
		ForwardBlits:      int(b.forwardBlits.Load()),
		ReverseBlits:      int(b.reverseBlits.Load()),
		CompressionTables: int(b.compressionTables.Load()),
	}
}

// PoolUsage returns the live bytes and object count of a pool
func (b *Backend) PoolUsage(pool hw.Pool) (bytes int, objects int) {
	return b.budget.usage(pool)
}

// LiveObjects returns the number of objects that have not been freed
func (b *Backend) LiveObjects() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.objects.Count()
}

// Object returns the description of a live object
func (b *Backend) Object(handle backend.Handle) (backend.Object, bool) {
	obj, err := b.lookup(handle)
	if err != nil {
		return backend.Object{}, false
	}
	return obj.Object, true
}

// Contents returns the raw bytes backing an object, in the object's own layout
func (b *Backend) Contents(handle backend.Handle) ([]byte, bool) {
	obj, err := b.lookup(handle)
	if err != nil {
		return nil, false
	}
	return obj.data, true
}

// MapCount returns the number of outstanding maps of an object
func (b *Backend) MapCount(handle backend.Handle) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	obj, ok := b.objects.Get(handle)
	if !ok {
		return 0
	}
	return obj.mapCount
}
