package vsm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/backend"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
	"github.com/vkngwrapper/mediamem/memutils/swizzle"
	"golang.org/x/exp/slog"
)

// minHardwareSwizzleDimension is the smallest width and height the copy engine can de-tile
const minHardwareSwizzleDimension int = 32

// accessStrategy is how a locked resource was made visible to the CPU
type accessStrategy uint8

const (
	accessNone accessStrategy = iota
	// accessDirect maps untiled memory as-is
	accessDirect
	// accessHardwareSwizzle de-tiles into a linear shadow buffer with the copy engine
	accessHardwareSwizzle
	// accessSoftwareSwizzle maps the tiled memory and de-tiles it into a CPU shadow region
	accessSoftwareSwizzle
)

var accessStrategyMapping = map[accessStrategy]string{
	accessNone:            "accessNone",
	accessDirect:          "accessDirect",
	accessHardwareSwizzle: "accessHardwareSwizzle",
	accessSoftwareSwizzle: "accessSoftwareSwizzle",
}

func (s accessStrategy) String() string {
	str, ok := accessStrategyMapping[s]
	if !ok {
		return "unknown"
	}
	return str
}

// cpuAccess is the lock state of a surface or buffer. It is guarded by the owning resource's
// lockMutex.
type cpuAccess struct {
	counter  lockCounter
	mapped   bool
	strategy accessStrategy

	// view is the memory handed to lockers
	view []byte

	// mapping is the mapped tiled memory of a software swizzle
	mapping []byte
	// shadowRegion is the CPU shadow of a software swizzle, including guard bytes
	shadowRegion []byte
	// shadow is the linear backend object of a hardware swizzle
	shadow backend.Object

	shadowBytes int
}

func (c *cpuAccess) clear() {
	c.mapped = false
	c.strategy = accessNone
	c.view = nil
	c.mapping = nil
	c.shadowRegion = nil
	c.shadow = backend.Object{}
	c.shadowBytes = 0
}

// Lock makes a surface, buffer or image visible to the CPU and returns its contents in linear
// order. Only the first of a series of nested locks maps the resource, later locks return the same
// memory and increase the reference count. A failed lock returns nil and leaves the reference count
// unchanged.
func (a *Allocator) Lock(handle Handle, access AccessFlags) ([]byte, error) {
	a.logger.Debug("Allocator::Lock")

	if access == 0 || access&^accessAll != 0 {
		return nil, errors.Mark(errors.Newf("invalid access flags %s", access), memutils.ErrInvalidArgument)
	}

	switch handle.Kind() {
	case KindSurface:
		surface, ok := a.surfaces.Get(handle.slot())
		if ok {
			return a.lockSurface(surface)
		}
	case KindBuffer:
		buffer, ok := a.buffers.Get(handle.slot())
		if ok {
			return a.lockBuffer(buffer)
		}
	case KindImage:
		image, ok := a.images.Get(handle.slot())
		if ok {
			return a.lockBuffer(image.buffer)
		}
	case KindContext, KindInvalid:
		return nil, errors.Mark(errors.Newf("%s cannot be locked", handle), memutils.ErrInvalidArgument)
	}

	return nil, errors.Mark(errors.Newf("%s does not exist", handle), memutils.ErrInvalidArgument)
}

// Unlock releases one lock on a surface, buffer or image. The last unlock writes CPU changes back
// to the resource and unmaps it. Unlocking a resource that is not locked does nothing. Unlocking a
// handle that does not refer to a live resource fails with memutils.ErrInvalidArgument.
func (a *Allocator) Unlock(handle Handle) error {
	a.logger.Debug("Allocator::Unlock")

	switch handle.Kind() {
	case KindSurface:
		surface, ok := a.surfaces.Get(handle.slot())
		if ok {
			return a.unlockSurface(surface)
		}
	case KindBuffer:
		buffer, ok := a.buffers.Get(handle.slot())
		if ok {
			return a.unlockBuffer(buffer)
		}
	case KindImage:
		image, ok := a.images.Get(handle.slot())
		if ok {
			return a.unlockBuffer(image.buffer)
		}
	case KindContext, KindInvalid:
		return errors.Mark(errors.Newf("%s cannot be unlocked", handle), memutils.ErrInvalidArgument)
	}

	return errors.Mark(errors.Newf("%s does not exist", handle), memutils.ErrInvalidArgument)
}

func (a *Allocator) lockBuffer(buffer *Buffer) ([]byte, error) {
	buffer.lockMutex.Lock()
	defer buffer.lockMutex.Unlock()

	if buffer.cpu.counter.onLock() == transitionNone {
		buffer.cpu.counter.commitLock()
		return buffer.cpu.view, nil
	}

	if buffer.localOnly && buffer.usage&hw.UsageNotLockable != 0 {
		a.logger.Warn("Allocator::Lock locking a local-only buffer that is marked not lockable", slog.String("buffer", buffer.handle.String()))
	}

	view, err := a.mapDirect(&buffer.cpu, buffer.object.Handle, buffer.requestedSize)
	if err != nil {
		return nil, err
	}

	buffer.cpu.mapped = true
	buffer.cpu.view = view
	buffer.cpu.counter.commitLock()
	a.counters.addMapping(buffer.pool, 0)

	return view, nil
}

func (a *Allocator) unlockBuffer(buffer *Buffer) error {
	buffer.lockMutex.Lock()
	defer buffer.lockMutex.Unlock()

	switch buffer.cpu.counter.onUnlock() {
	case transitionIgnore:
		a.logger.Debug("Allocator::Unlock ignored an unlock of an unlocked buffer", slog.String("buffer", buffer.handle.String()))
		return nil
	case transitionNone:
		buffer.cpu.counter.commitUnlock()
		return nil
	}

	err := a.unmapBuffer(buffer)
	buffer.cpu.counter.commitUnlock()
	return err
}

func (a *Allocator) unmapBuffer(buffer *Buffer) error {
	err := a.backend.Unmap(buffer.object.Handle)
	a.counters.removeMapping(buffer.pool, 0)
	buffer.cpu.clear()

	if err != nil {
		return errors.Wrapf(err, "failed to unmap %s", buffer.handle)
	}
	return nil
}

func (a *Allocator) mapDirect(cpu *cpuAccess, object backend.Handle, size int) ([]byte, error) {
	data, err := a.backend.Map(object)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to map object %d", object)
	}

	if len(data) < size {
		unmapErr := a.backend.Unmap(object)
		return nil, errors.CombineErrors(
			errors.Newf("object %d mapped %d bytes, expected at least %d", object, len(data), size),
			unmapErr,
		)
	}

	cpu.strategy = accessDirect
	return data[:size:size], nil
}

// surfaceAccess decides how a surface is made visible to the CPU
func (a *Allocator) surfaceAccess(surface *Surface) accessStrategy {
	if surface.tiling == hw.TilingNone {
		return accessDirect
	}

	if a.platform.HasFeature(hw.FeatureCopyEngineSwizzle) && !hardwareSwizzleDisqualified(surface) {
		return accessHardwareSwizzle
	}

	return accessSoftwareSwizzle
}

func hardwareSwizzleDisqualified(surface *Surface) bool {
	return surface.width < minHardwareSwizzleDimension ||
		surface.height < minHardwareSwizzleDimension ||
		!surface.formatInfo.CopyEngine
}

func (a *Allocator) lockSurface(surface *Surface) ([]byte, error) {
	surface.lockMutex.Lock()
	defer surface.lockMutex.Unlock()

	if surface.cpu.counter.onLock() == transitionNone {
		surface.cpu.counter.commitLock()
		return surface.cpu.view, nil
	}

	if surface.localOnly && surface.usage&hw.UsageNotLockable != 0 {
		a.logger.Warn("Allocator::Lock locking a local-only surface that is marked not lockable",
			slog.String("surface", surface.handle.String()),
			slog.String("format", surface.format.String()),
		)
	}

	view, err := a.mapSurface(surface)
	if err != nil {
		return nil, err
	}

	surface.cpu.mapped = true
	surface.cpu.view = view
	surface.cpu.counter.commitLock()
	a.counters.addMapping(surface.pool, surface.cpu.shadowBytes)

	return view, nil
}

func (a *Allocator) mapSurface(surface *Surface) ([]byte, error) {
	strategy := a.surfaceAccess(surface)

	if strategy == accessHardwareSwizzle {
		view, err := a.lockHardwareSwizzle(surface)
		if err == nil {
			return view, nil
		}

		a.logger.Warn("Allocator::Lock copy engine de-tile failed, falling back to software swizzle",
			slog.String("surface", surface.handle.String()),
			slog.Any("error", err),
		)
		strategy = accessSoftwareSwizzle
	}

	if strategy == accessDirect {
		return a.mapDirect(&surface.cpu, surface.object.Handle, surface.size)
	}

	return a.lockSoftwareSwizzle(surface)
}

func (a *Allocator) lockHardwareSwizzle(surface *Surface) ([]byte, error) {
	shadow, err := a.backend.Allocate(backend.AllocateRequest{
		Name:       surface.name,
		Pool:       hw.PoolSystem,
		Properties: hw.PoolSystem.PropertyFlags(),
		Tiling:     hw.TilingNone,
		Pitch:      surface.size,
		Rows:       1,
		Alignment:  bufferAlignment,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate a shadow buffer")
	}

	err = a.acceptObject(shadow, surface.size, 1)
	if err != nil {
		return nil, errors.Wrap(err, "the shadow buffer cannot hold the surface")
	}
	a.track(a.tracker.newRecord(shadow, surface.handle, hw.CategoryShadow, surface.name, hw.FormatUndefined, 0, 0))

	teardown := func(cause error) error {
		return errors.CombineErrors(cause, a.freeShadowObject(shadow))
	}

	err = a.backend.Blit(surface.object.Handle, shadow.Handle, true)
	if err != nil {
		return nil, teardown(errors.Wrap(err, "failed to de-tile into the shadow buffer"))
	}

	data, err := a.backend.Map(shadow.Handle)
	if err != nil {
		return nil, teardown(errors.Wrap(err, "failed to map the shadow buffer"))
	}
	if len(data) < surface.size {
		unmapErr := a.backend.Unmap(shadow.Handle)
		return nil, teardown(errors.CombineErrors(errors.Newf("shadow buffer mapped %d bytes, expected %d", len(data), surface.size), unmapErr))
	}

	surface.cpu.strategy = accessHardwareSwizzle
	surface.cpu.shadow = shadow
	surface.cpu.shadowBytes = shadow.Size
	return data[:surface.size:surface.size], nil
}

func (a *Allocator) freeShadowObject(shadow backend.Object) error {
	a.untrack(shadow.Handle)
	return a.freeObject(shadow)
}

func (a *Allocator) lockSoftwareSwizzle(surface *Surface) ([]byte, error) {
	data, err := a.backend.Map(surface.object.Handle)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to map %s for a software swizzle", surface.handle), memutils.ErrSwizzleFailed)
	}

	shadow := make([]byte, surface.size+memutils.DebugMargin)
	memutils.WriteMagicValue(shadow, surface.size)

	err = swizzle.Deswizzle(shadow, data, surface.swizzleLayout())
	if err != nil {
		unmapErr := a.backend.Unmap(surface.object.Handle)
		return nil, errors.CombineErrors(errors.Wrapf(err, "failed to de-tile %s", surface.handle), unmapErr)
	}

	surface.cpu.strategy = accessSoftwareSwizzle
	surface.cpu.mapping = data
	surface.cpu.shadowRegion = shadow
	surface.cpu.shadowBytes = len(shadow)
	return shadow[:surface.size:surface.size], nil
}

func (a *Allocator) unlockSurface(surface *Surface) error {
	surface.lockMutex.Lock()
	defer surface.lockMutex.Unlock()

	switch surface.cpu.counter.onUnlock() {
	case transitionIgnore:
		a.logger.Debug("Allocator::Unlock ignored an unlock of an unlocked surface", slog.String("surface", surface.handle.String()))
		return nil
	case transitionNone:
		surface.cpu.counter.commitUnlock()
		return nil
	}

	err := a.unmapSurface(surface)
	surface.cpu.counter.commitUnlock()
	return err
}

// unmapSurface writes the CPU view back to the surface and releases the mapping. The mapping is
// released even when the write back fails.
func (a *Allocator) unmapSurface(surface *Surface) error {
	var err error

	switch surface.cpu.strategy {
	case accessDirect:
		err = a.backend.Unmap(surface.object.Handle)
	case accessHardwareSwizzle:
		err = a.unlockHardwareSwizzle(surface)
	case accessSoftwareSwizzle:
		err = a.unlockSoftwareSwizzle(surface)
	default:
		err = errors.Newf("%s is mapped with unknown strategy %s", surface.handle, surface.cpu.strategy)
	}

	a.counters.removeMapping(surface.pool, surface.cpu.shadowBytes)
	surface.cpu.clear()

	if err != nil {
		a.logger.Error("Allocator::Unlock failed to write CPU changes back", slog.String("surface", surface.handle.String()), slog.Any("error", err))
	}
	return err
}

func (a *Allocator) unlockHardwareSwizzle(surface *Surface) error {
	shadow := surface.cpu.shadow
	var result error

	err := a.backend.Blit(shadow.Handle, surface.object.Handle, false)
	if err != nil {
		a.logger.Warn("Allocator::Unlock copy engine re-tile failed, falling back to software swizzle",
			slog.String("surface", surface.handle.String()),
			slog.Any("error", err),
		)

		result = a.retileInSoftware(surface, surface.cpu.view)
	}

	err = a.backend.Unmap(shadow.Handle)
	if err != nil {
		result = errors.CombineErrors(result, errors.Wrap(err, "failed to unmap the shadow buffer"))
	}

	return errors.CombineErrors(result, a.freeShadowObject(shadow))
}

func (a *Allocator) retileInSoftware(surface *Surface, linear []byte) error {
	data, err := a.backend.Map(surface.object.Handle)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to map %s for a software swizzle", surface.handle), memutils.ErrSwizzleFailed)
	}

	err = swizzle.Swizzle(data, linear, surface.swizzleLayout())
	unmapErr := a.backend.Unmap(surface.object.Handle)

	return errors.CombineErrors(err, unmapErr)
}

func (a *Allocator) unlockSoftwareSwizzle(surface *Surface) error {
	if !memutils.ValidateMagicValue(surface.cpu.shadowRegion, surface.size) {
		a.logger.Error("Allocator::Unlock detected a write past the end of a locked surface", slog.String("surface", surface.handle.String()))
	}

	err := swizzle.Swizzle(surface.cpu.mapping, surface.cpu.shadowRegion, surface.swizzleLayout())
	unmapErr := a.backend.Unmap(surface.object.Handle)

	return errors.CombineErrors(err, unmapErr)
}
