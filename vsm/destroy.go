package vsm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/memutils"
	"github.com/vkngwrapper/mediamem/memutils/heap"
	"golang.org/x/exp/slog"
)

// Destroy releases a surface, buffer, image or context. Destroying a context destroys every
// resource it owns. Destroying NullHandle, or a handle that was already destroyed, does nothing.
// Buffers that back an image cannot be destroyed directly, destroy the image instead.
func (a *Allocator) Destroy(handle Handle) error {
	a.logger.Debug("Allocator::Destroy")

	switch handle.Kind() {
	case KindSurface:
		return a.destroySurface(handle)
	case KindBuffer:
		buffer, ok := a.buffers.Get(handle.slot())
		if !ok {
			return nil
		}
		if buffer.image != NullHandle {
			return errors.Mark(errors.Newf("%s backs %s and is destroyed with it", handle, buffer.image), memutils.ErrInvalidArgument)
		}
		return a.destroyBuffer(buffer)
	case KindImage:
		return a.destroyImage(handle)
	case KindContext:
		return a.destroyContext(handle)
	case KindInvalid:
		return nil
	}

	return nil
}

// releaseSlot frees a heap slot. It returns false if another caller already released it, in which
// case that caller owns the teardown.
func releaseSlot[T any](h *heap.Heap[T], handle Handle) (bool, error) {
	err := h.Release(handle.slot())
	if errors.Is(err, memutils.ErrAlreadyReleased) || errors.Is(err, memutils.ErrOutOfRange) {
		return false, nil
	}
	return err == nil, err
}

func (a *Allocator) releaseFromOwner(owner Handle, member Handle) {
	if owner == NullHandle {
		return
	}

	context, ok := a.contexts.Get(owner.slot())
	if ok {
		context.release(member)
	}
}

func (a *Allocator) destroySurface(handle Handle) error {
	surface, ok := a.surfaces.Get(handle.slot())
	if !ok {
		return nil
	}

	released, err := releaseSlot(a.surfaces, handle)
	if !released {
		return err
	}

	// The slot may be reused for an unrelated surface, so no buffer may keep pointing at it
	a.buffers.Visit(func(_ heap.SlotID, buffer *Buffer) bool {
		buffer.detachFrom(handle)
		return true
	})

	var result error

	surface.lockMutex.Lock()
	if surface.cpu.mapped {
		a.logger.Error("Allocator::Destroy surface destroyed while mapped",
			slog.String("surface", handle.String()),
			slog.Int("references", surface.cpu.counter.references()),
		)
		result = errors.CombineErrors(result, a.unmapSurface(surface))
	}
	surface.cpu.counter.reset()
	surface.lockMutex.Unlock()

	a.untrack(surface.object.Handle)
	result = errors.CombineErrors(result, a.freeObject(surface.object))
	surface.external = nil

	a.releaseFromOwner(surface.owner, handle)
	return result
}

// destroyBuffer tears down a buffer whether or not it backs an image
func (a *Allocator) destroyBuffer(buffer *Buffer) error {
	released, err := releaseSlot(a.buffers, buffer.handle)
	if !released {
		return err
	}

	var result error

	buffer.lockMutex.Lock()
	if buffer.cpu.mapped {
		a.logger.Error("Allocator::Destroy buffer destroyed while mapped",
			slog.String("buffer", buffer.handle.String()),
			slog.Int("references", buffer.cpu.counter.references()),
		)
		result = errors.CombineErrors(result, a.unmapBuffer(buffer))
	}
	buffer.cpu.counter.reset()
	buffer.lockMutex.Unlock()

	a.untrack(buffer.object.Handle)
	result = errors.CombineErrors(result, a.freeObject(buffer.object))

	a.releaseFromOwner(buffer.owner, buffer.handle)
	return result
}

func (a *Allocator) destroyImage(handle Handle) error {
	image, ok := a.images.Get(handle.slot())
	if !ok {
		return nil
	}

	released, err := releaseSlot(a.images, handle)
	if !released {
		return err
	}

	err = a.destroyBuffer(image.buffer)
	a.releaseFromOwner(image.owner, handle)
	return err
}

func (a *Allocator) destroyContext(handle Handle) error {
	context, ok := a.contexts.Get(handle.slot())
	if !ok {
		return nil
	}

	members := context.close()

	var result error
	for _, member := range members {
		result = errors.CombineErrors(result, a.Destroy(member))
	}

	_, err := releaseSlot(a.contexts, handle)
	return errors.CombineErrors(result, err)
}

// Close destroys every remaining resource and context. Resources that are still alive at this
// point are reported as leaks. The allocator cannot create resources after Close.
func (a *Allocator) Close() error {
	a.logger.Debug("Allocator::Close")

	if a.closed.Swap(true) {
		return nil
	}

	leaked := a.surfaces.InUse() + a.buffers.InUse() + a.images.InUse()
	if leaked > 0 {
		a.logger.Warn("Allocator::Close resources were not destroyed before close",
			slog.Int("surfaces", a.surfaces.InUse()),
			slog.Int("buffers", a.buffers.InUse()),
			slog.Int("images", a.images.InUse()),
			slog.Int("contexts", a.contexts.InUse()),
		)
	}

	var result error

	a.contexts.Visit(func(id heap.SlotID, _ *Context) bool {
		result = errors.CombineErrors(result, a.destroyContext(makeHandle(KindContext, id)))
		return true
	})
	a.images.Visit(func(id heap.SlotID, _ *Image) bool {
		result = errors.CombineErrors(result, a.destroyImage(makeHandle(KindImage, id)))
		return true
	})
	a.surfaces.Visit(func(id heap.SlotID, _ *Surface) bool {
		result = errors.CombineErrors(result, a.destroySurface(makeHandle(KindSurface, id)))
		return true
	})
	a.buffers.Visit(func(_ heap.SlotID, buffer *Buffer) bool {
		result = errors.CombineErrors(result, a.destroyBuffer(buffer))
		return true
	})

	if a.tracker.count() > 0 {
		for _, record := range a.tracker.snapshot() {
			a.logger.Error("Allocator::Close backend object was never freed",
				slog.Uint64("object", uint64(record.object)),
				slog.String("resource", record.resource.String()),
				slog.String("category", record.category.String()),
			)
		}
		result = errors.CombineErrors(result, errors.Newf("%d backend objects were never freed", a.tracker.count()))
	}

	return result
}
