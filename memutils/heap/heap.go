package heap

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/internal/utils"
	"github.com/vkngwrapper/mediamem/memutils"
)

// SlotID identifies a slot within a Heap. The id of an occupied slot is the identifier handed to
// external callers and stays valid until that specific slot is released.
type SlotID uint32

const (
	// DefaultIncrement is the number of slots a Heap grows by when its free list is empty
	DefaultIncrement int = 8

	noSlot int32 = -1
)

type element[T any] struct {
	id       SlotID
	occupant *T
	nextFree int32
}

// Heap is a growable array-backed free list of fixed-size slots. Each slot is either free, in which
// case it is linked into the free list through its nextFree index, or occupied by a pointer to a live
// object. The heap only ever grows: storage may move when it grows, but slot ids never change.
type Heap[T any] struct {
	mutex utils.OptionalMutex

	elements  []element[T]
	firstFree int32
	inUse     int
	increment int
	maxSlots  int
}

// New creates an empty heap. increment is the number of slots added each time the heap runs out of
// free slots; a value less than 1 selects DefaultIncrement. maxSlots caps the number of slots the heap
// may ever hold; a value less than 1 means the heap is only bounded by the id space.
func New[T any](useMutex bool, increment int, maxSlots int) *Heap[T] {
	if increment < 1 {
		increment = DefaultIncrement
	}
	if maxSlots < 1 || maxSlots > math.MaxInt32 {
		maxSlots = math.MaxInt32
	}

	return &Heap[T]{
		mutex:     utils.OptionalMutex{UseMutex: useMutex},
		firstFree: noSlot,
		increment: increment,
		maxSlots:  maxSlots,
	}
}

func (h *Heap[T]) grow() error {
	oldCount := len(h.elements)
	if oldCount >= h.maxSlots {
		return errors.Mark(errors.Newf("heap cannot grow beyond %d slots", h.maxSlots), memutils.ErrHeapExhausted)
	}

	newCount := oldCount + h.increment
	if newCount > h.maxSlots {
		newCount = h.maxSlots
	}

	grown := make([]element[T], newCount)
	copy(grown, h.elements)

	// Link the new slots in id order, ahead of whatever was already free
	for i := oldCount; i < newCount; i++ {
		grown[i].id = SlotID(i)
		grown[i].nextFree = int32(i + 1)
	}
	grown[newCount-1].nextFree = h.firstFree
	h.firstFree = int32(oldCount)
	h.elements = grown

	return nil
}

// Allocate pops a slot from the free list, growing the heap if the list is empty, and stores
// occupant in it. occupant must not be nil.
func (h *Heap[T]) Allocate(occupant *T) (SlotID, error) {
	if occupant == nil {
		return 0, errors.Mark(errors.New("attempted to place a nil occupant in a heap slot"), memutils.ErrInvalidArgument)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.firstFree == noSlot {
		err := h.grow()
		if err != nil {
			return 0, err
		}
	}

	elem := &h.elements[h.firstFree]
	h.firstFree = elem.nextFree
	elem.nextFree = noSlot
	elem.occupant = occupant
	h.inUse++

	memutils.DebugValidate(h)
	return elem.id, nil
}

// Release clears the occupant of the slot and pushes it onto the head of the free list
func (h *Heap[T]) Release(id SlotID) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if int(id) >= len(h.elements) {
		return errors.Mark(errors.Newf("slot %d is outside of the %d allocated slots", id, len(h.elements)), memutils.ErrOutOfRange)
	}

	elem := &h.elements[id]
	if elem.occupant == nil {
		return errors.Mark(errors.Newf("slot %d has already been released", id), memutils.ErrAlreadyReleased)
	}

	elem.occupant = nil
	elem.nextFree = h.firstFree
	h.firstFree = int32(id)
	h.inUse--

	memutils.DebugValidate(h)
	return nil
}

// Get returns the occupant of a slot, if the slot is occupied
func (h *Heap[T]) Get(id SlotID) (*T, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if int(id) >= len(h.elements) {
		return nil, false
	}

	occupant := h.elements[id].occupant
	return occupant, occupant != nil
}

// Visit calls visitor for every occupied slot in id order until visitor returns false. The heap is
// not locked while visitor runs, so visitor may release slots.
func (h *Heap[T]) Visit(visitor func(id SlotID, occupant *T) bool) {
	h.mutex.Lock()
	occupied := make([]element[T], 0, h.inUse)
	for _, elem := range h.elements {
		if elem.occupant != nil {
			occupied = append(occupied, elem)
		}
	}
	h.mutex.Unlock()

	for _, elem := range occupied {
		if !visitor(elem.id, elem.occupant) {
			return
		}
	}
}

// InUse returns the number of occupied slots
func (h *Heap[T]) InUse() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.inUse
}

// Capacity returns the number of slots, free or occupied, the heap has grown to
func (h *Heap[T]) Capacity() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.elements)
}

// Validate checks that the free list and the occupied slots partition the heap
func (h *Heap[T]) Validate() error {
	seen := make([]bool, len(h.elements))
	freeCount := 0

	for index := h.firstFree; index != noSlot; index = h.elements[index].nextFree {
		if int(index) < 0 || int(index) >= len(h.elements) {
			return errors.Newf("free list links to slot %d, outside of %d slots", index, len(h.elements))
		}
		if seen[index] {
			return errors.Newf("free list contains a cycle at slot %d", index)
		}
		seen[index] = true

		if h.elements[index].occupant != nil {
			return errors.Newf("slot %d is on the free list but is occupied", index)
		}
		freeCount++
	}

	occupiedCount := 0
	for i, elem := range h.elements {
		if elem.id != SlotID(i) {
			return errors.Newf("slot %d reports id %d", i, elem.id)
		}
		if elem.occupant != nil {
			occupiedCount++
		} else if !seen[i] {
			return errors.Newf("slot %d is free but is not on the free list", i)
		}
	}

	if occupiedCount != h.inUse {
		return errors.Newf("heap reports %d slots in use but %d are occupied", h.inUse, occupiedCount)
	}
	if occupiedCount+freeCount != len(h.elements) {
		return errors.Newf("%d occupied and %d free slots do not add up to %d slots", occupiedCount, freeCount, len(h.elements))
	}

	return nil
}
