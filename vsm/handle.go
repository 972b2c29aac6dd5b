package vsm

import (
	"fmt"

	"github.com/vkngwrapper/mediamem/memutils/heap"
)

// Kind is the type of resource a Handle refers to
type Kind uint32

const (
	KindInvalid Kind = iota
	KindSurface
	KindBuffer
	KindImage
	KindContext
)

var kindMapping = map[Kind]string{
	KindInvalid: "KindInvalid",
	KindSurface: "KindSurface",
	KindBuffer:  "KindBuffer",
	KindImage:   "KindImage",
	KindContext: "KindContext",
}

func (k Kind) String() string {
	str, ok := kindMapping[k]
	if !ok {
		return "unknown"
	}
	return str
}

const (
	kindShift = 28
	slotMask  = 1<<kindShift - 1

	// maxHeapSlots is the number of slots a single heap can address through a Handle
	maxHeapSlots = slotMask + 1
)

// Handle is the identifier handed to callers for every resource the allocator creates. The top bits
// carry the resource Kind and the low bits the id of the heap slot the resource occupies. A Handle
// stays valid until the resource is destroyed, after which its slot, and so its value, may be
// handed out again.
type Handle uint32

// NullHandle never refers to a resource
const NullHandle Handle = 0

func makeHandle(kind Kind, slot heap.SlotID) Handle {
	return Handle(uint32(kind)<<kindShift | uint32(slot)&slotMask)
}

func (h Handle) Kind() Kind {
	return Kind(uint32(h) >> kindShift)
}

func (h Handle) slot() heap.SlotID {
	return heap.SlotID(uint32(h) & slotMask)
}

func (h Handle) String() string {
	if h == NullHandle {
		return "NullHandle"
	}
	return fmt.Sprintf("%s(%d)", h.Kind(), h.slot())
}
