package vsm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/backend"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
	"github.com/vkngwrapper/mediamem/memutils/heap"
	"github.com/vkngwrapper/mediamem/policy"
	"golang.org/x/exp/slog"
)

const (
	// defaultHeapIncrement is the number of slots a resource heap grows by when none is provided
	// via CreateOptions
	defaultHeapIncrement int = 64
)

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags

	// HeapIncrement is the number of slots each resource heap grows by when it is full
	HeapIncrement int
	// HeapMaxSlots caps the number of slots in each resource heap. Creating a resource once its
	// heap is full fails with memutils.ErrHeapExhausted. Zero means the heap is only limited by
	// the number of slots a Handle can address.
	HeapMaxSlots int

	// ServerContext indicates the allocator serves a shared server context, which enables the
	// server-only placement errata
	ServerContext bool
}

// New creates a new Allocator
//
// logger - Receives trace output at Debug level and caller misuse diagnostics at Warn and Error
//
// memoryBackend - The backend memory objects are requested from
//
// platform - The features and errata of the hardware
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, memoryBackend backend.Backend, platform hw.Platform, options CreateOptions) (*Allocator, error) {
	if logger == nil || memoryBackend == nil {
		return nil, errors.Mark(errors.New("an allocator requires a logger and a backend"), memutils.ErrInvalidArgument)
	}

	useMutex := options.Flags&AllocatorCreateExternallySynchronized == 0

	increment := options.HeapIncrement
	if increment <= 0 {
		increment = defaultHeapIncrement
	}

	maxSlots := options.HeapMaxSlots
	if maxSlots <= 0 || maxSlots > maxHeapSlots {
		maxSlots = maxHeapSlots
	}

	allocator := &Allocator{
		useMutex:    useMutex,
		logger:      logger,
		backend:     memoryBackend,
		platform:    platform,
		policy:      policy.NewEngine(logger),
		createFlags: options.Flags,
		isServer:    options.ServerContext,

		surfaces: heap.New[Surface](useMutex, increment, maxSlots),
		buffers:  heap.New[Buffer](useMutex, increment, maxSlots),
		images:   heap.New[Image](useMutex, increment, maxSlots),
		contexts: heap.New[Context](useMutex, increment, maxSlots),

		tracker: newObjectTracker(useMutex, options.Flags&AllocatorCreateVerboseTracking != 0),
	}

	logger.Debug("Allocator::New",
		slog.String("features", platform.Features.String()),
		slog.String("workarounds", platform.Workarounds.String()),
		slog.String("flags", options.Flags.String()),
	)

	return allocator, nil
}
