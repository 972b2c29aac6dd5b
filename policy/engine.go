package policy

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
	"golang.org/x/exp/slog"
)

// Decision is the full result of a placement decision
type Decision struct {
	Pool         hw.Pool
	LocalOnly    bool
	NonLocalOnly bool
}

// Engine decides which memory pool a resource is placed in. It holds no state besides its
// logger, and a single Engine may be shared by any number of goroutines.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an Engine that reports diagnostics through logger
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// DecidePool returns the pool desc must be placed in and sets desc.LocalOnly and desc.NonLocalOnly
// to match it.
//
// On hardware without FeatureLocalMemory the generic pool is returned and desc is left untouched.
// Otherwise one dimensional linear resources default to system memory and everything else to
// device memory. A preferred pool of PoolDevice or PoolSystem overrides the default. Hardware
// errata are applied last, in the order they are listed in hw.WorkaroundFlags.
//
// isServer should be true when the allocator serves a shared server context.
func (e *Engine) DecidePool(platform *hw.Platform, desc *ResourceDescriptor, preferred hw.Pool, isServer bool) (hw.Pool, error) {
	if platform == nil || desc == nil {
		err := errors.Mark(errors.New("memory policy requires both a platform and a resource descriptor"), memutils.ErrInvalidArgument)
		e.logger.Error("Engine::DecidePool rejected arguments",
			slog.Bool("nilPlatform", platform == nil),
			slog.Bool("nilDescriptor", desc == nil),
		)
		return hw.PoolGeneric, err
	}

	if !platform.HasFeature(hw.FeatureLocalMemory) {
		return hw.PoolGeneric, nil
	}

	pool := hw.PoolDevice
	if desc.Type == ResourceBuffer1D && desc.Tiling == hw.TilingNone {
		pool = hw.PoolSystem
	}

	if preferred == hw.PoolDevice || preferred == hw.PoolSystem {
		pool = preferred
	}

	pool = e.applyWorkarounds(platform, desc, pool, isServer)

	desc.LocalOnly = pool == hw.PoolDevice
	desc.NonLocalOnly = pool == hw.PoolSystem

	if desc.LocalOnly && desc.NotLockable() && desc.CPUAccess() {
		e.logger.Warn("Engine::DecidePool placed a CPU-accessed resource in local-only memory while it is marked not lockable",
			slog.String("category", desc.Category.String()),
			slog.String("format", desc.Format.String()),
			slog.Int("width", desc.Width),
			slog.Int("height", desc.Height),
		)
	}

	return pool, nil
}

func (e *Engine) applyWorkarounds(platform *hw.Platform, desc *ResourceDescriptor, pool hw.Pool, isServer bool) hw.Pool {
	if platform.HasWorkaround(hw.WaForceLocalMemory) {
		pool = hw.PoolDevice
	}

	if platform.HasWorkaround(hw.WaStagingInSystemMemory) && desc.Category == hw.CategoryStaging {
		pool = hw.PoolSystem
	}

	if isServer && platform.HasWorkaround(hw.WaServerCommandBufferInSystemMemory) && desc.Category == hw.CategoryCommandBuffer {
		pool = hw.PoolSystem
	}

	return pool
}

// Decide runs DecidePool and returns the pool together with the flags it wrote to desc
func (e *Engine) Decide(platform *hw.Platform, desc *ResourceDescriptor, preferred hw.Pool, isServer bool) (Decision, error) {
	pool, err := e.DecidePool(platform, desc, preferred, isServer)
	if err != nil {
		return Decision{Pool: pool}, err
	}

	return Decision{
		Pool:         pool,
		LocalOnly:    desc.LocalOnly,
		NonLocalOnly: desc.NonLocalOnly,
	}, nil
}
