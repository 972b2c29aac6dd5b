package simulated

import "github.com/vkngwrapper/core/v2/common"

// FaultFlags select backend operations that fail on purpose, so callers can exercise their
// error paths
type FaultFlags int32

var faultFlagsMapping = common.NewFlagStringMapping[FaultFlags]()

func (f FaultFlags) Register(str string) {
	faultFlagsMapping.Register(f, str)
}
func (f FaultFlags) String() string {
	return faultFlagsMapping.FlagsToString(f)
}

const (
	FaultAllocate FaultFlags = 1 << iota
	FaultImport
	FaultMap
	// FaultBlit fails every blit
	FaultBlit
	// FaultReverseBlit fails only linear to tiled blits
	FaultReverseBlit
	// FaultLinearAllocate fails only allocations of linear objects, which is how the shadow
	// buffers of the hardware swizzle path are requested
	FaultLinearAllocate
)

func init() {
	FaultAllocate.Register("FaultAllocate")
	FaultImport.Register("FaultImport")
	FaultMap.Register("FaultMap")
	FaultBlit.Register("FaultBlit")
	FaultReverseBlit.Register("FaultReverseBlit")
	FaultLinearAllocate.Register("FaultLinearAllocate")
}
