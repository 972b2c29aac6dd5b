package hw

import "github.com/vkngwrapper/core/v2/common"

// FeatureFlags describes the capabilities of the hardware the allocator is driving
type FeatureFlags int32

var featureFlagsMapping = common.NewFlagStringMapping[FeatureFlags]()

func (f FeatureFlags) Register(str string) {
	featureFlagsMapping.Register(f, str)
}
func (f FeatureFlags) String() string {
	return featureFlagsMapping.FlagsToString(f)
}

const (
	// FeatureLocalMemory indicates the device has its own local memory, separate from system memory.
	// Without it every resource lives in generic video memory and no placement policy applies.
	FeatureLocalMemory FeatureFlags = 1 << iota
	// FeatureLosslessCompression indicates Y-tiled surfaces may be losslessly compressed
	FeatureLosslessCompression
	// FeatureCopyEngineSwizzle indicates the copy engine can de-tile a surface into linear memory
	// and tile it back, which lets CPU locks avoid a software swizzle
	FeatureCopyEngineSwizzle
)

func init() {
	FeatureLocalMemory.Register("FeatureLocalMemory")
	FeatureLosslessCompression.Register("FeatureLosslessCompression")
	FeatureCopyEngineSwizzle.Register("FeatureCopyEngineSwizzle")
}

// WorkaroundFlags are hardware errata that layer exceptions on top of the placement and
// compression policies
type WorkaroundFlags int32

var workaroundFlagsMapping = common.NewFlagStringMapping[WorkaroundFlags]()

func (f WorkaroundFlags) Register(str string) {
	workaroundFlagsMapping.Register(f, str)
}
func (f WorkaroundFlags) String() string {
	return workaroundFlagsMapping.FlagsToString(f)
}

const (
	// WaForceLocalMemory places every resource in device-local memory regardless of shape or
	// caller preference
	WaForceLocalMemory WorkaroundFlags = 1 << iota
	// WaStagingInSystemMemory keeps CategoryStaging resources in system memory, even when
	// WaForceLocalMemory is active
	WaStagingInSystemMemory
	// WaServerCommandBufferInSystemMemory places CategoryCommandBuffer resources in system memory
	// when the allocator serves a server (shared) context
	WaServerCommandBufferInSystemMemory
	// WaDisableCompression10BitDecode disables compression of 10-bit formats written by the decoder
	WaDisableCompression10BitDecode
	// WaDisablePackedYUVCompression disables compression of packed 4:2:2 formats
	WaDisablePackedYUVCompression
	// WaDisableRenderCompression disables render-target compression entirely, media compression
	// is unaffected
	WaDisableRenderCompression
)

func init() {
	WaForceLocalMemory.Register("WaForceLocalMemory")
	WaStagingInSystemMemory.Register("WaStagingInSystemMemory")
	WaServerCommandBufferInSystemMemory.Register("WaServerCommandBufferInSystemMemory")
	WaDisableCompression10BitDecode.Register("WaDisableCompression10BitDecode")
	WaDisablePackedYUVCompression.Register("WaDisablePackedYUVCompression")
	WaDisableRenderCompression.Register("WaDisableRenderCompression")
}

// Platform is the hardware description consumed by the placement and compression policies
type Platform struct {
	Features    FeatureFlags
	Workarounds WorkaroundFlags
}

func (p *Platform) HasFeature(feature FeatureFlags) bool {
	return p.Features&feature == feature
}

func (p *Platform) HasWorkaround(workaround WorkaroundFlags) bool {
	return p.Workarounds&workaround == workaround
}

var featureNames = map[string]FeatureFlags{
	"FeatureLocalMemory":         FeatureLocalMemory,
	"FeatureLosslessCompression": FeatureLosslessCompression,
	"FeatureCopyEngineSwizzle":   FeatureCopyEngineSwizzle,
}

var workaroundNames = map[string]WorkaroundFlags{
	"WaForceLocalMemory":                  WaForceLocalMemory,
	"WaStagingInSystemMemory":             WaStagingInSystemMemory,
	"WaServerCommandBufferInSystemMemory": WaServerCommandBufferInSystemMemory,
	"WaDisableCompression10BitDecode":     WaDisableCompression10BitDecode,
	"WaDisablePackedYUVCompression":       WaDisablePackedYUVCompression,
	"WaDisableRenderCompression":          WaDisableRenderCompression,
}

// FeatureByName looks up a feature flag by its registered name
func FeatureByName(name string) (FeatureFlags, bool) {
	flag, ok := featureNames[name]
	return flag, ok
}

// WorkaroundByName looks up a workaround flag by its registered name
func WorkaroundByName(name string) (WorkaroundFlags, bool) {
	flag, ok := workaroundNames[name]
	return flag, ok
}
