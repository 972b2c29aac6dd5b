package hw

import "github.com/vkngwrapper/core/v2/common"

// UsageFlags are hints from the caller describing how a resource will be used. They drive the
// alignment table, the tiling choice and the compression mode.
type UsageFlags int32

var usageFlagsMapping = common.NewFlagStringMapping[UsageFlags]()

func (f UsageFlags) Register(str string) {
	usageFlagsMapping.Register(f, str)
}
func (f UsageFlags) String() string {
	return usageFlagsMapping.FlagsToString(f)
}

const (
	// UsageDecode indicates the decoder writes the surface
	UsageDecode UsageFlags = 1 << iota
	// UsageEncode indicates the encoder reads the surface
	UsageEncode
	// UsageVideoProcess indicates the surface is an input or output of post-processing
	UsageVideoProcess
	// UsageDisplay indicates the surface will be scanned out
	UsageDisplay
	// UsageRenderTarget indicates the surface is rendered to by the 3D engine
	UsageRenderTarget
	// UsageLinear requests a linear layout even for formats that would normally be tiled
	UsageLinear
	// UsageCPUAccess indicates the caller intends to lock the resource
	UsageCPUAccess
	// UsageNotLockable indicates the resource must never be mapped for CPU access
	UsageNotLockable

	usageRenderHints = UsageRenderTarget | UsageVideoProcess | UsageDisplay
	usageMediaHints  = UsageDecode | UsageEncode
)

func init() {
	UsageDecode.Register("UsageDecode")
	UsageEncode.Register("UsageEncode")
	UsageVideoProcess.Register("UsageVideoProcess")
	UsageDisplay.Register("UsageDisplay")
	UsageRenderTarget.Register("UsageRenderTarget")
	UsageLinear.Register("UsageLinear")
	UsageCPUAccess.Register("UsageCPUAccess")
	UsageNotLockable.Register("UsageNotLockable")
}

// HasRenderHint reports whether any render-oriented usage (render target, video process, display)
// is present
func (f UsageFlags) HasRenderHint() bool {
	return f&usageRenderHints != 0
}

// HasMediaHint reports whether any media-oriented usage (decode, encode) is present
func (f UsageFlags) HasMediaHint() bool {
	return f&usageMediaHints != 0
}

// ResourceCategory names the role a resource plays. Some hardware errata apply to whole categories.
type ResourceCategory uint32

const (
	CategoryGeneric ResourceCategory = iota
	CategoryVideoSurface
	CategoryRenderTarget
	CategoryCommandBuffer
	CategoryStaging
	CategoryBitstream
	CategoryShadow
	CategoryImageData
)

var categoryMapping = map[ResourceCategory]string{
	CategoryGeneric:       "CategoryGeneric",
	CategoryVideoSurface:  "CategoryVideoSurface",
	CategoryRenderTarget:  "CategoryRenderTarget",
	CategoryCommandBuffer: "CategoryCommandBuffer",
	CategoryStaging:       "CategoryStaging",
	CategoryBitstream:     "CategoryBitstream",
	CategoryShadow:        "CategoryShadow",
	CategoryImageData:     "CategoryImageData",
}

func (c ResourceCategory) String() string {
	str, ok := categoryMapping[c]
	if !ok {
		return "unknown"
	}
	return str
}

var usageNames = map[string]UsageFlags{
	"UsageDecode":       UsageDecode,
	"UsageEncode":       UsageEncode,
	"UsageVideoProcess": UsageVideoProcess,
	"UsageDisplay":      UsageDisplay,
	"UsageRenderTarget": UsageRenderTarget,
	"UsageLinear":       UsageLinear,
	"UsageCPUAccess":    UsageCPUAccess,
	"UsageNotLockable":  UsageNotLockable,
}

// UsageByName looks up a usage flag by its registered name
func UsageByName(name string) (UsageFlags, bool) {
	flag, ok := usageNames[name]
	return flag, ok
}

// CategoryByName looks up a resource category by its String() value
func CategoryByName(name string) (ResourceCategory, bool) {
	for category, categoryName := range categoryMapping {
		if categoryName == name {
			return category, true
		}
	}
	return CategoryGeneric, false
}
