package compression

import (
	"github.com/vkngwrapper/mediamem/hw"
)

// Mode is the lossless compression variant applied to a surface
type Mode uint32

const (
	ModeNone Mode = iota
	// ModeRender is render-target oriented compression, used by surfaces the 3D engine,
	// post-processing or display touches
	ModeRender
	// ModeMedia is media oriented compression, used by decoder outputs and encoder inputs
	ModeMedia
)

var modeMapping = map[Mode]string{
	ModeNone:   "ModeNone",
	ModeRender: "ModeRender",
	ModeMedia:  "ModeMedia",
}

func (m Mode) String() string {
	str, ok := modeMapping[m]
	if !ok {
		return "unknown"
	}
	return str
}

// Decision is the result of a compression eligibility check. Enabled is false whenever Mode
// is ModeNone.
type Decision struct {
	Enabled bool
	Mode    Mode
}

var disabled = Decision{Mode: ModeNone}

// ShouldCompress decides whether a surface with the given format, tiling and usage takes part
// in lossless compression on platform, and which mode it uses. Only Y-tiled surfaces of
// compressible formats are considered, and only when the platform has
// FeatureLosslessCompression. Formats missing from the format table are never compressed.
func ShouldCompress(platform *hw.Platform, format hw.Format, tiling hw.Tiling, usage hw.UsageFlags) Decision {
	if platform == nil || tiling != hw.TilingY || !platform.HasFeature(hw.FeatureLosslessCompression) {
		return disabled
	}

	info, err := hw.LookupFormat(format)
	if err != nil || !info.Compressible {
		return disabled
	}

	var mode Mode
	switch {
	case usage.HasRenderHint():
		mode = ModeRender
	case usage.HasMediaHint():
		mode = ModeMedia
	default:
		return disabled
	}

	if platform.HasWorkaround(hw.WaDisableCompression10BitDecode) && info.Is10Bit() && usage&hw.UsageDecode != 0 {
		return disabled
	}
	if platform.HasWorkaround(hw.WaDisablePackedYUVCompression) && info.Packed422 {
		return disabled
	}
	if platform.HasWorkaround(hw.WaDisableRenderCompression) && mode == ModeRender {
		return disabled
	}

	return Decision{Enabled: true, Mode: mode}
}

// ExternalDescriptor is the compression state declared by caller-supplied memory
type ExternalDescriptor struct {
	Compressed bool
	Mode       Mode
}

// ForExternal returns the compression decision for an externally supplied surface. External
// surfaces are uncompressed unless they declare both a compressed state and a mode, in which
// case the declared mode is trusted without consulting platform features.
func ForExternal(desc *ExternalDescriptor) Decision {
	if desc == nil || !desc.Compressed {
		return disabled
	}

	switch desc.Mode {
	case ModeRender, ModeMedia:
		return Decision{Enabled: true, Mode: desc.Mode}
	}

	return disabled
}
