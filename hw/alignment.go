package hw

import "github.com/vkngwrapper/mediamem/memutils"

// Alignment is the minimum granularity a surface's width and height are rounded up to before
// the surface is requested from the backend
type Alignment struct {
	Width  int
	Height int
}

type alignmentRule struct {
	formats []Format
	// usage selects the rule when any of its bits are present in the request. A zero usage
	// matches every request.
	usage     UsageFlags
	alignment Alignment
}

// The rows are hardware contracts and are evaluated top to bottom; the first match wins. Several
// rows are near copies of each other for related formats and are kept that way deliberately so
// each can be changed independently when a hardware generation diverges.
var alignmentTable = []alignmentRule{
	// Encoder inputs
	{formats: []Format{FormatNV12, FormatNV21}, usage: UsageEncode, alignment: Alignment{Width: 16, Height: 32}},
	{formats: []Format{FormatP010, FormatP016}, usage: UsageEncode, alignment: Alignment{Width: 16, Height: 32}},
	{formats: []Format{FormatP012}, usage: UsageEncode, alignment: Alignment{Width: 16, Height: 32}},
	{formats: []Format{FormatYUY2, FormatUYVY}, usage: UsageEncode, alignment: Alignment{Width: 8, Height: 32}},
	{formats: []Format{FormatY210, FormatY216}, usage: UsageEncode, alignment: Alignment{Width: 8, Height: 64}},
	{formats: []Format{FormatAYUV}, usage: UsageEncode, alignment: Alignment{Width: 8, Height: 64}},
	{formats: []Format{FormatY410, FormatY416}, usage: UsageEncode, alignment: Alignment{Width: 8, Height: 64}},
	{formats: []Format{FormatA8R8G8B8, FormatA8B8G8R8, FormatX8R8G8B8, FormatX8B8G8R8}, usage: UsageEncode, alignment: Alignment{Width: 8, Height: 32}},
	{formats: []Format{FormatA2R10G10B10, FormatA2B10G10R10}, usage: UsageEncode, alignment: Alignment{Width: 8, Height: 64}},

	// Decoder outputs
	{formats: []Format{FormatNV12, FormatNV21}, usage: UsageDecode, alignment: Alignment{Width: 2, Height: 32}},
	{formats: []Format{FormatP010, FormatP016}, usage: UsageDecode, alignment: Alignment{Width: 2, Height: 32}},
	{formats: []Format{FormatP012}, usage: UsageDecode, alignment: Alignment{Width: 2, Height: 32}},
	{formats: []Format{FormatYUY2, FormatUYVY}, usage: UsageDecode, alignment: Alignment{Width: 2, Height: 32}},
	{formats: []Format{FormatY210, FormatY216}, usage: UsageDecode, alignment: Alignment{Width: 2, Height: 64}},
	{formats: []Format{FormatAYUV}, usage: UsageDecode, alignment: Alignment{Width: 1, Height: 64}},
	{formats: []Format{FormatY410, FormatY416}, usage: UsageDecode, alignment: Alignment{Width: 1, Height: 64}},
	{formats: []Format{FormatIMC3, Format400P, Format411P, Format422H, Format422V, Format444P}, usage: UsageDecode, alignment: Alignment{Width: 16, Height: 32}},

	// Post-processing and scanout
	{formats: []Format{FormatNV12, FormatNV21, FormatP010, FormatP012, FormatP016}, usage: UsageVideoProcess | UsageDisplay, alignment: Alignment{Width: 2, Height: 16}},
	{formats: []Format{FormatYUY2, FormatUYVY, FormatY210, FormatY216}, usage: UsageVideoProcess | UsageDisplay, alignment: Alignment{Width: 2, Height: 2}},

	// Chroma subsampling requires even dimensions no matter the usage
	{formats: []Format{FormatNV12, FormatNV21, FormatP010, FormatP012, FormatP016, FormatYV12, FormatI420, FormatIMC3}, alignment: Alignment{Width: 2, Height: 2}},
	{formats: []Format{FormatYUY2, FormatUYVY, FormatY210, FormatY216, Format422H}, alignment: Alignment{Width: 2, Height: 1}},
	{formats: []Format{Format422V}, alignment: Alignment{Width: 1, Height: 2}},
	{formats: []Format{Format411P}, alignment: Alignment{Width: 4, Height: 1}},
}

var noAlignment = Alignment{Width: 1, Height: 1}

func (r *alignmentRule) matches(format Format, usage UsageFlags) bool {
	if r.usage != 0 && r.usage&usage == 0 {
		return false
	}

	for _, candidate := range r.formats {
		if candidate == format {
			return true
		}
	}
	return false
}

// AlignmentFor returns the width and height alignment a format requires under the given usage.
// Formats without a matching rule need no alignment beyond a single pixel.
func AlignmentFor(format Format, usage UsageFlags) Alignment {
	for i := range alignmentTable {
		if alignmentTable[i].matches(format, usage) {
			alignment := alignmentTable[i].alignment
			memutils.DebugCheckPow2(alignment.Width, "width alignment")
			memutils.DebugCheckPow2(alignment.Height, "height alignment")
			return alignment
		}
	}

	return noAlignment
}
