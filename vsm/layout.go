package vsm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
)

// extent is the aligned footprint of a picture
type extent struct {
	alignedWidth  int
	alignedHeight int
	pitch         int
	rows          int
	size          int
}

// measure aligns a width x height picture of a format and computes its footprint, rounding the
// row stride up to pitchAlignment. Pictures whose footprint does not fit in memutils.MaxObjectBytes
// are rejected with ErrInvalidArgument.
func measure(info hw.FormatInfo, alignment hw.Alignment, width, height, pitchAlignment int) (extent, error) {
	alignedWidth, widthOK := memutils.CheckedAlignUp(width, uint(alignment.Width))
	alignedHeight, heightOK := memutils.CheckedAlignUp(height, uint(alignment.Height))
	rowBytes, rowBytesOK := memutils.CheckedMul(alignedWidth, info.BytesPerPixel)
	pitch, pitchOK := memutils.CheckedAlignUp(rowBytes, uint(pitchAlignment))
	_, rowsOK := memutils.CheckedMul(alignedHeight, info.HeightNumerator)

	if !widthOK || !heightOK || !rowBytesOK || !pitchOK || !rowsOK {
		return extent{}, errors.Mark(errors.Newf("a %dx%d picture does not fit in %d bytes", width, height, memutils.MaxObjectBytes), memutils.ErrInvalidArgument)
	}

	rows := info.Rows(alignedHeight)
	size, sizeOK := memutils.CheckedMul(pitch, rows)
	if !sizeOK {
		return extent{}, errors.Mark(errors.Newf("a %dx%d picture does not fit in %d bytes", width, height, memutils.MaxObjectBytes), memutils.ErrInvalidArgument)
	}

	return extent{
		alignedWidth:  alignedWidth,
		alignedHeight: alignedHeight,
		pitch:         pitch,
		rows:          rows,
		size:          size,
	}, nil
}

// Plane is the position of one plane of a planar format within a resource's memory
type Plane struct {
	Offset int
	Pitch  int
}

// planeLayout computes the planes of a format stored at pitch with lumaRows rows in the first
// plane. The chroma planes follow the first plane directly.
func planeLayout(info hw.FormatInfo, pitch, lumaRows int) []Plane {
	planes := []Plane{{Offset: 0, Pitch: pitch}}
	lumaSize := pitch * lumaRows

	switch info.Planes {
	case 2:
		planes = append(planes, Plane{Offset: lumaSize, Pitch: pitch})
	case 3:
		if info.HeightDenominator == 2 {
			// 4:2:0 fully planar: each chroma plane has half the pitch and half the rows
			chromaPitch := pitch / 2
			planes = append(planes,
				Plane{Offset: lumaSize, Pitch: chromaPitch},
				Plane{Offset: lumaSize + chromaPitch*(lumaRows/2), Pitch: chromaPitch},
			)
			break
		}

		chromaRows := (info.Rows(lumaRows) - lumaRows) / 2
		planes = append(planes,
			Plane{Offset: lumaSize, Pitch: pitch},
			Plane{Offset: lumaSize + pitch*chromaRows, Pitch: pitch},
		)
	}

	return planes
}
