package hw

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/mediamem/memutils"
)

// Format is a pixel format understood by the allocator
type Format uint32

const (
	FormatUndefined Format = iota
	FormatNV12
	FormatNV21
	FormatP010
	FormatP012
	FormatP016
	FormatYV12
	FormatI420
	FormatIMC3
	Format400P
	Format411P
	Format422H
	Format422V
	Format444P
	FormatYUY2
	FormatUYVY
	FormatY210
	FormatY216
	FormatAYUV
	FormatY410
	FormatY416
	FormatA8R8G8B8
	FormatX8R8G8B8
	FormatA8B8G8R8
	FormatX8B8G8R8
	FormatA2R10G10B10
	FormatA2B10G10R10
	FormatR5G6B5
	FormatR8G8B8
	FormatA16B16G16R16
	FormatRGBP
	FormatBGRP
	FormatR8
	FormatR16
	FormatBuffer
	FormatP208
)

// FormatInfo is the static description of a pixel format
type FormatInfo struct {
	Name   string
	FourCC uint32

	// BytesPerPixel is the byte width of one pixel in the first plane
	BytesPerPixel int
	// HeightNumerator/HeightDenominator scale the luma height to the number of rows the
	// whole surface occupies at the first plane's pitch, i.e. 3/2 for 4:2:0 semi-planar formats
	HeightNumerator   int
	HeightDenominator int
	Planes            int
	BitDepth          int

	// Packed422 marks packed 4:2:2 YUV formats
	Packed422 bool
	// LinearOnly formats are never tiled
	LinearOnly bool
	// Compressible formats may take part in lossless compression when tiled Y-major
	Compressible bool
	// CopyEngine formats can be de-tiled by the copy engine
	CopyEngine bool
}

func fourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

var formatTable = map[Format]FormatInfo{
	FormatNV12: {Name: "NV12", FourCC: fourCC('N', 'V', '1', '2'), BytesPerPixel: 1, HeightNumerator: 3, HeightDenominator: 2, Planes: 2, BitDepth: 8, Compressible: true, CopyEngine: true},
	FormatNV21: {Name: "NV21", FourCC: fourCC('N', 'V', '2', '1'), BytesPerPixel: 1, HeightNumerator: 3, HeightDenominator: 2, Planes: 2, BitDepth: 8, Compressible: true, CopyEngine: true},
	FormatP010: {Name: "P010", FourCC: fourCC('P', '0', '1', '0'), BytesPerPixel: 2, HeightNumerator: 3, HeightDenominator: 2, Planes: 2, BitDepth: 10, Compressible: true, CopyEngine: true},
	FormatP012: {Name: "P012", FourCC: fourCC('P', '0', '1', '2'), BytesPerPixel: 2, HeightNumerator: 3, HeightDenominator: 2, Planes: 2, BitDepth: 12, Compressible: true, CopyEngine: true},
	FormatP016: {Name: "P016", FourCC: fourCC('P', '0', '1', '6'), BytesPerPixel: 2, HeightNumerator: 3, HeightDenominator: 2, Planes: 2, BitDepth: 16, Compressible: true, CopyEngine: true},
	FormatYV12: {Name: "YV12", FourCC: fourCC('Y', 'V', '1', '2'), BytesPerPixel: 1, HeightNumerator: 3, HeightDenominator: 2, Planes: 3, BitDepth: 8},
	FormatI420: {Name: "I420", FourCC: fourCC('I', '4', '2', '0'), BytesPerPixel: 1, HeightNumerator: 3, HeightDenominator: 2, Planes: 3, BitDepth: 8},
	FormatIMC3: {Name: "IMC3", FourCC: fourCC('I', 'M', 'C', '3'), BytesPerPixel: 1, HeightNumerator: 2, HeightDenominator: 1, Planes: 3, BitDepth: 8},
	Format400P: {Name: "400P", FourCC: fourCC('4', '0', '0', 'P'), BytesPerPixel: 1, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8},
	Format411P: {Name: "411P", FourCC: fourCC('4', '1', '1', 'P'), BytesPerPixel: 1, HeightNumerator: 3, HeightDenominator: 1, Planes: 3, BitDepth: 8},
	Format422H: {Name: "422H", FourCC: fourCC('4', '2', '2', 'H'), BytesPerPixel: 1, HeightNumerator: 3, HeightDenominator: 1, Planes: 3, BitDepth: 8},
	Format422V: {Name: "422V", FourCC: fourCC('4', '2', '2', 'V'), BytesPerPixel: 1, HeightNumerator: 2, HeightDenominator: 1, Planes: 3, BitDepth: 8},
	Format444P: {Name: "444P", FourCC: fourCC('4', '4', '4', 'P'), BytesPerPixel: 1, HeightNumerator: 3, HeightDenominator: 1, Planes: 3, BitDepth: 8},
	FormatYUY2: {Name: "YUY2", FourCC: fourCC('Y', 'U', 'Y', '2'), BytesPerPixel: 2, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, Packed422: true, Compressible: true, CopyEngine: true},
	FormatUYVY: {Name: "UYVY", FourCC: fourCC('U', 'Y', 'V', 'Y'), BytesPerPixel: 2, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, Packed422: true, Compressible: true, CopyEngine: true},
	FormatY210: {Name: "Y210", FourCC: fourCC('Y', '2', '1', '0'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 10, Packed422: true, Compressible: true, CopyEngine: true},
	FormatY216: {Name: "Y216", FourCC: fourCC('Y', '2', '1', '6'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 16, Packed422: true, Compressible: true, CopyEngine: true},
	FormatAYUV: {Name: "AYUV", FourCC: fourCC('A', 'Y', 'U', 'V'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, Compressible: true, CopyEngine: true},
	FormatY410: {Name: "Y410", FourCC: fourCC('Y', '4', '1', '0'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 10, Compressible: true, CopyEngine: true},
	FormatY416: {Name: "Y416", FourCC: fourCC('Y', '4', '1', '6'), BytesPerPixel: 8, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 16, Compressible: true, CopyEngine: true},

	FormatA8R8G8B8:     {Name: "A8R8G8B8", FourCC: fourCC('A', 'R', 'G', 'B'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, Compressible: true, CopyEngine: true},
	FormatX8R8G8B8:     {Name: "X8R8G8B8", FourCC: fourCC('X', 'R', 'G', 'B'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, Compressible: true, CopyEngine: true},
	FormatA8B8G8R8:     {Name: "A8B8G8R8", FourCC: fourCC('A', 'B', 'G', 'R'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, Compressible: true, CopyEngine: true},
	FormatX8B8G8R8:     {Name: "X8B8G8R8", FourCC: fourCC('X', 'B', 'G', 'R'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, Compressible: true, CopyEngine: true},
	FormatA2R10G10B10:  {Name: "A2R10G10B10", FourCC: fourCC('A', 'R', '3', '0'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 10, Compressible: true, CopyEngine: true},
	FormatA2B10G10R10:  {Name: "A2B10G10R10", FourCC: fourCC('A', 'B', '3', '0'), BytesPerPixel: 4, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 10, Compressible: true, CopyEngine: true},
	FormatR5G6B5:       {Name: "R5G6B5", FourCC: fourCC('R', 'G', '1', '6'), BytesPerPixel: 2, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 5, CopyEngine: true},
	FormatR8G8B8:       {Name: "R8G8B8", FourCC: fourCC('R', 'G', '2', '4'), BytesPerPixel: 3, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8},
	FormatA16B16G16R16: {Name: "A16B16G16R16", FourCC: fourCC('A', 'B', '4', '8'), BytesPerPixel: 8, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 16, Compressible: true, CopyEngine: true},
	FormatRGBP:         {Name: "RGBP", FourCC: fourCC('R', 'G', 'B', 'P'), BytesPerPixel: 1, HeightNumerator: 3, HeightDenominator: 1, Planes: 3, BitDepth: 8, CopyEngine: true},
	FormatBGRP:         {Name: "BGRP", FourCC: fourCC('B', 'G', 'R', 'P'), BytesPerPixel: 1, HeightNumerator: 3, HeightDenominator: 1, Planes: 3, BitDepth: 8, CopyEngine: true},
	FormatR8:           {Name: "R8", FourCC: fourCC('R', '8', ' ', ' '), BytesPerPixel: 1, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, Compressible: true, CopyEngine: true},
	FormatR16:          {Name: "R16", FourCC: fourCC('R', '1', '6', ' '), BytesPerPixel: 2, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 16, Compressible: true, CopyEngine: true},

	// Two dimensional data buffers, e.g. encoder statistics, are addressed by row but never tiled
	FormatBuffer: {Name: "Buffer", BytesPerPixel: 1, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, LinearOnly: true},
	FormatP208:   {Name: "P208", FourCC: fourCC('P', '2', '0', '8'), BytesPerPixel: 1, HeightNumerator: 1, HeightDenominator: 1, Planes: 1, BitDepth: 8, LinearOnly: true},
}

// LookupFormat returns the static description of a format. Formats missing from the table fail
// with memutils.ErrUnsupportedFormat.
func LookupFormat(format Format) (FormatInfo, error) {
	info, ok := formatTable[format]
	if !ok {
		return FormatInfo{}, errors.Mark(errors.Newf("pixel format %d is not supported", format), memutils.ErrUnsupportedFormat)
	}
	return info, nil
}

func (f Format) String() string {
	info, ok := formatTable[f]
	if !ok {
		return "unknown"
	}
	return info.Name
}

// FormatByName looks up a format by its String() value
func FormatByName(name string) (Format, bool) {
	for format, info := range formatTable {
		if info.Name == name {
			return format, true
		}
	}
	return FormatUndefined, false
}

// Rows returns the number of rows at the first plane's pitch that a surface of the given luma
// height occupies
func (i FormatInfo) Rows(height int) int {
	return (height*i.HeightNumerator + i.HeightDenominator - 1) / i.HeightDenominator
}

// Is10Bit reports whether the format carries 10 bits per component
func (i FormatInfo) Is10Bit() bool {
	return i.BitDepth == 10
}
