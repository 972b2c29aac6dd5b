package memutils

import (
	"math"

	cerrors "github.com/cockroachdb/errors"
)

// MaxObjectBytes is the largest byte footprint of any resource or memory object. Footprints are
// bounded well below the int range so that pitch, row and size alignment cannot wrap.
const MaxObjectBytes int = math.MaxInt32

type Number interface {
	~int | ~uint | ~uint32
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two. An
// alignment of 0 or 1 leaves the value unchanged.
func AlignUp(value int, alignment uint) int {
	if alignment <= 1 {
		return value
	}
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	if alignment <= 1 {
		return value
	}
	return value & int(^(alignment - 1))
}

// CheckedAlignUp is AlignUp for byte counts and dimensions. It returns false if value is negative
// or the aligned result would exceed MaxObjectBytes.
func CheckedAlignUp(value int, alignment uint) (int, bool) {
	if value < 0 || value > MaxObjectBytes || alignment > uint(MaxObjectBytes) {
		return 0, false
	}

	aligned := AlignUp(value, alignment)
	if aligned < value || aligned > MaxObjectBytes {
		return 0, false
	}
	return aligned, true
}

// CheckedMul multiplies two non-negative values. It returns false if either is negative or the
// product would exceed MaxObjectBytes.
func CheckedMul(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > MaxObjectBytes/b {
		return 0, false
	}
	return a * b, true
}
