package memutils

import "github.com/cockroachdb/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// The error taxonomy shared by every package in this module. Failures are marked with one of these
// sentinels so that callers can test them with errors.Is no matter how much context has been wrapped
// around them.
var (
	// ErrInvalidArgument is returned for nil or out-of-range input. The operation has no side effects.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedFormat is returned when a pixel format is not present in the format table
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrAllocationFailed is returned when the backend could not create a memory object. Nothing is
	// registered when this error is returned.
	ErrAllocationFailed = errors.New("allocation failed")
	// ErrOutOfRange is returned when a heap slot id is outside the allocated range of the heap
	ErrOutOfRange = errors.New("slot id out of range")
	// ErrAlreadyReleased is returned when a heap slot is released twice
	ErrAlreadyReleased = errors.New("slot already released")
	// ErrSwizzleFailed is returned by Lock when neither the hardware nor the software de-tile path succeeded
	ErrSwizzleFailed = errors.New("swizzle failed")
	// ErrHeapExhausted is returned when a heap cannot grow any further
	ErrHeapExhausted = errors.New("heap exhausted")
)
