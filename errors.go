package devimage

import (
	"errors"
	"fmt"

	"github.com/gogpu/devimage/pixfmt"
	"github.com/gogpu/devimage/substrate"
)

// Sentinel errors. Typed errors below unwrap to one of these, so callers
// can test with errors.Is and extract details with errors.As.
var (
	// ErrAllocation is returned when the substrate cannot allocate device memory.
	ErrAllocation = errors.New("devimage: device allocation failed")

	// ErrDimensionMismatch is returned when source and destination sizes differ.
	ErrDimensionMismatch = errors.New("devimage: dimension mismatch")

	// ErrUnsupportedConversion is returned when no routine converts between
	// two pixel formats.
	ErrUnsupportedConversion = errors.New("devimage: unsupported conversion")

	// ErrNativeRoutine is returned when a native routine reports a non-success status.
	ErrNativeRoutine = errors.New("devimage: native routine failed")

	// ErrImageClosed is returned when using an image after Close or Release.
	ErrImageClosed = errors.New("devimage: image closed")

	// ErrExtentOutOfRange is returned when a requested extent exceeds the allocation.
	ErrExtentOutOfRange = errors.New("devimage: extent out of range")

	// ErrInvalidColorMetadata is returned for a color space or range
	// outside the enumeration.
	ErrInvalidColorMetadata = errors.New("devimage: invalid color metadata")

	// ErrInvalidDimensions is returned for geometry a format cannot hold.
	// It is the pixfmt sentinel, re-exported for convenience.
	ErrInvalidDimensions = pixfmt.ErrInvalidDimensions
)

// AllocationError reports a failed device allocation.
type AllocationError struct {
	Extent pixfmt.Extent
	Err    error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("devimage: allocate %s: %v", e.Extent, e.Err)
}

// Unwrap returns both the sentinel and the substrate error.
func (e *AllocationError) Unwrap() []error {
	return []error{ErrAllocation, e.Err}
}

// DimensionMismatchError reports a conversion between images of different sizes.
type DimensionMismatchError struct {
	SrcWidth, SrcHeight int
	DstWidth, DstHeight int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("devimage: dimension mismatch: source %dx%d, destination %dx%d",
		e.SrcWidth, e.SrcHeight, e.DstWidth, e.DstHeight)
}

// Unwrap returns ErrDimensionMismatch.
func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// UnsupportedConversionError reports a format pair without a routine.
type UnsupportedConversionError struct {
	From, To pixfmt.PixelFormat
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("devimage: unsupported conversion %s -> %s", e.From, e.To)
}

// Unwrap returns ErrUnsupportedConversion.
func (e *UnsupportedConversionError) Unwrap() error { return ErrUnsupportedConversion }

// NativeRoutineError carries the status of a failed native routine.
// Status codes are opaque; Message is the substrate's text for the code.
type NativeRoutineError struct {
	Routine substrate.Routine
	Status  substrate.Status
	Message string
}

func (e *NativeRoutineError) Error() string {
	return fmt.Sprintf("devimage: %s failed with status %d: %s", e.Routine, int32(e.Status), e.Message)
}

// Unwrap returns ErrNativeRoutine.
func (e *NativeRoutineError) Unwrap() error { return ErrNativeRoutine }
