package pixfmt

import (
	"errors"
	"fmt"
)

// ErrInvalidDimensions is returned when an image geometry cannot be laid
// out in the requested format.
var ErrInvalidDimensions = errors.New("pixfmt: invalid dimensions")

// Extent is a 2D allocation size in the units the pitched allocator
// expects: bytes per row and number of rows.
type Extent struct {
	WidthBytes int
	Rows       int
}

// Contains reports whether e is at least as large as o on both axes.
func (e Extent) Contains(o Extent) bool {
	return e.WidthBytes >= o.WidthBytes && e.Rows >= o.Rows
}

// String implements fmt.Stringer.
func (e Extent) String() string {
	return fmt.Sprintf("%dBx%d", e.WidthBytes, e.Rows)
}

// AllocationExtent returns the pitched allocation extent needed to hold a
// width x height image in format f.
//
// AllocationExtent panics for a format outside the enumeration. Returning
// a guessed size would let native routines write past the allocation.
func AllocationExtent(width, height int, f PixelFormat) Extent {
	ext, ok := FamilyExtent(f.Info().Family, width, height)
	if !ok {
		panic(fmt.Sprintf("pixfmt: no allocation rule for pixel format %s", f))
	}
	return ext
}

// FamilyExtent returns the extent of a width x height image laid out in
// family fam, and false for an unknown family.
//
// Interleaved families need width*channels bytes per row and height rows.
// 4:2:0 needs width bytes per row and height*3/2 rows: the packed chroma
// plane follows the luma plane in the same allocation.
func FamilyExtent(fam Family, width, height int) (Extent, bool) {
	switch fam {
	case FamilyInterleaved3:
		return Extent{WidthBytes: width * 3, Rows: height}, true
	case FamilyInterleaved4:
		return Extent{WidthBytes: width * 4, Rows: height}, true
	case FamilyPlanar420:
		return Extent{WidthBytes: width, Rows: height * 3 / 2}, true
	}
	return Extent{}, false
}

// ValidateGeometry checks that a width x height image can be represented
// in format f. Dimensions must be positive; 4:2:0 formats additionally
// need even dimensions so the chroma plane fits the allocation extent.
func ValidateGeometry(width, height int, f PixelFormat) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if f.Info().Family == FamilyPlanar420 && (width%2 != 0 || height%2 != 0) {
		return fmt.Errorf("%w: %s needs even dimensions, got %dx%d", ErrInvalidDimensions, f, width, height)
	}
	return nil
}
