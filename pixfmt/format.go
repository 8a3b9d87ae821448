// Package pixfmt describes the pixel formats, color spaces and color ranges
// understood by devimage, and the memory layout each format requires.
//
// The layout rules here are invariants, not configuration: for any
// (width, height, format) triple there is exactly one allocation extent.
package pixfmt

import (
	"fmt"
	"strings"
)

// PixelFormat represents a device pixel layout.
type PixelFormat uint8

const (
	// RGB is interleaved 8-bit R, G, B (3 bytes per pixel).
	RGB PixelFormat = iota

	// BGR is interleaved 8-bit B, G, R (3 bytes per pixel).
	BGR

	// HSV is interleaved 8-bit hue, saturation, value (3 bytes per pixel).
	// Hue is scaled to the full 0-255 range.
	HSV

	// RGBA is interleaved 8-bit R, G, B, A (4 bytes per pixel).
	RGBA

	// BGRA is interleaved 8-bit B, G, R, A (4 bytes per pixel).
	BGRA

	// NV12 is planar 4:2:0: a full resolution luma plane followed by a
	// half resolution (both axes) plane of interleaved Cb, Cr samples.
	NV12

	// formatCount is the number of formats (for internal use).
	formatCount
)

// NumFormats is the number of pixel formats. Values 0 through
// NumFormats-1 are valid, so tables indexed by PixelFormat can be arrays.
const NumFormats = int(formatCount)

// Family groups formats that share an allocation rule.
type Family uint8

const (
	// FamilyInterleaved3 covers 3-channel packed formats.
	FamilyInterleaved3 Family = iota + 1

	// FamilyInterleaved4 covers 4-channel packed formats.
	FamilyInterleaved4

	// FamilyPlanar420 covers luma plane + interleaved 4:2:0 chroma plane formats.
	FamilyPlanar420
)

// FormatInfo contains layout metadata about a pixel format.
type FormatInfo struct {
	// Family selects the allocation rule.
	Family Family

	// Channels is the number of samples per pixel in the first plane.
	Channels int

	// BytesPerPixel is the size of one pixel in the first plane.
	BytesPerPixel int

	// HasAlpha indicates if the format carries an alpha channel.
	HasAlpha bool

	// LumaChroma indicates that samples are Y'CbCr rather than direct channels.
	LumaChroma bool
}

var formatInfoTable = [formatCount]FormatInfo{
	RGB:  {Family: FamilyInterleaved3, Channels: 3, BytesPerPixel: 3},
	BGR:  {Family: FamilyInterleaved3, Channels: 3, BytesPerPixel: 3},
	HSV:  {Family: FamilyInterleaved3, Channels: 3, BytesPerPixel: 3},
	RGBA: {Family: FamilyInterleaved4, Channels: 4, BytesPerPixel: 4, HasAlpha: true},
	BGRA: {Family: FamilyInterleaved4, Channels: 4, BytesPerPixel: 4, HasAlpha: true},
	NV12: {Family: FamilyPlanar420, Channels: 1, BytesPerPixel: 1, LumaChroma: true},
}

var formatNames = [formatCount]string{
	RGB:  "RGB",
	BGR:  "BGR",
	HSV:  "HSV",
	RGBA: "RGBA",
	BGRA: "BGRA",
	NV12: "NV12",
}

// Formats returns every supported pixel format in declaration order.
func Formats() []PixelFormat {
	out := make([]PixelFormat, 0, formatCount)
	for f := range formatCount {
		out = append(out, f)
	}
	return out
}

// IsValid returns true if the format is a known format.
func (f PixelFormat) IsValid() bool {
	return f < formatCount
}

// Info returns the layout metadata for f.
// It panics for a format outside the enumeration.
func (f PixelFormat) Info() FormatInfo {
	if !f.IsValid() {
		panic(fmt.Sprintf("pixfmt: no layout rule for pixel format %d", uint8(f)))
	}
	return formatInfoTable[f]
}

// Channels returns the number of samples per pixel.
func (f PixelFormat) Channels() int {
	return f.Info().Channels
}

// IsLumaChroma reports whether the format stores Y'CbCr samples.
func (f PixelFormat) IsLumaChroma() bool {
	return f.Info().LumaChroma
}

// HasAlpha reports whether the format carries an alpha channel.
func (f PixelFormat) HasAlpha() bool {
	return f.Info().HasAlpha
}

// RowBytes returns the number of meaningful bytes in one row of the
// first plane for an image of the given width.
func (f PixelFormat) RowBytes(width int) int {
	return width * f.Info().BytesPerPixel
}

// String returns the canonical name of the format.
func (f PixelFormat) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
	return formatNames[f]
}

// ParsePixelFormat parses a format name case-insensitively.
func ParsePixelFormat(s string) (PixelFormat, error) {
	for f := range formatCount {
		if strings.EqualFold(s, formatNames[f]) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("pixfmt: unknown pixel format %q", s)
}
