package pixfmt

import (
	"fmt"
	"strings"
)

// ColorSpace selects the luma/chroma transform used when converting
// between Y'CbCr and direct channel representations. It does not affect
// memory layout.
type ColorSpace uint8

const (
	// BT601 is ITU-R BT.601 (SD video).
	BT601 ColorSpace = iota

	// BT709 is ITU-R BT.709 (HD video).
	BT709

	// BT2020 is ITU-R BT.2020 non-constant luminance.
	BT2020

	colorSpaceCount
)

// String returns the name of the color space.
func (c ColorSpace) String() string {
	switch c {
	case BT601:
		return "BT601"
	case BT709:
		return "BT709"
	case BT2020:
		return "BT2020"
	default:
		return fmt.Sprintf("ColorSpace(%d)", uint8(c))
	}
}

// IsValid returns true if the color space is known.
func (c ColorSpace) IsValid() bool {
	return c < colorSpaceCount
}

// ColorSpaces returns every supported color space.
func ColorSpaces() []ColorSpace {
	return []ColorSpace{BT601, BT709, BT2020}
}

// ParseColorSpace parses a color space name such as "bt709" or "709".
func ParseColorSpace(s string) (ColorSpace, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "BT")
	name = strings.TrimPrefix(name, ".")
	switch name {
	case "601":
		return BT601, nil
	case "709":
		return BT709, nil
	case "2020":
		return BT2020, nil
	}
	return 0, fmt.Errorf("pixfmt: unknown color space %q", s)
}

// ColorRange selects the numeric range of Y'CbCr samples.
type ColorRange uint8

const (
	// Limited is studio swing: luma 16-235, chroma 16-240.
	Limited ColorRange = iota

	// Full uses the whole 0-255 range for every sample.
	Full

	colorRangeCount
)

// String returns the name of the color range.
func (r ColorRange) String() string {
	switch r {
	case Limited:
		return "Limited"
	case Full:
		return "Full"
	default:
		return fmt.Sprintf("ColorRange(%d)", uint8(r))
	}
}

// IsValid returns true if the color range is known.
func (r ColorRange) IsValid() bool {
	return r < colorRangeCount
}

// ColorRanges returns every supported color range.
func ColorRanges() []ColorRange {
	return []ColorRange{Limited, Full}
}

// ParseColorRange parses "limited" / "full" (also "tv" / "pc").
func ParseColorRange(s string) (ColorRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "limited", "tv", "studio":
		return Limited, nil
	case "full", "pc":
		return Full, nil
	}
	return 0, fmt.Errorf("pixfmt: unknown color range %q", s)
}
