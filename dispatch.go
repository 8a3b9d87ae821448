package devimage

import (
	"github.com/gogpu/devimage/pixfmt"
	"github.com/gogpu/devimage/substrate"
)

// selector picks the routine variant for the dispatch color metadata.
type selector func(cs pixfmt.ColorSpace, cr pixfmt.ColorRange) substrate.Routine

func fixed(r substrate.Routine) selector {
	return func(pixfmt.ColorSpace, pixfmt.ColorRange) substrate.Routine { return r }
}

// matrixVariants holds the entry points of one Y'CbCr conversion. The
// vendor library has dedicated routines for three (space, range) pairs;
// every other pair goes through the color twist routine.
type matrixVariants struct {
	bt601Limited substrate.Routine
	bt709Limited substrate.Routine
	bt709Full    substrate.Routine
	colorTwist   substrate.Routine
}

func (v matrixVariants) pick(cs pixfmt.ColorSpace, cr pixfmt.ColorRange) substrate.Routine {
	switch {
	case cs == pixfmt.BT601 && cr == pixfmt.Limited:
		return v.bt601Limited
	case cs == pixfmt.BT709 && cr == pixfmt.Limited:
		return v.bt709Limited
	case cs == pixfmt.BT709 && cr == pixfmt.Full:
		return v.bt709Full
	}
	return v.colorTwist
}

var (
	nv12ToRGB = matrixVariants{
		substrate.RoutineNV12ToRGB, substrate.RoutineNV12ToRGB709CSC,
		substrate.RoutineNV12ToRGB709HDTV, substrate.RoutineNV12ToRGBColorTwist,
	}
	nv12ToBGR = matrixVariants{
		substrate.RoutineNV12ToBGR, substrate.RoutineNV12ToBGR709CSC,
		substrate.RoutineNV12ToBGR709HDTV, substrate.RoutineNV12ToBGRColorTwist,
	}
	rgbToNV12 = matrixVariants{
		substrate.RoutineRGBToNV12, substrate.RoutineRGBToNV12709CSC,
		substrate.RoutineRGBToNV12709HDTV, substrate.RoutineRGBToNV12ColorTwist,
	}
	bgrToNV12 = matrixVariants{
		substrate.RoutineBGRToNV12, substrate.RoutineBGRToNV12709CSC,
		substrate.RoutineBGRToNV12709HDTV, substrate.RoutineBGRToNV12ColorTwist,
	}
)

// dispatchTable maps (source, destination) to a routine selector. A nil
// entry is an unsupported pair.
//
// BGR sources reuse the RGB alpha routines with the opposite channel
// order: BGR -> BGRA is a plain alpha insert, BGR -> RGBA is the swapping
// one. The same holds for BGRA sources and alpha removal.
var dispatchTable = [pixfmt.NumFormats][pixfmt.NumFormats]selector{
	pixfmt.RGB: {
		pixfmt.RGB:  fixed(substrate.RoutineCopy8uC3),
		pixfmt.BGR:  fixed(substrate.RoutineSwapChannels8uC3),
		pixfmt.HSV:  fixed(substrate.RoutineRGBToHSV),
		pixfmt.RGBA: fixed(substrate.RoutineRGBToRGBA),
		pixfmt.BGRA: fixed(substrate.RoutineRGBToBGRA),
		pixfmt.NV12: rgbToNV12.pick,
	},
	pixfmt.BGR: {
		pixfmt.RGB:  fixed(substrate.RoutineSwapChannels8uC3),
		pixfmt.BGR:  fixed(substrate.RoutineCopy8uC3),
		pixfmt.RGBA: fixed(substrate.RoutineRGBToBGRA),
		pixfmt.BGRA: fixed(substrate.RoutineRGBToRGBA),
		pixfmt.NV12: bgrToNV12.pick,
	},
	pixfmt.HSV: {
		pixfmt.RGB: fixed(substrate.RoutineHSVToRGB),
		pixfmt.HSV: fixed(substrate.RoutineCopy8uC3),
	},
	pixfmt.RGBA: {
		pixfmt.RGB:  fixed(substrate.RoutineRGBAToRGB),
		pixfmt.BGR:  fixed(substrate.RoutineRGBAToBGR),
		pixfmt.RGBA: fixed(substrate.RoutineCopy8uC4),
		pixfmt.BGRA: fixed(substrate.RoutineSwapChannels8uC4),
	},
	pixfmt.BGRA: {
		pixfmt.RGB:  fixed(substrate.RoutineRGBAToBGR),
		pixfmt.BGR:  fixed(substrate.RoutineRGBAToRGB),
		pixfmt.RGBA: fixed(substrate.RoutineSwapChannels8uC4),
		pixfmt.BGRA: fixed(substrate.RoutineCopy8uC4),
	},
	pixfmt.NV12: {
		pixfmt.RGB:  nv12ToRGB.pick,
		pixfmt.BGR:  nv12ToBGR.pick,
		pixfmt.NV12: fixed(substrate.RoutineCopyNV12),
	},
}

// Dispatch returns the routine converting src-format pixels to
// dst-format pixels under the given color metadata, and false when the
// pair is unsupported or any argument is outside its enumeration.
//
// Dispatch is a pure table lookup; the color metadata only matters for
// Y'CbCr conversions.
func Dispatch(src, dst pixfmt.PixelFormat, cs pixfmt.ColorSpace, cr pixfmt.ColorRange) (substrate.Routine, bool) {
	if !src.IsValid() || !dst.IsValid() || !cs.IsValid() || !cr.IsValid() {
		return substrate.RoutineInvalid, false
	}
	sel := dispatchTable[src][dst]
	if sel == nil {
		return substrate.RoutineInvalid, false
	}
	return sel(cs, cr), true
}

// Supported reports whether Convert can convert between the formats.
func Supported(src, dst pixfmt.PixelFormat) bool {
	_, ok := Dispatch(src, dst, pixfmt.BT601, pixfmt.Limited)
	return ok
}

// dispatchColor returns the color metadata governing a conversion: that
// of the Y'CbCr side when there is one, else the source's.
func dispatchColor(src, dst *DeviceImage) (pixfmt.ColorSpace, pixfmt.ColorRange) {
	if dst.format.IsLumaChroma() && !src.format.IsLumaChroma() {
		return dst.colorSpace, dst.colorRange
	}
	return src.colorSpace, src.colorRange
}
