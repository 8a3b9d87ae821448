// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package substrate

import (
	"fmt"

	"github.com/gogpu/devimage/pixfmt"
)

// Routine identifies one native conversion kernel variant. Variants that
// differ only in their color matrix are distinct routines, mirroring the
// vendor library where each (matrix, range) pair is its own entry point.
type Routine uint16

// Native routines.
const (
	RoutineInvalid Routine = iota

	// Pitched copies.
	RoutineCopy8uC3
	RoutineCopy8uC4
	RoutineCopyNV12

	// Channel order swaps: RGB <-> BGR, RGBA <-> BGRA.
	RoutineSwapChannels8uC3
	RoutineSwapChannels8uC4

	// HSV.
	RoutineRGBToHSV
	RoutineHSVToRGB

	// Alpha insertion (alpha = 255) and removal, optionally swapping R and B.
	RoutineRGBToRGBA
	RoutineRGBToBGRA
	RoutineRGBAToRGB
	RoutineRGBAToBGR

	// NV12 decode.
	RoutineNV12ToRGB
	RoutineNV12ToRGB709CSC
	RoutineNV12ToRGB709HDTV
	RoutineNV12ToRGBColorTwist
	RoutineNV12ToBGR
	RoutineNV12ToBGR709CSC
	RoutineNV12ToBGR709HDTV
	RoutineNV12ToBGRColorTwist

	// NV12 encode.
	RoutineRGBToNV12
	RoutineRGBToNV12709CSC
	RoutineRGBToNV12709HDTV
	RoutineRGBToNV12ColorTwist
	RoutineBGRToNV12
	RoutineBGRToNV12709CSC
	RoutineBGRToNV12709HDTV
	RoutineBGRToNV12ColorTwist

	routineCount
)

// Kind groups routines that share a kernel implementation.
type Kind uint8

// Kernel kinds.
const (
	KindCopy Kind = iota + 1
	KindSwap
	KindRGBToHSV
	KindHSVToRGB
	KindAddAlpha
	KindDropAlpha
	KindNV12ToRGB
	KindRGBToNV12
)

// RoutineInfo describes the memory layout and color handling of a routine.
type RoutineInfo struct {
	Name string
	Kind Kind

	// Src and Dst are the layout families on each side.
	Src, Dst pixfmt.Family

	// SwapRB reports whether R and B trade places between source and
	// destination (for example NV12 -> BGR or RGB -> BGRA).
	SwapRB bool

	// ColorTwist routines take color space and range from Args; the
	// others have them fixed by Space and Range.
	ColorTwist bool
	Space      pixfmt.ColorSpace
	Range      pixfmt.ColorRange
}

var routineTable = [routineCount]RoutineInfo{
	RoutineCopy8uC3: {Name: "Copy_8u_C3R", Kind: KindCopy, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyInterleaved3},
	RoutineCopy8uC4: {Name: "Copy_8u_C4R", Kind: KindCopy, Src: pixfmt.FamilyInterleaved4, Dst: pixfmt.FamilyInterleaved4},
	RoutineCopyNV12: {Name: "Copy_8u_P2R", Kind: KindCopy, Src: pixfmt.FamilyPlanar420, Dst: pixfmt.FamilyPlanar420},

	RoutineSwapChannels8uC3: {Name: "SwapChannels_8u_C3R", Kind: KindSwap, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyInterleaved3, SwapRB: true},
	RoutineSwapChannels8uC4: {Name: "SwapChannels_8u_C4R", Kind: KindSwap, Src: pixfmt.FamilyInterleaved4, Dst: pixfmt.FamilyInterleaved4, SwapRB: true},

	RoutineRGBToHSV: {Name: "RGBToHSV_8u_C3R", Kind: KindRGBToHSV, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyInterleaved3},
	RoutineHSVToRGB: {Name: "HSVToRGB_8u_C3R", Kind: KindHSVToRGB, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyInterleaved3},

	RoutineRGBToRGBA: {Name: "RGBToRGBA_8u_C3C4R", Kind: KindAddAlpha, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyInterleaved4},
	RoutineRGBToBGRA: {Name: "RGBToBGRA_8u_C3C4R", Kind: KindAddAlpha, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyInterleaved4, SwapRB: true},
	RoutineRGBAToRGB: {Name: "RGBAToRGB_8u_C4C3R", Kind: KindDropAlpha, Src: pixfmt.FamilyInterleaved4, Dst: pixfmt.FamilyInterleaved3},
	RoutineRGBAToBGR: {Name: "RGBAToBGR_8u_C4C3R", Kind: KindDropAlpha, Src: pixfmt.FamilyInterleaved4, Dst: pixfmt.FamilyInterleaved3, SwapRB: true},

	RoutineNV12ToRGB:           {Name: "NV12ToRGB_8u_P2C3R", Kind: KindNV12ToRGB, Src: pixfmt.FamilyPlanar420, Dst: pixfmt.FamilyInterleaved3, Space: pixfmt.BT601, Range: pixfmt.Limited},
	RoutineNV12ToRGB709CSC:     {Name: "NV12ToRGB_709CSC_8u_P2C3R", Kind: KindNV12ToRGB, Src: pixfmt.FamilyPlanar420, Dst: pixfmt.FamilyInterleaved3, Space: pixfmt.BT709, Range: pixfmt.Limited},
	RoutineNV12ToRGB709HDTV:    {Name: "NV12ToRGB_709HDTV_8u_P2C3R", Kind: KindNV12ToRGB, Src: pixfmt.FamilyPlanar420, Dst: pixfmt.FamilyInterleaved3, Space: pixfmt.BT709, Range: pixfmt.Full},
	RoutineNV12ToRGBColorTwist: {Name: "NV12ToRGB_ColorTwist_8u_P2C3R", Kind: KindNV12ToRGB, Src: pixfmt.FamilyPlanar420, Dst: pixfmt.FamilyInterleaved3, ColorTwist: true},
	RoutineNV12ToBGR:           {Name: "NV12ToBGR_8u_P2C3R", Kind: KindNV12ToRGB, Src: pixfmt.FamilyPlanar420, Dst: pixfmt.FamilyInterleaved3, SwapRB: true, Space: pixfmt.BT601, Range: pixfmt.Limited},
	RoutineNV12ToBGR709CSC:     {Name: "NV12ToBGR_709CSC_8u_P2C3R", Kind: KindNV12ToRGB, Src: pixfmt.FamilyPlanar420, Dst: pixfmt.FamilyInterleaved3, SwapRB: true, Space: pixfmt.BT709, Range: pixfmt.Limited},
	RoutineNV12ToBGR709HDTV:    {Name: "NV12ToBGR_709HDTV_8u_P2C3R", Kind: KindNV12ToRGB, Src: pixfmt.FamilyPlanar420, Dst: pixfmt.FamilyInterleaved3, SwapRB: true, Space: pixfmt.BT709, Range: pixfmt.Full},
	RoutineNV12ToBGRColorTwist: {Name: "NV12ToBGR_ColorTwist_8u_P2C3R", Kind: KindNV12ToRGB, Src: pixfmt.FamilyPlanar420, Dst: pixfmt.FamilyInterleaved3, SwapRB: true, ColorTwist: true},

	RoutineRGBToNV12:           {Name: "RGBToNV12_8u_C3P2R", Kind: KindRGBToNV12, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyPlanar420, Space: pixfmt.BT601, Range: pixfmt.Limited},
	RoutineRGBToNV12709CSC:     {Name: "RGBToNV12_709CSC_8u_C3P2R", Kind: KindRGBToNV12, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyPlanar420, Space: pixfmt.BT709, Range: pixfmt.Limited},
	RoutineRGBToNV12709HDTV:    {Name: "RGBToNV12_709HDTV_8u_C3P2R", Kind: KindRGBToNV12, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyPlanar420, Space: pixfmt.BT709, Range: pixfmt.Full},
	RoutineRGBToNV12ColorTwist: {Name: "RGBToNV12_ColorTwist_8u_C3P2R", Kind: KindRGBToNV12, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyPlanar420, ColorTwist: true},
	RoutineBGRToNV12:           {Name: "BGRToNV12_8u_C3P2R", Kind: KindRGBToNV12, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyPlanar420, SwapRB: true, Space: pixfmt.BT601, Range: pixfmt.Limited},
	RoutineBGRToNV12709CSC:     {Name: "BGRToNV12_709CSC_8u_C3P2R", Kind: KindRGBToNV12, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyPlanar420, SwapRB: true, Space: pixfmt.BT709, Range: pixfmt.Limited},
	RoutineBGRToNV12709HDTV:    {Name: "BGRToNV12_709HDTV_8u_C3P2R", Kind: KindRGBToNV12, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyPlanar420, SwapRB: true, Space: pixfmt.BT709, Range: pixfmt.Full},
	RoutineBGRToNV12ColorTwist: {Name: "BGRToNV12_ColorTwist_8u_C3P2R", Kind: KindRGBToNV12, Src: pixfmt.FamilyInterleaved3, Dst: pixfmt.FamilyPlanar420, SwapRB: true, ColorTwist: true},
}

// Routines returns every valid routine.
func Routines() []Routine {
	out := make([]Routine, 0, routineCount-1)
	for r := RoutineInvalid + 1; r < routineCount; r++ {
		out = append(out, r)
	}
	return out
}

// IsValid reports whether r names a routine.
func (r Routine) IsValid() bool {
	return r > RoutineInvalid && r < routineCount
}

// Info returns the routine's layout description. The zero RoutineInfo is
// returned for an invalid routine.
func (r Routine) Info() RoutineInfo {
	if !r.IsValid() {
		return RoutineInfo{}
	}
	return routineTable[r]
}

// String returns the native entry point name.
func (r Routine) String() string {
	if !r.IsValid() {
		return fmt.Sprintf("Routine(%d)", uint16(r))
	}
	return routineTable[r].Name
}

// ColorParams returns the color space and range the routine applies:
// fixed for matrix-specific variants, taken from args for color twists.
func (r Routine) ColorParams(args Args) (pixfmt.ColorSpace, pixfmt.ColorRange) {
	info := r.Info()
	if info.ColorTwist {
		return args.ColorSpace, args.ColorRange
	}
	return info.Space, info.Range
}

// Args are the arguments common to every conversion routine. Width and
// Height are the logical image size in pixels; pitches are in bytes.
type Args struct {
	Src      DevicePtr
	SrcPitch int
	Dst      DevicePtr
	DstPitch int
	Width    int
	Height   int

	ColorSpace pixfmt.ColorSpace
	ColorRange pixfmt.ColorRange
}

// SrcExtent returns the extent the routine reads for a width x height image.
func (r Routine) SrcExtent(width, height int) pixfmt.Extent {
	ext, _ := pixfmt.FamilyExtent(r.Info().Src, width, height)
	return ext
}

// DstExtent returns the extent the routine writes for a width x height image.
func (r Routine) DstExtent(width, height int) pixfmt.Extent {
	ext, _ := pixfmt.FamilyExtent(r.Info().Dst, width, height)
	return ext
}

// Status is a native routine status code. Zero is success, negative
// values are errors. The numbering follows the vendor library, but codes
// are opaque to devimage: it reports them, it does not interpret them.
type Status int32

// Status codes used by the bundled backends.
const (
	StatusSuccess      Status = 0
	StatusExecution    Status = -3
	StatusBadArgument  Status = -5
	StatusSize         Status = -6
	StatusNullPointer  Status = -8
	StatusMemory       Status = -12
	StatusStep         Status = -14
	StatusNotSupported Status = -9999
)

// DefaultStatusText returns a message for the codes declared above.
func DefaultStatusText(st Status) string {
	switch st {
	case StatusSuccess:
		return "success"
	case StatusExecution:
		return "kernel execution error"
	case StatusBadArgument:
		return "bad argument"
	case StatusSize:
		return "invalid ROI size"
	case StatusNullPointer:
		return "null or unknown device pointer"
	case StatusMemory:
		return "memory access out of range"
	case StatusStep:
		return "invalid line step"
	case StatusNotSupported:
		return "routine not supported"
	default:
		return fmt.Sprintf("status %d", int32(st))
	}
}

// ValidateArgs performs the checks every backend applies before enqueuing
// a routine: known routine, non-null pointers, positive size (even for
// 4:2:0 sides), pitches at least as wide as a row, and both extents
// within their allocations.
func ValidateArgs(r Routine, args Args, src, dst PitchedMemory) Status {
	if !r.IsValid() {
		return StatusNotSupported
	}
	if args.Src == NullPtr || args.Dst == NullPtr {
		return StatusNullPointer
	}
	if !args.ColorSpace.IsValid() || !args.ColorRange.IsValid() {
		return StatusBadArgument
	}
	if args.Width <= 0 || args.Height <= 0 {
		return StatusSize
	}
	info := r.Info()
	if (info.Src == pixfmt.FamilyPlanar420 || info.Dst == pixfmt.FamilyPlanar420) &&
		(args.Width%2 != 0 || args.Height%2 != 0) {
		return StatusSize
	}
	se, de := r.SrcExtent(args.Width, args.Height), r.DstExtent(args.Width, args.Height)
	if args.SrcPitch < se.WidthBytes || args.DstPitch < de.WidthBytes {
		return StatusStep
	}
	if args.SrcPitch != src.Pitch || args.DstPitch != dst.Pitch {
		return StatusStep
	}
	if !src.Extent().Contains(se) || !dst.Extent().Contains(de) {
		return StatusMemory
	}
	return StatusSuccess
}
