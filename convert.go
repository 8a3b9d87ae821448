package devimage

import (
	"fmt"

	"github.com/gogpu/devimage/substrate"
)

// Convert enqueues the conversion of src's pixels into dst on stream and
// returns without waiting for it.
//
// Both images must have the same logical size. The routine is chosen by
// Dispatch from the two formats and the color metadata of the Y'CbCr side
// (the source for decodes, the destination for encodes, otherwise the
// source). Either image's pitch may differ from the other's.
//
// Errors:
//   - ErrImageClosed for a nil or closed image
//   - ErrInvalidColorMetadata when either image has an unknown color
//     space or range
//   - *DimensionMismatchError and *UnsupportedConversionError before
//     anything reaches the device
//   - *NativeRoutineError when the substrate rejects the launch
func Convert(src, dst *DeviceImage, stream substrate.Stream) error {
	if src.Closed() || dst.Closed() {
		return ErrImageClosed
	}
	if src.width != dst.width || src.height != dst.height {
		return &DimensionMismatchError{
			SrcWidth: src.width, SrcHeight: src.height,
			DstWidth: dst.width, DstHeight: dst.height,
		}
	}

	if err := checkColor(src.colorSpace, src.colorRange); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := checkColor(dst.colorSpace, dst.colorRange); err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	cs, cr := dispatchColor(src, dst)
	r, ok := Dispatch(src.format, dst.format, cs, cr)
	if !ok {
		return &UnsupportedConversionError{From: src.format, To: dst.format}
	}

	args := substrate.Args{
		Src:        src.mem.Ptr,
		SrcPitch:   src.mem.Pitch,
		Dst:        dst.mem.Ptr,
		DstPitch:   dst.mem.Pitch,
		Width:      src.width,
		Height:     src.height,
		ColorSpace: cs,
		ColorRange: cr,
	}

	dev := stream.Device()
	if st := dev.Launch(r, args, stream); st != substrate.StatusSuccess {
		return &NativeRoutineError{Routine: r, Status: st, Message: dev.StatusText(st)}
	}

	Logger().Debug("devimage: convert",
		"routine", r,
		"from", src.format,
		"to", dst.format,
		"width", src.width,
		"height", src.height,
		"colorSpace", cs,
		"colorRange", cr)
	return nil
}
