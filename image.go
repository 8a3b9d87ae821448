package devimage

import (
	"fmt"

	"github.com/gogpu/devimage/pixfmt"
	"github.com/gogpu/devimage/substrate"
)

// DeviceImage is an image resident in pitched device memory.
//
// A DeviceImage exclusively owns its memory from New (or Wrap) until
// Close or Release. The pitch never changes after creation and is at
// least as wide as one logical row.
//
// Thread safety: DeviceImage is not safe for concurrent mutation. Reading
// the same image from work on two streams is fine; writing it from two
// streams is a race on the device.
type DeviceImage struct {
	mem        substrate.PitchedMemory
	width      int
	height     int
	format     pixfmt.PixelFormat
	colorSpace pixfmt.ColorSpace
	colorRange pixfmt.ColorRange
	closed     bool
}

// New allocates a width x height image in format f on the stream's
// device. The allocation is ordered on stream.
//
// New panics if f is not a valid PixelFormat. It returns an error
// wrapping ErrInvalidDimensions for geometry f cannot hold,
// ErrInvalidColorMetadata for an unknown color space or range, and an
// *AllocationError when the device is out of memory.
func New(width, height int, f pixfmt.PixelFormat, cs pixfmt.ColorSpace, cr pixfmt.ColorRange, stream substrate.Stream) (*DeviceImage, error) {
	if err := pixfmt.ValidateGeometry(width, height, f); err != nil {
		return nil, err
	}
	if err := checkColor(cs, cr); err != nil {
		return nil, err
	}
	ext := pixfmt.AllocationExtent(width, height, f)

	dev := stream.Device()
	mem, err := dev.AllocatePitched(ext.WidthBytes, ext.Rows, stream)
	if err != nil {
		return nil, &AllocationError{Extent: ext, Err: err}
	}

	Logger().Debug("devimage: image created",
		"device", dev.Name(),
		"format", f,
		"width", width,
		"height", height,
		"pitch", mem.Pitch)

	return &DeviceImage{
		mem:        mem,
		width:      width,
		height:     height,
		format:     f,
		colorSpace: cs,
		colorRange: cr,
	}, nil
}

// Wrap adopts existing pitched memory as an image. The memory is freed
// by Close.
//
// Wrap does not check that mem is large enough for width x height pixels
// of format f. The caller guarantees it; Upload, Download and Convert
// still refuse to touch bytes past mem's extent. Unknown color metadata
// is not checked either; Convert rejects it.
func Wrap(mem substrate.PitchedMemory, width, height int, f pixfmt.PixelFormat, cs pixfmt.ColorSpace, cr pixfmt.ColorRange) *DeviceImage {
	return &DeviceImage{
		mem:        mem,
		width:      width,
		height:     height,
		format:     f,
		colorSpace: cs,
		colorRange: cr,
	}
}

// Width returns the logical width in pixels.
func (img *DeviceImage) Width() int { return img.width }

// Height returns the logical height in pixels.
func (img *DeviceImage) Height() int { return img.height }

// Format returns the pixel format.
func (img *DeviceImage) Format() pixfmt.PixelFormat { return img.format }

// ColorSpace returns the color space tag.
func (img *DeviceImage) ColorSpace() pixfmt.ColorSpace { return img.colorSpace }

// ColorRange returns the color range tag.
func (img *DeviceImage) ColorRange() pixfmt.ColorRange { return img.colorRange }

// Pitch returns the distance in bytes between the starts of two rows.
func (img *DeviceImage) Pitch() int { return img.mem.Pitch }

// Extent returns the allocated extent, which may exceed the logical one.
func (img *DeviceImage) Extent() pixfmt.Extent { return img.mem.Extent() }

// Memory returns the backing memory handle. The image keeps ownership.
func (img *DeviceImage) Memory() substrate.PitchedMemory { return img.mem }

// Closed reports whether the image was closed or released.
func (img *DeviceImage) Closed() bool { return img == nil || img.closed }

// logicalExtent is the part of the allocation holding pixels.
func (img *DeviceImage) logicalExtent() pixfmt.Extent {
	return pixfmt.AllocationExtent(img.width, img.height, img.format)
}

// WithRawPointer calls fn with the base device address and pitch of the
// image. It is the only way to reach the raw pointer.
//
// op names the operation for logs; extent is what fn will touch and must
// lie within the allocation. Nothing checks what fn actually does with
// the pointer.
func (img *DeviceImage) WithRawPointer(op string, extent pixfmt.Extent, fn func(ptr substrate.DevicePtr, pitch int) error) error {
	if img.Closed() {
		return ErrImageClosed
	}
	if extent.WidthBytes < 0 || extent.Rows < 0 || !img.mem.Extent().Contains(extent) {
		return fmt.Errorf("%w: %s needs %s, allocation is %s", ErrExtentOutOfRange, op, extent, img.mem.Extent())
	}
	Logger().Debug("devimage: raw pointer access",
		"op", op,
		"ptr", img.mem.Ptr,
		"pitch", img.mem.Pitch,
		"extent", extent)
	return fn(img.mem.Ptr, img.mem.Pitch)
}

// Upload enqueues a copy of the image's pixels from host memory laid out
// with srcPitch bytes per row. src must not change until the stream is
// synchronized.
func (img *DeviceImage) Upload(src []byte, srcPitch int, stream substrate.Stream) error {
	ext, err := img.transferExtent()
	if err != nil {
		return err
	}
	err = stream.Device().CopyToDevice(img.mem.Ptr, img.mem.Pitch, src, srcPitch, ext.WidthBytes, ext.Rows, stream)
	if err != nil {
		return fmt.Errorf("devimage: upload: %w", err)
	}
	return nil
}

// Download enqueues a copy of the image's pixels into host memory laid
// out with dstPitch bytes per row. dst holds the pixels once the stream
// is synchronized.
func (img *DeviceImage) Download(dst []byte, dstPitch int, stream substrate.Stream) error {
	ext, err := img.transferExtent()
	if err != nil {
		return err
	}
	err = stream.Device().CopyFromDevice(dst, dstPitch, img.mem.Ptr, img.mem.Pitch, ext.WidthBytes, ext.Rows, stream)
	if err != nil {
		return fmt.Errorf("devimage: download: %w", err)
	}
	return nil
}

func (img *DeviceImage) transferExtent() (pixfmt.Extent, error) {
	if img.Closed() {
		return pixfmt.Extent{}, ErrImageClosed
	}
	ext := img.logicalExtent()
	if !img.mem.Extent().Contains(ext) {
		return pixfmt.Extent{}, fmt.Errorf("%w: %s image needs %s, allocation is %s",
			ErrExtentOutOfRange, img.format, ext, img.mem.Extent())
	}
	return ext, nil
}

// ConvertTo allocates an image of the same size and color metadata in
// format target and enqueues the conversion on stream. It does not wait
// for the conversion to run.
//
// When the conversion cannot be enqueued the new image is released and
// the error returned.
func (img *DeviceImage) ConvertTo(target pixfmt.PixelFormat, stream substrate.Stream) (*DeviceImage, error) {
	if img.Closed() {
		return nil, ErrImageClosed
	}
	if !Supported(img.format, target) {
		return nil, &UnsupportedConversionError{From: img.format, To: target}
	}

	dst, err := New(img.width, img.height, target, img.colorSpace, img.colorRange, stream)
	if err != nil {
		return nil, err
	}
	if err := Convert(img, dst, stream); err != nil {
		if cerr := dst.Close(); cerr != nil {
			Logger().Warn("devimage: release after failed conversion", "err", cerr)
		}
		return nil, err
	}
	return dst, nil
}

// Close frees the image memory through its device. The free is ordered
// after work already enqueued on every stream that used the image. Close is
// idempotent; every other method fails with ErrImageClosed afterwards.
func (img *DeviceImage) Close() error {
	if img.Closed() {
		return nil
	}
	img.closed = true
	mem := img.mem
	img.mem = substrate.PitchedMemory{}
	mem.Free()
	return nil
}

// Release transfers ownership of the memory to the caller and closes the
// image without freeing. A closed image releases a null handle.
func (img *DeviceImage) Release() substrate.PitchedMemory {
	if img.Closed() {
		return substrate.PitchedMemory{}
	}
	img.closed = true
	mem := img.mem
	img.mem = substrate.PitchedMemory{}
	return mem
}

// String implements fmt.Stringer.
func (img *DeviceImage) String() string {
	if img.Closed() {
		return "DeviceImage(closed)"
	}
	return fmt.Sprintf("DeviceImage(%dx%d %s %s/%s, %s)",
		img.width, img.height, img.format, img.colorSpace, img.colorRange, img.mem)
}

func checkColor(cs pixfmt.ColorSpace, cr pixfmt.ColorRange) error {
	if !cs.IsValid() || !cr.IsValid() {
		return fmt.Errorf("%w: %s/%s", ErrInvalidColorMetadata, cs, cr)
	}
	return nil
}
