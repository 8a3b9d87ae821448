// Package image provides pitched host buffers backing device allocations
// of the host substrate.
//
// A Buf is a rows x pitch byte region of which the first WidthBytes of
// each row are usable. Buffers are recycled through a Pool keyed by their
// geometry.
package image

import (
	"errors"
	"fmt"
)

// Common errors for buffer operations.
var (
	// ErrInvalidDimensions is returned when width or rows is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrInvalidStride is returned when pitch is less than the row width.
	ErrInvalidStride = errors.New("image: pitch too small for width")

	// ErrDataTooSmall is returned when a host slice cannot hold the copy.
	ErrDataTooSmall = errors.New("image: data buffer too small")
)

// Buf is a pitched byte buffer.
//
// Thread safety: Buf is not synchronized. The host substrate serializes
// access through its streams.
type Buf struct {
	data       []byte
	widthBytes int
	rows       int
	pitch      int
}

// NewBuf creates a zeroed buffer of rows rows, each pitch bytes apart.
func NewBuf(widthBytes, rows, pitch int) (*Buf, error) {
	if widthBytes <= 0 || rows <= 0 {
		return nil, ErrInvalidDimensions
	}
	if pitch < widthBytes {
		return nil, ErrInvalidStride
	}
	return &Buf{
		data:       make([]byte, pitch*rows),
		widthBytes: widthBytes,
		rows:       rows,
		pitch:      pitch,
	}, nil
}

// WidthBytes returns the usable bytes per row.
func (b *Buf) WidthBytes() int { return b.widthBytes }

// Rows returns the number of rows.
func (b *Buf) Rows() int { return b.rows }

// Pitch returns the distance in bytes between row starts.
func (b *Buf) Pitch() int { return b.pitch }

// Data returns the underlying storage, padding included.
func (b *Buf) Data() []byte { return b.data }

// ByteSize returns the total storage size in bytes.
func (b *Buf) ByteSize() int { return len(b.data) }

// Row returns the usable bytes of row y.
// Returns nil if y is out of bounds.
func (b *Buf) Row(y int) []byte {
	if y < 0 || y >= b.rows {
		return nil
	}
	off := y * b.pitch
	return b.data[off : off+b.widthBytes]
}

// Clear zeroes the whole buffer.
func (b *Buf) Clear() {
	clear(b.data)
}

// CopyIn copies widthBytes x rows from a pitched host slice into the top-left
// corner of the buffer.
func (b *Buf) CopyIn(src []byte, srcPitch, widthBytes, rows int) error {
	if err := b.checkRegion(len(src), srcPitch, widthBytes, rows); err != nil {
		return err
	}
	for y := range rows {
		s := y * srcPitch
		copy(b.data[y*b.pitch:y*b.pitch+widthBytes], src[s:s+widthBytes])
	}
	return nil
}

// CopyOut copies widthBytes x rows from the top-left corner of the buffer into
// a pitched host slice.
func (b *Buf) CopyOut(dst []byte, dstPitch, widthBytes, rows int) error {
	if err := b.checkRegion(len(dst), dstPitch, widthBytes, rows); err != nil {
		return err
	}
	for y := range rows {
		d := y * dstPitch
		copy(dst[d:d+widthBytes], b.data[y*b.pitch:y*b.pitch+widthBytes])
	}
	return nil
}

func (b *Buf) checkRegion(hostLen, hostPitch, widthBytes, rows int) error {
	if widthBytes <= 0 || rows <= 0 {
		return ErrInvalidDimensions
	}
	if widthBytes > b.widthBytes || rows > b.rows {
		return fmt.Errorf("%w: region %dBx%d exceeds buffer %dBx%d",
			ErrInvalidDimensions, widthBytes, rows, b.widthBytes, b.rows)
	}
	if hostPitch < widthBytes {
		return ErrInvalidStride
	}
	if need := (rows-1)*hostPitch + widthBytes; hostLen < need {
		return fmt.Errorf("%w: have %d, need %d", ErrDataTooSmall, hostLen, need)
	}
	return nil
}
