// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package substrate

import (
	"fmt"

	"github.com/gogpu/devimage/pixfmt"
)

// PitchedMemory is a 2D region of device memory. Rows start every Pitch
// bytes; the first WidthBytes of each row are usable.
//
// A PitchedMemory value is a handle: copying the struct does not copy
// the memory. Exactly one owner may call Free.
type PitchedMemory struct {
	Ptr        DevicePtr
	Pitch      int
	WidthBytes int
	Rows       int

	owner Device
}

// NewPitchedMemory builds a handle for memory allocated by owner.
// It is meant for Device implementations.
func NewPitchedMemory(ptr DevicePtr, pitch, widthBytes, rows int, owner Device) PitchedMemory {
	return PitchedMemory{
		Ptr:        ptr,
		Pitch:      pitch,
		WidthBytes: widthBytes,
		Rows:       rows,
		owner:      owner,
	}
}

// Owner returns the device that allocated the memory, or nil.
func (m PitchedMemory) Owner() Device {
	return m.owner
}

// Extent returns the usable extent of the allocation.
func (m PitchedMemory) Extent() pixfmt.Extent {
	return pixfmt.Extent{WidthBytes: m.WidthBytes, Rows: m.Rows}
}

// IsNull reports whether the handle refers to no memory.
func (m PitchedMemory) IsNull() bool {
	return m.Ptr == NullPtr
}

// Free releases the memory through its owning device.
// It is a no-op for a null handle or memory without an owner.
func (m PitchedMemory) Free() {
	if m.IsNull() || m.owner == nil {
		return
	}
	m.owner.Free(m.Ptr)
}

// String implements fmt.Stringer.
func (m PitchedMemory) String() string {
	return fmt.Sprintf("%s pitch=%d extent=%dBx%d", m.Ptr, m.Pitch, m.WidthBytes, m.Rows)
}

// AlignPitch rounds widthBytes up to a multiple of alignment.
// alignment must be a power of two.
func AlignPitch(widthBytes, alignment int) int {
	if alignment <= 1 {
		return widthBytes
	}
	return (widthBytes + alignment - 1) &^ (alignment - 1)
}
