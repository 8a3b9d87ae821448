// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package substrate

import (
	"context"
	"testing"
)

type freeRecorder struct {
	freed []DevicePtr
}

func (f *freeRecorder) Name() string { return "recorder" }
func (f *freeRecorder) AllocatePitched(int, int, Stream) (PitchedMemory, error) {
	return PitchedMemory{}, ErrOutOfMemory
}
func (f *freeRecorder) Free(ptr DevicePtr)                  { f.freed = append(f.freed, ptr) }
func (f *freeRecorder) Launch(Routine, Args, Stream) Status { return StatusNotSupported }
func (f *freeRecorder) StatusText(st Status) string         { return DefaultStatusText(st) }
func (f *freeRecorder) CopyToDevice(DevicePtr, int, []byte, int, int, int, Stream) error {
	return nil
}
func (f *freeRecorder) CopyFromDevice([]byte, int, DevicePtr, int, int, int, Stream) error {
	return nil
}

type nopStream struct{ dev Device }

func (s nopStream) Device() Device                    { return s.dev }
func (s nopStream) Synchronize(context.Context) error { return nil }

var (
	_ Device = (*freeRecorder)(nil)
	_ Stream = nopStream{}
)

func TestPitchedMemoryFree(t *testing.T) {
	rec := &freeRecorder{}
	NewPitchedMemory(0x100, 256, 192, 4, rec).Free()
	NewPitchedMemory(NullPtr, 256, 192, 4, rec).Free()
	NewPitchedMemory(0x200, 256, 192, 4, nil).Free()

	if len(rec.freed) != 1 || rec.freed[0] != 0x100 {
		t.Errorf("freed = %v, want [0x100]", rec.freed)
	}
}

func TestPitchedMemoryAccessors(t *testing.T) {
	rec := &freeRecorder{}
	m := NewPitchedMemory(0xabc, 256, 192, 64, rec)
	if m.Owner() != rec {
		t.Error("Owner() did not return the allocating device")
	}
	if m.IsNull() {
		t.Error("IsNull() = true for a non-zero pointer")
	}
	if got := m.Extent().String(); got != "192Bx64" {
		t.Errorf("Extent() = %s, want 192Bx64", got)
	}
	if got := m.String(); got != "0xabc pitch=256 extent=192Bx64" {
		t.Errorf("String() = %q", got)
	}
}

func TestAlignPitch(t *testing.T) {
	tests := []struct {
		width, align, want int
	}{
		{192, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{3, 4, 4},
		{7, 1, 7},
		{7, 0, 7},
	}
	for _, tt := range tests {
		if got := AlignPitch(tt.width, tt.align); got != tt.want {
			t.Errorf("AlignPitch(%d, %d) = %d, want %d", tt.width, tt.align, got, tt.want)
		}
	}
}

func TestCheckHostCopy(t *testing.T) {
	tests := []struct {
		name                 string
		size, pitch, w, rows int
		ok                   bool
	}{
		{"exact", 192 * 64, 192, 192, 64, true},
		{"padded last row omitted", 255*63 + 192, 255, 192, 64, true},
		{"short buffer", 192*64 - 1, 192, 192, 64, false},
		{"narrow pitch", 4096, 100, 192, 2, false},
		{"zero rows", 4096, 192, 192, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckHostCopy(make([]byte, tt.size), tt.pitch, tt.w, tt.rows)
			if (err == nil) != tt.ok {
				t.Errorf("CheckHostCopy error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
