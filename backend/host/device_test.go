// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package host

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/gogpu/devimage/backend"
	"github.com/gogpu/devimage/internal/kernel"
	"github.com/gogpu/devimage/pixfmt"
	"github.com/gogpu/devimage/substrate"
)

func newTestDevice(t *testing.T, opts ...Option) (*Device, *Stream) {
	t.Helper()
	dev := New(opts...)
	s := dev.NewStream()
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("stream Close: %v", err)
		}
		if err := dev.Close(); err != nil {
			t.Errorf("device Close: %v", err)
		}
	})
	return dev, s
}

func syncStream(t *testing.T, s *Stream) {
	t.Helper()
	if err := s.Synchronize(context.Background()); err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
}

func randomBytes(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.UintN(256))
	}
	return b
}

func TestAllocatePitched(t *testing.T) {
	tests := []struct {
		name      string
		alignment int
		width     int
		rows      int
		wantPitch int
	}{
		{"default alignment", 0, 192, 64, 256},
		{"exact multiple", 256, 256, 4, 256},
		{"custom alignment", 64, 100, 3, 128},
		{"no alignment", 1, 99, 2, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.alignment > 0 {
				opts = append(opts, WithPitchAlignment(tt.alignment))
			}
			dev, s := newTestDevice(t, opts...)

			mem, err := dev.AllocatePitched(tt.width, tt.rows, s)
			if err != nil {
				t.Fatalf("AllocatePitched: %v", err)
			}
			if mem.IsNull() {
				t.Fatal("AllocatePitched returned a null pointer")
			}
			if mem.Pitch != tt.wantPitch {
				t.Errorf("Pitch = %d, want %d", mem.Pitch, tt.wantPitch)
			}
			if mem.WidthBytes != tt.width || mem.Rows != tt.rows {
				t.Errorf("extent = %s, want %dBx%d", mem.Extent(), tt.width, tt.rows)
			}
			if mem.Owner() != substrate.Device(dev) {
				t.Error("Owner() is not the allocating device")
			}
			if got := dev.MemoryInUse(); got != int64(tt.wantPitch*tt.rows) {
				t.Errorf("MemoryInUse = %d, want %d", got, tt.wantPitch*tt.rows)
			}
			mem.Free()
		})
	}
}

func TestAllocatePitched_DistinctAddresses(t *testing.T) {
	dev, s := newTestDevice(t)
	seen := make(map[substrate.DevicePtr]bool)
	for range 8 {
		mem, err := dev.AllocatePitched(64, 8, s)
		if err != nil {
			t.Fatal(err)
		}
		if seen[mem.Ptr] {
			t.Fatalf("address %s handed out twice", mem.Ptr)
		}
		seen[mem.Ptr] = true
	}
}

func TestAllocatePitched_Errors(t *testing.T) {
	dev, s := newTestDevice(t)
	other := New()
	defer other.Close()
	foreign := other.NewStream()
	defer foreign.Close()

	if _, err := dev.AllocatePitched(64, 8, foreign); !errors.Is(err, ErrForeignStream) {
		t.Errorf("foreign stream: err = %v, want ErrForeignStream", err)
	}
	if _, err := dev.AllocatePitched(0, 8, s); err == nil {
		t.Error("zero width: expected error")
	}
}

func TestMemoryLimit(t *testing.T) {
	dev, s := newTestDevice(t, WithPitchAlignment(256), WithMemoryLimit(256*64))

	first, err := dev.AllocatePitched(192, 64, s)
	if err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	if _, err := dev.AllocatePitched(192, 64, s); !errors.Is(err, substrate.ErrOutOfMemory) {
		t.Fatalf("second allocation: err = %v, want ErrOutOfMemory", err)
	}

	first.Free()
	syncStream(t, s)
	if got := dev.MemoryInUse(); got != 0 {
		t.Fatalf("MemoryInUse after free = %d, want 0", got)
	}
	if _, err := dev.AllocatePitched(192, 64, s); err != nil {
		t.Errorf("allocation after free: %v", err)
	}
}

func TestCopyRoundTrip(t *testing.T) {
	dev, s := newTestDevice(t)
	const w, rows = 30, 5
	mem, err := dev.AllocatePitched(w, rows, s)
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Free()

	src := randomBytes(w*rows, 1)
	if err := dev.CopyToDevice(mem.Ptr, mem.Pitch, src, w, w, rows, s); err != nil {
		t.Fatalf("CopyToDevice: %v", err)
	}
	dst := make([]byte, 40*rows)
	if err := dev.CopyFromDevice(dst, 40, mem.Ptr, mem.Pitch, w, rows, s); err != nil {
		t.Fatalf("CopyFromDevice: %v", err)
	}
	syncStream(t, s)

	for y := range rows {
		if !bytes.Equal(dst[y*40:y*40+w], src[y*w:y*w+w]) {
			t.Fatalf("row %d differs", y)
		}
	}
}

func TestCopy_Errors(t *testing.T) {
	dev, s := newTestDevice(t)
	mem, err := dev.AllocatePitched(16, 4, s)
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Free()
	host := make([]byte, 64)

	tests := []struct {
		name  string
		ptr   substrate.DevicePtr
		pitch int
		width int
		rows  int
	}{
		{"unknown pointer", mem.Ptr + 1, mem.Pitch, 16, 4},
		{"wrong pitch", mem.Ptr, mem.Pitch * 2, 16, 4},
		{"too many rows", mem.Ptr, mem.Pitch, 16, 5},
		{"too wide", mem.Ptr, mem.Pitch, 17, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := dev.CopyToDevice(tt.ptr, tt.pitch, make([]byte, 1024), 32, tt.width, tt.rows, s); err == nil {
				t.Error("CopyToDevice: expected error")
			}
			if err := dev.CopyFromDevice(make([]byte, 1024), 32, tt.ptr, tt.pitch, tt.width, tt.rows, s); err == nil {
				t.Error("CopyFromDevice: expected error")
			}
		})
	}

	if err := dev.CopyToDevice(mem.Ptr, mem.Pitch, host[:10], 16, 16, 4, s); err == nil {
		t.Error("short host slice: expected error")
	}
}

func TestLaunch_Validation(t *testing.T) {
	dev, s := newTestDevice(t)
	src, _ := dev.AllocatePitched(192, 64, s)
	dst, _ := dev.AllocatePitched(64, 96, s)
	defer src.Free()
	defer dst.Free()

	good := substrate.Args{Src: src.Ptr, SrcPitch: src.Pitch, Dst: dst.Ptr, DstPitch: dst.Pitch, Width: 64, Height: 64}
	tests := []struct {
		name   string
		r      substrate.Routine
		mutate func(*substrate.Args)
		want   substrate.Status
	}{
		{"ok", substrate.RoutineRGBToNV12, func(*substrate.Args) {}, substrate.StatusSuccess},
		{"invalid routine", substrate.RoutineInvalid, func(*substrate.Args) {}, substrate.StatusNotSupported},
		{"null dst", substrate.RoutineRGBToNV12, func(a *substrate.Args) { a.Dst = substrate.NullPtr }, substrate.StatusNullPointer},
		{"unknown src", substrate.RoutineRGBToNV12, func(a *substrate.Args) { a.Src += 4 }, substrate.StatusNullPointer},
		{"wrong pitch", substrate.RoutineRGBToNV12, func(a *substrate.Args) { a.SrcPitch = 192 }, substrate.StatusStep},
		{"dst too small", substrate.RoutineRGBToRGBA, func(*substrate.Args) {}, substrate.StatusMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := good
			tt.mutate(&args)
			if got := dev.Launch(tt.r, args, s); got != tt.want {
				t.Errorf("Launch = %d (%s), want %d", got, dev.StatusText(got), tt.want)
			}
		})
	}
	syncStream(t, s)

	other := New()
	defer other.Close()
	foreign := other.NewStream()
	defer foreign.Close()
	if got := dev.Launch(substrate.RoutineRGBToNV12, good, foreign); got != substrate.StatusBadArgument {
		t.Errorf("foreign stream: Launch = %d, want StatusBadArgument", got)
	}
}

// TestLaunch_MatchesKernel checks that a parallel launch on pitched device
// memory is byte-identical to a single-threaded kernel run.
func TestLaunch_MatchesKernel(t *testing.T) {
	routines := []substrate.Routine{
		substrate.RoutineRGBToNV12ColorTwist,
		substrate.RoutineNV12ToBGR709HDTV,
		substrate.RoutineRGBToBGRA,
		substrate.RoutineRGBToHSV,
	}
	const w, h = 48, 34

	for _, r := range routines {
		t.Run(r.String(), func(t *testing.T) {
			dev, s := newTestDevice(t, WithWorkers(3), WithPitchAlignment(64))
			se, de := r.SrcExtent(w, h), r.DstExtent(w, h)
			src, err := dev.AllocatePitched(se.WidthBytes, se.Rows, s)
			if err != nil {
				t.Fatal(err)
			}
			dst, err := dev.AllocatePitched(de.WidthBytes, de.Rows, s)
			if err != nil {
				t.Fatal(err)
			}

			input := randomBytes(se.WidthBytes*se.Rows, uint64(r))
			if err := dev.CopyToDevice(src.Ptr, src.Pitch, input, se.WidthBytes, se.WidthBytes, se.Rows, s); err != nil {
				t.Fatal(err)
			}
			args := substrate.Args{
				Src: src.Ptr, SrcPitch: src.Pitch, Dst: dst.Ptr, DstPitch: dst.Pitch,
				Width: w, Height: h, ColorSpace: pixfmt.BT2020, ColorRange: pixfmt.Limited,
			}
			if st := dev.Launch(r, args, s); st != substrate.StatusSuccess {
				t.Fatalf("Launch = %s", dev.StatusText(st))
			}
			got := make([]byte, de.WidthBytes*de.Rows)
			if err := dev.CopyFromDevice(got, de.WidthBytes, dst.Ptr, dst.Pitch, de.WidthBytes, de.Rows, s); err != nil {
				t.Fatal(err)
			}
			src.Free()
			dst.Free()
			syncStream(t, s)

			// Reference: packed buffers, one call over every unit.
			refArgs := args
			refArgs.SrcPitch, refArgs.DstPitch = se.WidthBytes, de.WidthBytes
			want := make([]byte, len(got))
			kernel.Execute(r, refArgs, input, want, 0, kernel.Units(r, h))
			if !bytes.Equal(got, want) {
				t.Error("device result differs from reference kernel")
			}
		})
	}
}

func TestDeferredFree(t *testing.T) {
	dev, s := newTestDevice(t)
	const w, h = 16, 16
	src, _ := dev.AllocatePitched(w*3, h, s)
	dst, _ := dev.AllocatePitched(w*3, h, s)

	input := randomBytes(w*3*h, 7)
	if err := dev.CopyToDevice(src.Ptr, src.Pitch, input, w*3, w*3, h, s); err != nil {
		t.Fatal(err)
	}
	args := substrate.Args{Src: src.Ptr, SrcPitch: src.Pitch, Dst: dst.Ptr, DstPitch: dst.Pitch, Width: w, Height: h}
	if st := dev.Launch(substrate.RoutineSwapChannels8uC3, args, s); st != substrate.StatusSuccess {
		t.Fatalf("Launch = %s", dev.StatusText(st))
	}
	// Freed before the launch is known to have run.
	src.Free()

	// A new allocation of the same geometry must not alias the pending source.
	again, err := dev.AllocatePitched(w*3, h, s)
	if err != nil {
		t.Fatal(err)
	}
	zeros := make([]byte, w*3*h)
	if err := dev.CopyToDevice(again.Ptr, again.Pitch, zeros, w*3, w*3, h, s); err != nil {
		t.Fatal(err)
	}

	out := make([]byte, w*3*h)
	if err := dev.CopyFromDevice(out, w*3, dst.Ptr, dst.Pitch, w*3, h, s); err != nil {
		t.Fatal(err)
	}
	syncStream(t, s)

	for i := 0; i < len(out); i += 3 {
		if out[i] != input[i+2] || out[i+1] != input[i+1] || out[i+2] != input[i] {
			t.Fatalf("pixel %d = %v, want swapped %v", i/3, out[i:i+3], input[i:i+3])
		}
	}
	if st := dev.Launch(substrate.RoutineSwapChannels8uC3, args, s); st != substrate.StatusNullPointer {
		t.Errorf("launch on freed pointer = %d, want StatusNullPointer", st)
	}
	again.Free()
	dst.Free()
}

// TestFree_WaitsForEveryStream frees memory that a kernel queued on a
// second, busy stream still writes, then allocates the same geometry.
func TestFree_WaitsForEveryStream(t *testing.T) {
	dev, a := newTestDevice(t)
	b := dev.NewStream()
	defer b.Close()

	const w, h = 64, 64
	src, _ := dev.AllocatePitched(w*3, h, a)
	dst, _ := dev.AllocatePitched(w*3, h, a)
	input := randomBytes(w*3*h, 11)
	if err := dev.CopyToDevice(src.Ptr, src.Pitch, input, w*3, w*3, h, a); err != nil {
		t.Fatal(err)
	}
	syncStream(t, a)

	release := make(chan struct{})
	if err := b.enqueue(func() error {
		<-release
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	args := substrate.Args{Src: src.Ptr, SrcPitch: src.Pitch, Dst: dst.Ptr, DstPitch: dst.Pitch, Width: w, Height: h}
	if st := dev.Launch(substrate.RoutineSwapChannels8uC3, args, b); st != substrate.StatusSuccess {
		t.Fatalf("Launch = %s", dev.StatusText(st))
	}
	src.Free()
	dst.Free()
	syncStream(t, a)
	if got := dev.MemoryInUse(); got == 0 {
		t.Fatal("memory recycled while another stream still uses it")
	}

	fresh, err := dev.AllocatePitched(w*3, h, a)
	if err != nil {
		t.Fatal(err)
	}
	defer fresh.Free()
	close(release)
	syncStream(t, b)

	out := make([]byte, w*3*h)
	if err := dev.CopyFromDevice(out, w*3, fresh.Ptr, fresh.Pitch, w*3, h, a); err != nil {
		t.Fatal(err)
	}
	syncStream(t, a)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("fresh allocation byte %d = %d, written by a kernel on another stream", i, v)
		}
	}
	if got, want := dev.MemoryInUse(), int64(fresh.Pitch*h); got != want {
		t.Errorf("MemoryInUse = %d, want %d once both streams passed the free", got, want)
	}
}

func TestDeviceClose(t *testing.T) {
	dev := New()
	s := dev.NewStream()
	if _, err := dev.AllocatePitched(8, 8, s); err != nil {
		t.Fatal(err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.Synchronize(context.Background()); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Synchronize after device Close = %v, want ErrStreamClosed", err)
	}
	if _, err := dev.AllocatePitched(8, 8, dev.NewStream()); !errors.Is(err, ErrClosed) {
		t.Errorf("AllocatePitched after Close = %v, want ErrClosed", err)
	}
}

func TestRegistered(t *testing.T) {
	dev, err := backend.Open(backend.NameHost)
	if err != nil {
		t.Fatalf("backend.Open(host): %v", err)
	}
	defer dev.Close()

	s, err := dev.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer s.Close()
	if s.Device().Name() != "host" {
		t.Errorf("stream device name = %q", s.Device().Name())
	}
}
