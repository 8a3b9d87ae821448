// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package substrate

import (
	"strings"
	"testing"

	"github.com/gogpu/devimage/pixfmt"
)

func TestRoutineTableComplete(t *testing.T) {
	seen := make(map[string]Routine)
	for _, r := range Routines() {
		info := r.Info()
		if info.Name == "" {
			t.Errorf("routine %d has no table entry", uint16(r))
			continue
		}
		if prev, ok := seen[info.Name]; ok {
			t.Errorf("routines %d and %d share name %q", uint16(prev), uint16(r), info.Name)
		}
		seen[info.Name] = r
		if info.Kind == 0 || info.Src == 0 || info.Dst == 0 {
			t.Errorf("%s: incomplete info %+v", r, info)
		}
		if (info.Kind == KindNV12ToRGB || info.Kind == KindRGBToNV12) && !info.ColorTwist {
			if !info.Space.IsValid() || !info.Range.IsValid() {
				t.Errorf("%s: fixed variant without color params", r)
			}
		}
	}
	if got := len(Routines()); got != int(routineCount)-1 {
		t.Errorf("len(Routines()) = %d, want %d", got, routineCount-1)
	}
}

func TestRoutineInvalid(t *testing.T) {
	for _, r := range []Routine{RoutineInvalid, routineCount, 999} {
		if r.IsValid() {
			t.Errorf("%d.IsValid() = true", uint16(r))
		}
		if r.Info() != (RoutineInfo{}) {
			t.Errorf("%d.Info() is not zero", uint16(r))
		}
		if !strings.HasPrefix(r.String(), "Routine(") {
			t.Errorf("%d.String() = %q", uint16(r), r.String())
		}
	}
}

func TestColorParams(t *testing.T) {
	args := Args{ColorSpace: pixfmt.BT2020, ColorRange: pixfmt.Full}
	tests := []struct {
		r     Routine
		space pixfmt.ColorSpace
		rng   pixfmt.ColorRange
	}{
		{RoutineNV12ToRGB, pixfmt.BT601, pixfmt.Limited},
		{RoutineNV12ToBGR709CSC, pixfmt.BT709, pixfmt.Limited},
		{RoutineRGBToNV12709HDTV, pixfmt.BT709, pixfmt.Full},
		{RoutineBGRToNV12ColorTwist, pixfmt.BT2020, pixfmt.Full},
	}
	for _, tt := range tests {
		t.Run(tt.r.String(), func(t *testing.T) {
			cs, cr := tt.r.ColorParams(args)
			if cs != tt.space || cr != tt.rng {
				t.Errorf("ColorParams = (%v, %v), want (%v, %v)", cs, cr, tt.space, tt.rng)
			}
		})
	}
}

func TestRoutineExtents(t *testing.T) {
	if got := RoutineRGBToNV12.SrcExtent(64, 64); got != (pixfmt.Extent{WidthBytes: 192, Rows: 64}) {
		t.Errorf("SrcExtent = %v", got)
	}
	if got := RoutineRGBToNV12.DstExtent(64, 64); got != (pixfmt.Extent{WidthBytes: 64, Rows: 96}) {
		t.Errorf("DstExtent = %v", got)
	}
	if got := RoutineRGBToBGRA.DstExtent(10, 4); got != (pixfmt.Extent{WidthBytes: 40, Rows: 4}) {
		t.Errorf("DstExtent = %v", got)
	}

	// Routine extents are the allocation extents of their formats.
	for _, f := range pixfmt.Formats() {
		for _, r := range Routines() {
			if r.Info().Src == f.Info().Family && r.SrcExtent(22, 14) != pixfmt.AllocationExtent(22, 14, f) {
				t.Errorf("%s SrcExtent differs from %s allocation", r, f)
			}
			if r.Info().Dst == f.Info().Family && r.DstExtent(22, 14) != pixfmt.AllocationExtent(22, 14, f) {
				t.Errorf("%s DstExtent differs from %s allocation", r, f)
			}
		}
	}
}

func TestValidateArgs(t *testing.T) {
	src := NewPitchedMemory(0x1000, 256, 192, 64, nil)
	dst := NewPitchedMemory(0x9000, 128, 64, 96, nil)
	good := Args{Src: src.Ptr, SrcPitch: 256, Dst: dst.Ptr, DstPitch: 128, Width: 64, Height: 64}

	tests := []struct {
		name   string
		r      Routine
		mutate func(a *Args)
		want   Status
	}{
		{"ok", RoutineRGBToNV12, func(*Args) {}, StatusSuccess},
		{"invalid routine", RoutineInvalid, func(*Args) {}, StatusNotSupported},
		{"null src", RoutineRGBToNV12, func(a *Args) { a.Src = NullPtr }, StatusNullPointer},
		{"null dst", RoutineRGBToNV12, func(a *Args) { a.Dst = NullPtr }, StatusNullPointer},
		{"unknown color space", RoutineRGBToNV12, func(a *Args) { a.ColorSpace = pixfmt.ColorSpace(42) }, StatusBadArgument},
		{"unknown color range", RoutineRGBToNV12, func(a *Args) { a.ColorRange = pixfmt.ColorRange(9) }, StatusBadArgument},
		{"zero width", RoutineRGBToNV12, func(a *Args) { a.Width = 0 }, StatusSize},
		{"odd height", RoutineRGBToNV12, func(a *Args) { a.Height = 63 }, StatusSize},
		{"narrow pitch", RoutineRGBToNV12, func(a *Args) { a.DstPitch = 32 }, StatusStep},
		{"pitch mismatch", RoutineRGBToNV12, func(a *Args) { a.SrcPitch = 512 }, StatusStep},
		{"too tall", RoutineRGBToNV12, func(a *Args) { a.Height = 80 }, StatusMemory},
		{"smaller roi", RoutineRGBToNV12, func(a *Args) { a.Width, a.Height = 32, 32 }, StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := good
			tt.mutate(&args)
			if got := ValidateArgs(tt.r, args, src, dst); got != tt.want {
				t.Errorf("ValidateArgs = %d (%s), want %d (%s)",
					got, DefaultStatusText(got), tt.want, DefaultStatusText(tt.want))
			}
		})
	}
}

func TestDefaultStatusText(t *testing.T) {
	if got := DefaultStatusText(StatusStep); got != "invalid line step" {
		t.Errorf("DefaultStatusText(StatusStep) = %q", got)
	}
	if got := DefaultStatusText(-42); got != "status -42" {
		t.Errorf("DefaultStatusText(-42) = %q", got)
	}
}
