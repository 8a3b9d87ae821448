package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gogpu/devimage/pixfmt"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"devimgdemo"}, args...))
	return out.String(), err
}

func TestConvert_Host(t *testing.T) {
	out, err := run(t, "--backend", "host", "--width", "32", "--height", "16",
		"--from", "rgb", "--to", "nv12", "--roundtrip")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"device:  host", "result:  DeviceImage(32x16 NV12", "round trip max difference:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown format", []string{"--backend", "host", "--from", "yuyv"}, "unknown pixel format"},
		{"unsupported", []string{"--backend", "host", "--from", "hsv", "--to", "nv12"}, "unsupported"},
		{"odd nv12", []string{"--backend", "host", "--from", "nv12", "--to", "rgb", "--width", "31"}, "invalid"},
		{"unknown backend", []string{"--backend", "metal9"}, "not available"},
		{"bad log level", []string{"--log-level", "loud"}, "log-level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestList(t *testing.T) {
	out, err := run(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "host") || !strings.Contains(out, "NV12  -> RGB, BGR, NV12") {
		t.Errorf("list output:\n%s", out)
	}
}

func TestTestPattern(t *testing.T) {
	for _, f := range pixfmt.Formats() {
		t.Run(f.String(), func(t *testing.T) {
			buf := testPattern(10, 6, f)
			ext := pixfmt.AllocationExtent(10, 6, f)
			if len(buf) != ext.WidthBytes*ext.Rows {
				t.Fatalf("len = %d, want %d", len(buf), ext.WidthBytes*ext.Rows)
			}
			if f.HasAlpha() && buf[3] != 0xFF {
				t.Error("alpha not opaque")
			}
		})
	}
}
