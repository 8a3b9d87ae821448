package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gogpu/devimage"
	"github.com/gogpu/devimage/backend"
	"github.com/gogpu/devimage/pixfmt"
)

// job is a parsed conversion request.
type job struct {
	width, height int
	from, to      pixfmt.PixelFormat
	space         pixfmt.ColorSpace
	colorRange    pixfmt.ColorRange
}

func parseJob(ctx *cli.Context) (job, error) {
	var (
		j   = job{width: ctx.Int(widthFlag.Name), height: ctx.Int(heightFlag.Name)}
		err error
	)
	if j.from, err = pixfmt.ParsePixelFormat(ctx.String(fromFlag.Name)); err != nil {
		return j, err
	}
	if j.to, err = pixfmt.ParsePixelFormat(ctx.String(toFlag.Name)); err != nil {
		return j, err
	}
	if j.space, err = pixfmt.ParseColorSpace(ctx.String(spaceFlag.Name)); err != nil {
		return j, err
	}
	if j.colorRange, err = pixfmt.ParseColorRange(ctx.String(rangeFlag.Name)); err != nil {
		return j, err
	}
	if err := pixfmt.ValidateGeometry(j.width, j.height, j.from); err != nil {
		return j, err
	}
	if !devimage.Supported(j.from, j.to) {
		return j, &devimage.UnsupportedConversionError{From: j.from, To: j.to}
	}
	return j, nil
}

func openBackend(name string) (backend.Device, error) {
	if name == "" {
		return backend.Default()
	}
	return backend.Open(name)
}

func convert(ctx *cli.Context) error {
	j, err := parseJob(ctx)
	if err != nil {
		return err
	}

	dev, err := openBackend(ctx.String(backendFlag.Name))
	if err != nil {
		return err
	}
	defer dev.Close()
	stream, err := dev.OpenStream()
	if err != nil {
		return err
	}
	defer stream.Close()

	src, err := devimage.New(j.width, j.height, j.from, j.space, j.colorRange, stream)
	if err != nil {
		return err
	}
	defer src.Close()

	input := testPattern(j.width, j.height, j.from)
	inputPitch := j.from.RowBytes(j.width)
	if err := src.Upload(input, inputPitch, stream); err != nil {
		return err
	}

	start := time.Now()
	dst, err := src.ConvertTo(j.to, stream)
	if err != nil {
		return err
	}
	defer dst.Close()
	if err := stream.Synchronize(ctx.Context); err != nil {
		return err
	}
	elapsed := time.Since(start)

	w := ctx.App.Writer
	fmt.Fprintf(w, "device:  %s\n", dev.Name())
	fmt.Fprintf(w, "source:  %s\n", src)
	fmt.Fprintf(w, "result:  %s\n", dst)
	fmt.Fprintf(w, "convert: %s\n", elapsed)

	if path := ctx.String(outputFlag.Name); path != "" {
		out, err := download(ctx, dst, stream)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(w, "wrote:   %s (%d bytes)\n", path, len(out))
	}

	if ctx.Bool(roundTripFlag.Name) {
		if !devimage.Supported(j.to, j.from) {
			return &devimage.UnsupportedConversionError{From: j.to, To: j.from}
		}
		back, err := dst.ConvertTo(j.from, stream)
		if err != nil {
			return err
		}
		defer back.Close()
		out, err := download(ctx, back, stream)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "round trip max difference: %d\n", maxDiff(input, out))
	}
	return nil
}

// download copies an image into a tightly packed host buffer.
func download(ctx *cli.Context, img *devimage.DeviceImage, stream backend.Stream) ([]byte, error) {
	ext := pixfmt.AllocationExtent(img.Width(), img.Height(), img.Format())
	out := make([]byte, ext.WidthBytes*ext.Rows)
	if err := img.Download(out, ext.WidthBytes, stream); err != nil {
		return nil, err
	}
	if err := stream.Synchronize(ctx.Context); err != nil {
		return nil, err
	}
	return out, nil
}

// testPattern returns a packed image of format f: horizontal and
// vertical ramps in the first two channels, their mix in the third and
// opaque alpha. NV12 gets a luma ramp over neutral chroma.
func testPattern(width, height int, f pixfmt.PixelFormat) []byte {
	ext := pixfmt.AllocationExtent(width, height, f)
	buf := make([]byte, ext.WidthBytes*ext.Rows)

	if f.IsLumaChroma() {
		for y := range height {
			for x := range width {
				buf[y*width+x] = byte(16 + (x+y)*219/(width+height))
			}
		}
		for i := width * height; i < len(buf); i++ {
			buf[i] = 128
		}
		return buf
	}

	ch := f.Channels()
	for y := range height {
		for x := range width {
			i := y*ext.WidthBytes + x*ch
			buf[i] = byte(x * 255 / max(width-1, 1))
			buf[i+1] = byte(y * 255 / max(height-1, 1))
			buf[i+2] = byte((int(buf[i]) + int(buf[i+1])) / 2)
			if ch == 4 {
				buf[i+3] = 0xFF
			}
		}
	}
	return buf
}

func maxDiff(a, b []byte) int {
	d := 0
	for i := range min(len(a), len(b)) {
		v := int(a[i]) - int(b[i])
		if v < 0 {
			v = -v
		}
		d = max(d, v)
	}
	return d
}
