// Command devimgdemo converts a generated test image between pixel
// formats on a devimage backend and reports the result.
//
//	devimgdemo --backend host --from rgb --to nv12 --roundtrip
//	devimgdemo list
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/gogpu/devimage"
	"github.com/gogpu/devimage/backend"
	"github.com/gogpu/devimage/backend/host"
	"github.com/gogpu/devimage/backend/wgpu"
	"github.com/gogpu/devimage/pixfmt"
)

var (
	backendFlag = &cli.StringFlag{
		Name:  "backend",
		Usage: "substrate backend (" + strings.Join(backend.Available(), ", ") + "); empty picks the best available",
	}
	widthFlag = &cli.IntFlag{
		Name:  "width",
		Usage: "image width in pixels",
		Value: 640,
	}
	heightFlag = &cli.IntFlag{
		Name:  "height",
		Usage: "image height in pixels",
		Value: 480,
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "source pixel format",
		Value: "rgb",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "destination pixel format",
		Value: "nv12",
	}
	spaceFlag = &cli.StringFlag{
		Name:  "space",
		Usage: "Y'CbCr color space (bt601, bt709, bt2020)",
		Value: "bt709",
	}
	rangeFlag = &cli.StringFlag{
		Name:  "range",
		Usage: "Y'CbCr range (limited, full)",
		Value: "limited",
	}
	roundTripFlag = &cli.BoolFlag{
		Name:  "roundtrip",
		Usage: "convert back to the source format and report the largest difference",
	}
	outputFlag = &cli.StringFlag{
		Name:  "output",
		Usage: "write the converted pixels, tightly packed, to this file",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (debug, info, warn, error)",
		Value: "warn",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "devimgdemo",
		Usage: "pixel format conversion on device memory",
		Flags: []cli.Flag{
			backendFlag,
			widthFlag,
			heightFlag,
			fromFlag,
			toFlag,
			spaceFlag,
			rangeFlag,
			roundTripFlag,
			outputFlag,
			logLevelFlag,
		},
		Before: setupLogging,
		Action: convert,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list backends and supported conversions",
				Action: list,
			},
		},
	}
}

func setupLogging(ctx *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(ctx.String(logLevelFlag.Name))); err != nil {
		return fmt.Errorf("invalid --%s: %w", logLevelFlag.Name, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	devimage.SetLogger(logger)
	host.SetLogger(logger)
	wgpu.SetLogger(logger)
	return nil
}

func list(ctx *cli.Context) error {
	w := ctx.App.Writer
	fmt.Fprintf(w, "backends: %s\n", strings.Join(backend.Available(), ", "))
	fmt.Fprintln(w, "conversions:")
	for _, src := range pixfmt.Formats() {
		var dsts []string
		for _, dst := range pixfmt.Formats() {
			if devimage.Supported(src, dst) {
				dsts = append(dsts, dst.String())
			}
		}
		fmt.Fprintf(w, "  %-5s -> %s\n", src, strings.Join(dsts, ", "))
	}
	return nil
}
