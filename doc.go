// Package devimage provides images resident in pitched device memory and
// pixel-format conversion between them.
//
// # Overview
//
// A [DeviceImage] is a width x height image in one of the formats of
// package pixfmt, stored in row-aligned device memory allocated through a
// [substrate.Device]. Conversions pick the native routine for a
// (source, destination) format pair and run it asynchronously on a
// [substrate.Stream].
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/devimage"
//		"github.com/gogpu/devimage/backend/host"
//		"github.com/gogpu/devimage/pixfmt"
//	)
//
//	dev := host.New()
//	defer dev.Close()
//	stream := dev.NewStream()
//	defer stream.Close()
//
//	img, err := devimage.New(64, 64, pixfmt.RGB, pixfmt.BT709, pixfmt.Limited, stream)
//	if err != nil {
//		return err
//	}
//	defer img.Close()
//
//	_ = img.Upload(pixels, 64*3, stream)
//	nv12, err := img.ConvertTo(pixfmt.NV12, stream)
//	if err != nil {
//		return err
//	}
//	defer nv12.Close()
//	if err := stream.Synchronize(ctx); err != nil {
//		return err
//	}
//
// # Memory Layout
//
// Rows are Pitch() bytes apart. Interleaved formats use width*channels
// bytes per row; NV12 stores the luma plane (height rows of width bytes)
// followed by the interleaved Cb/Cr plane (height/2 rows of width bytes)
// in the same allocation. The pitch is chosen by the device and never
// changes.
//
// # Ordering
//
// Nothing in this package waits for the device. Upload, Convert,
// ConvertTo and Download enqueue work; host buffers passed to Upload and
// Download must stay untouched until the stream is synchronized. Close
// frees memory only after every stream that used the image has drained
// the work enqueued before it, so closing an image that pending work
// still reads is safe.
//
// # Color
//
// Images carry a color space and range tag. Conversions to or from NV12
// use the tag of the NV12 side; BT.601 limited, BT.709 limited and
// BT.709 full map to dedicated routines and anything else to the
// color twist routine.
package devimage
