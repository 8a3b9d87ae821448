// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package host implements substrate.Device in process.
//
// Device memory is emulated: each allocation is a pitched host buffer
// published at a synthetic device address, so device pointers are opaque
// and never dereferenceable by callers. Streams are goroutines draining
// an ordered queue; kernels split their rows across a bounded set of
// workers.
//
// The host device is the reference substrate. It runs everywhere, is
// bit-exact with internal/kernel, and is what the devimage tests run on.
//
//	dev := host.New(host.WithPitchAlignment(256))
//	defer dev.Close()
//	stream := dev.NewStream()
//	defer stream.Close()
//
// The package registers itself with package backend under the name
// "host".
package host
