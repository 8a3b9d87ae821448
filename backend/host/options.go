// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package host

import "runtime"

// Option configures a Device during creation.
//
// Example:
//
//	dev := host.New(
//	    host.WithPitchAlignment(512),
//	    host.WithMemoryLimit(64<<20),
//	)
type Option func(*options)

type options struct {
	name           string
	pitchAlignment int
	memoryLimit    int64
	workers        int
	queueDepth     int
}

// DefaultPitchAlignment is the row alignment used when none is configured.
// It matches the texture pitch alignment of common GPUs.
const DefaultPitchAlignment = 256

func defaultOptions() options {
	return options{
		name:           "host",
		pitchAlignment: DefaultPitchAlignment,
		workers:        runtime.GOMAXPROCS(0),
		queueDepth:     64,
	}
}

// WithName sets the name reported by Device.Name.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithPitchAlignment sets the row pitch alignment in bytes.
// Values that are not a positive power of two are ignored.
func WithPitchAlignment(bytes int) Option {
	return func(o *options) {
		if bytes > 0 && bytes&(bytes-1) == 0 {
			o.pitchAlignment = bytes
		}
	}
}

// WithMemoryLimit caps the total bytes of live allocations, padding
// included. Zero means unlimited. Allocations beyond the limit fail with
// substrate.ErrOutOfMemory.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		if bytes >= 0 {
			o.memoryLimit = bytes
		}
	}
}

// WithWorkers sets how many goroutines a single kernel launch may use.
// If n is 0 or negative, GOMAXPROCS is used.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithQueueDepth sets how many operations a stream buffers before
// enqueueing blocks.
func WithQueueDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueDepth = n
		}
	}
}
