// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Option configures a Device during creation.
//
// Example:
//
//	dev, err := wgpu.New(
//	    wgpu.WithBackend(gputypes.BackendVulkan),
//	    wgpu.WithFenceTimeout(10*time.Second),
//	)
type Option func(*options)

type options struct {
	name           string
	backend        gputypes.Backend
	pitchAlignment int
	fenceTimeout   time.Duration
	queueDepth     int
}

// Defaults used when no option overrides them.
const (
	// DefaultPitchAlignment matches the texture row alignment WebGPU
	// requires for buffer-texture copies.
	DefaultPitchAlignment = 256

	// DefaultFenceTimeout bounds how long a stream waits for one
	// submission.
	DefaultFenceTimeout = 5 * time.Second
)

func defaultOptions() options {
	return options{
		backend:        gputypes.BackendVulkan,
		pitchAlignment: DefaultPitchAlignment,
		fenceTimeout:   DefaultFenceTimeout,
		queueDepth:     16,
	}
}

// WithName overrides the name reported by Device.Name. By default the
// adapter name is used.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithBackend selects the HAL backend New opens. It has no effect on
// shared devices.
func WithBackend(b gputypes.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithPitchAlignment sets the row pitch alignment in bytes.
// Values that are not a power of two of at least 4 are ignored.
func WithPitchAlignment(bytes int) Option {
	return func(o *options) {
		if bytes >= 4 && bytes&(bytes-1) == 0 {
			o.pitchAlignment = bytes
		}
	}
}

// WithFenceTimeout sets how long a stream waits for one submission
// before failing it.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fenceTimeout = d
		}
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
