package backend

import (
	"errors"

	"github.com/gogpu/devimage/substrate"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot open a device on this machine.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Device is a substrate device that can create its own streams.
//
// devimage itself only needs substrate.Device and substrate.Stream; this
// interface adds the lifecycle a program needs to obtain them.
type Device interface {
	substrate.Device

	// OpenStream creates a new ordered stream on the device. The stream
	// must be closed before the device.
	OpenStream() (Stream, error)

	// Close releases all device resources.
	// The device should not be used after Close is called.
	Close() error
}

// Stream is a substrate stream that can be closed.
type Stream interface {
	substrate.Stream

	// Close waits for queued work and releases the stream.
	Close() error
}
