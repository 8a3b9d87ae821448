package wgpu

import (
	"context"
	"errors"

	"github.com/gogpu/devimage/internal/queue"
	"github.com/gogpu/devimage/substrate"
)

// Stream is an ordered queue of GPU operations. Each operation is
// submitted and waited on before the next one starts.
//
// An operation that fails does not stop the stream; the first failure is
// kept and reported by the next Synchronize or Close.
type Stream struct {
	dev *Device
	q   *queue.Queue
}

var _ substrate.Stream = (*Stream)(nil)

// NewStream creates a stream on the device. Streams must be closed.
// On a closed device the stream is returned already closed.
func (d *Device) NewStream() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &Stream{dev: d, q: queue.NewClosed()}
	}
	s := &Stream{
		dev: d,
		q: queue.New(d.opts.queueDepth, func(err error) {
			slogger().Warn("wgpu: stream operation failed", "err", err)
		}),
	}
	d.streams[s] = struct{}{}
	return s
}

// Device implements substrate.Stream.
func (s *Stream) Device() substrate.Device { return s.dev }

// Synchronize implements substrate.Stream.
func (s *Stream) Synchronize(ctx context.Context) error {
	if err := s.q.Sync(ctx); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrStreamClosed
		}
		return err
	}
	return nil
}

// Close waits for queued operations and stops the stream.
// It is safe to call Close more than once.
func (s *Stream) Close() error {
	err := s.q.Close()

	s.dev.mu.Lock()
	delete(s.dev.streams, s)
	s.dev.mu.Unlock()
	return err
}

func (s *Stream) enqueue(op func() error) error {
	if err := s.q.Enqueue(op); err != nil {
		return ErrStreamClosed
	}
	return nil
}
