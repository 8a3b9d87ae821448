// Package queue implements the ordered operation queue behind backend
// streams: operations run one at a time on a dedicated goroutine in
// enqueue order.
//
// An operation that fails does not stop the queue. The first failure is
// kept until the next Sync or Close reports it.
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when enqueueing on a closed queue.
var ErrClosed = errors.New("queue: closed")

// Op is one queued operation.
type Op func() error

// Queue runs operations in order on one goroutine.
type Queue struct {
	ops     chan Op
	done    chan struct{}
	onError func(error)

	mu     sync.RWMutex // guards closed against concurrent Enqueue
	closed bool

	errMu sync.Mutex
	err   error
}

// New starts a queue buffering up to depth operations. onError, if not
// nil, is called on the queue goroutine for every failed operation.
func New(depth int, onError func(error)) *Queue {
	q := &Queue{
		ops:     make(chan Op, max(depth, 1)),
		done:    make(chan struct{}),
		onError: onError,
	}
	go q.run()
	return q
}

// NewClosed returns a queue that is already closed.
func NewClosed() *Queue {
	q := &Queue{done: make(chan struct{}), closed: true}
	close(q.done)
	return q
}

// Enqueue appends op. It blocks while the buffer is full.
func (q *Queue) Enqueue(op Op) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	q.ops <- op
	return nil
}

// Sync waits until every operation enqueued before it has run, then
// returns and clears the first error since the previous Sync.
func (q *Queue) Sync(ctx context.Context) error {
	marker := make(chan struct{})
	if err := q.Enqueue(func() error {
		close(marker)
		return nil
	}); err != nil {
		return err
	}

	select {
	case <-marker:
		return q.takeErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting operations, waits for queued ones and returns
// the pending error. Later calls wait for the drain and return nil.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return nil
	}
	q.closed = true
	close(q.ops)
	q.mu.Unlock()

	<-q.done
	return q.takeErr()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Done is closed once the queue has drained after Close.
func (q *Queue) Done() <-chan struct{} { return q.done }

// AfterAll calls fn once every queue in qs has run the operations
// enqueued on it before the call. A closed queue counts once it has
// drained. fn runs on the goroutine of the last queue to get there, or
// on the caller's goroutine if that queue was already closed.
func AfterAll(qs []*Queue, fn func()) {
	if len(qs) == 0 {
		fn()
		return
	}
	var pending atomic.Int32
	pending.Store(int32(len(qs))) //nolint:gosec // one entry per stream
	arrive := func() error {
		if pending.Add(-1) == 0 {
			fn()
		}
		return nil
	}
	for _, q := range qs {
		if err := q.Enqueue(arrive); err != nil {
			<-q.done
			_ = arrive()
		}
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for op := range q.ops {
		if err := op(); err != nil {
			if q.onError != nil {
				q.onError(err)
			}
			q.errMu.Lock()
			if q.err == nil {
				q.err = err
			}
			q.errMu.Unlock()
		}
	}
}

func (q *Queue) takeErr() error {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	err := q.err
	q.err = nil
	return err
}
