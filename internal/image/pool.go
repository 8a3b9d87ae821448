package image

import "sync"

// Pool is a thread-safe pool for reusing Buf instances.
//
// Pool groups buffers by geometry, so an allocation of the same usable
// width, row count and pitch can take a released buffer instead of a new
// one.
//
// Thread safety: All methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[poolKey][]*Buf
	maxSize int // max buffers per bucket
}

type poolKey struct {
	widthBytes int
	rows       int
	pitch      int
}

// NewPool creates a pool retaining at most maxPerBucket buffers of each
// geometry. A maxPerBucket of 0 means unlimited.
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[poolKey][]*Buf),
		maxSize: maxPerBucket,
	}
}

// Get returns a zeroed buffer of the given geometry, reusing a pooled one
// when available.
func (p *Pool) Get(widthBytes, rows, pitch int) (*Buf, error) {
	key := poolKey{widthBytes: widthBytes, rows: rows, pitch: pitch}

	p.mu.Lock()
	bucket := p.buckets[key]
	if len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		p.buckets[key] = bucket[:len(bucket)-1]
		p.mu.Unlock()

		buf.Clear()
		return buf, nil
	}
	p.mu.Unlock()

	return NewBuf(widthBytes, rows, pitch)
}

// Put returns a buffer to the pool. If buf is nil or its bucket is full,
// the buffer is discarded.
func (p *Pool) Put(buf *Buf) {
	if buf == nil {
		return
	}
	key := poolKey{widthBytes: buf.widthBytes, rows: buf.rows, pitch: buf.pitch}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, buf)
}

// Len returns the number of pooled buffers across all buckets.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}
