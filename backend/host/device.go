// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package host

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/devimage/internal/image"
	"github.com/gogpu/devimage/internal/kernel"
	"github.com/gogpu/devimage/internal/queue"
	"github.com/gogpu/devimage/substrate"
)

// Errors returned by host devices and streams.
var (
	// ErrClosed is returned when using a closed device.
	ErrClosed = errors.New("host: device closed")

	// ErrStreamClosed is returned when enqueueing on a closed stream.
	ErrStreamClosed = errors.New("host: stream closed")

	// ErrForeignStream is returned when a stream from another device is used.
	ErrForeignStream = errors.New("host: stream does not belong to this device")

	// ErrUnknownPointer is returned for device pointers that are not the
	// base of a live allocation.
	ErrUnknownPointer = errors.New("host: unknown device pointer")
)

// Synthetic address layout: allocations start at addressBase and are
// separated by at least one unmapped page.
const (
	addressBase = 1 << 20
	pageSize    = 4096
)

// allocation is one live pitched buffer. users holds the allocating
// stream and every stream that has had work enqueued against it; it is
// guarded by Device.mu.
type allocation struct {
	buf   *image.Buf
	mem   substrate.PitchedMemory
	size  int64
	users map[*Stream]struct{}
}

// Device is an in-process substrate.Device.
//
// Thread safety: Device is safe for concurrent use.
type Device struct {
	opts options
	pool *image.Pool

	mu      sync.Mutex
	allocs  map[substrate.DevicePtr]*allocation
	streams map[*Stream]struct{}
	next    uintptr
	used    int64
	closed  bool
}

var _ substrate.Device = (*Device)(nil)

// New creates a host device.
func New(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		opts:    o,
		pool:    image.NewPool(4),
		allocs:  make(map[substrate.DevicePtr]*allocation),
		streams: make(map[*Stream]struct{}),
		next:    addressBase,
	}
	slogger().Debug("host: device created",
		"name", o.name,
		"pitchAlignment", o.pitchAlignment,
		"memoryLimit", o.memoryLimit,
		"workers", o.workers)
	return d
}

// Name implements substrate.Device.
func (d *Device) Name() string { return d.opts.name }

// PitchAlignment returns the row alignment of allocations in bytes.
func (d *Device) PitchAlignment() int { return d.opts.pitchAlignment }

// MemoryInUse returns the bytes held by live allocations, padding
// included. Freed memory is subtracted once every stream
// that used it reaches the free.
func (d *Device) MemoryInUse() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}

// AllocatePitched implements substrate.Device.
func (d *Device) AllocatePitched(widthBytes, rows int, s substrate.Stream) (substrate.PitchedMemory, error) {
	hs, err := d.hostStream(s)
	if err != nil {
		return substrate.PitchedMemory{}, err
	}
	if widthBytes <= 0 || rows <= 0 {
		return substrate.PitchedMemory{}, fmt.Errorf("host: invalid allocation extent %dBx%d", widthBytes, rows)
	}

	pitch := substrate.AlignPitch(widthBytes, d.opts.pitchAlignment)
	size := int64(pitch) * int64(rows)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return substrate.PitchedMemory{}, ErrClosed
	}
	if limit := d.opts.memoryLimit; limit > 0 && d.used+size > limit {
		used := d.used
		d.mu.Unlock()
		return substrate.PitchedMemory{}, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			substrate.ErrOutOfMemory, size, used, limit)
	}
	d.used += size
	d.mu.Unlock()

	buf, err := d.pool.Get(widthBytes, rows, pitch)
	if err != nil {
		d.release(size)
		return substrate.PitchedMemory{}, fmt.Errorf("host: allocate %dBx%d: %w", widthBytes, rows, err)
	}

	d.mu.Lock()
	ptr := substrate.DevicePtr(d.next)
	d.next += uintptr(substrate.AlignPitch(int(size), pageSize) + pageSize)
	mem := substrate.NewPitchedMemory(ptr, pitch, widthBytes, rows, d)
	d.allocs[ptr] = &allocation{buf: buf, mem: mem, size: size, users: map[*Stream]struct{}{hs: {}}}
	d.mu.Unlock()

	slogger().Debug("host: allocate", "ptr", ptr, "pitch", pitch, "widthBytes", widthBytes, "rows", rows)
	return mem, nil
}

// Free implements substrate.Device. The pointer becomes invalid at once;
// the memory is recycled after work already enqueued against it has run
// on every stream that used it.
func (d *Device) Free(ptr substrate.DevicePtr) {
	d.mu.Lock()
	a, ok := d.allocs[ptr]
	var qs []*queue.Queue
	if ok {
		delete(d.allocs, ptr)
		for s := range a.users {
			qs = append(qs, s.q)
		}
	}
	d.mu.Unlock()

	if !ok {
		slogger().Warn("host: free of unknown pointer", "ptr", ptr)
		return
	}

	queue.AfterAll(qs, func() {
		d.pool.Put(a.buf)
		d.release(a.size)
	})
	slogger().Debug("host: free", "ptr", ptr, "streams", len(qs))
}

// Launch implements substrate.Device.
func (d *Device) Launch(r substrate.Routine, args substrate.Args, s substrate.Stream) substrate.Status {
	hs, err := d.hostStream(s)
	if err != nil {
		slogger().Warn("host: launch rejected", "routine", r, "err", err)
		return substrate.StatusBadArgument
	}
	if !r.IsValid() {
		return substrate.StatusNotSupported
	}
	if args.Src == substrate.NullPtr || args.Dst == substrate.NullPtr {
		return substrate.StatusNullPointer
	}

	src, errSrc := d.lookup(args.Src)
	dst, errDst := d.lookup(args.Dst)
	if errSrc != nil || errDst != nil {
		return substrate.StatusNullPointer
	}
	if st := substrate.ValidateArgs(r, args, src.mem, dst.mem); st != substrate.StatusSuccess {
		return st
	}
	if !d.use(hs, src, dst) {
		return substrate.StatusNullPointer
	}

	units := kernel.Units(r, args.Height)
	err = hs.enqueue(func() error {
		return d.execute(r, args, src.buf, dst.buf, units)
	})
	if err != nil {
		slogger().Warn("host: launch on closed stream", "routine", r)
		return substrate.StatusExecution
	}
	slogger().Debug("host: launch", "routine", r, "width", args.Width, "height", args.Height)
	return substrate.StatusSuccess
}

// StatusText implements substrate.Device.
func (d *Device) StatusText(st substrate.Status) string {
	return substrate.DefaultStatusText(st)
}

// CopyToDevice implements substrate.Device.
func (d *Device) CopyToDevice(dst substrate.DevicePtr, dstPitch int, src []byte, srcPitch, widthBytes, rows int, s substrate.Stream) error {
	hs, a, err := d.prepareCopy(dst, dstPitch, src, srcPitch, widthBytes, rows, s)
	if err != nil {
		return fmt.Errorf("host: copy to device: %w", err)
	}
	return hs.enqueue(func() error {
		return a.buf.CopyIn(src, srcPitch, widthBytes, rows)
	})
}

// CopyFromDevice implements substrate.Device.
func (d *Device) CopyFromDevice(dst []byte, dstPitch int, src substrate.DevicePtr, srcPitch, widthBytes, rows int, s substrate.Stream) error {
	hs, a, err := d.prepareCopy(src, srcPitch, dst, dstPitch, widthBytes, rows, s)
	if err != nil {
		return fmt.Errorf("host: copy from device: %w", err)
	}
	return hs.enqueue(func() error {
		return a.buf.CopyOut(dst, dstPitch, widthBytes, rows)
	})
}

// Close closes every stream of the device, waiting for queued work.
// Allocations still live are reported and dropped.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	streams := make([]*Stream, 0, len(d.streams))
	for s := range d.streams {
		streams = append(streams, s)
	}
	d.mu.Unlock()

	var errs []error
	for _, s := range streams {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	d.mu.Lock()
	if n := len(d.allocs); n > 0 {
		slogger().Warn("host: device closed with live allocations", "count", n)
	}
	clear(d.allocs)
	d.mu.Unlock()
	return errors.Join(errs...)
}

func (d *Device) prepareCopy(ptr substrate.DevicePtr, devPitch int, host []byte, hostPitch, widthBytes, rows int, s substrate.Stream) (*Stream, *allocation, error) {
	hs, err := d.hostStream(s)
	if err != nil {
		return nil, nil, err
	}
	if err := substrate.CheckHostCopy(host, hostPitch, widthBytes, rows); err != nil {
		return nil, nil, err
	}
	a, err := d.lookup(ptr)
	if err != nil {
		return nil, nil, err
	}
	if devPitch != a.mem.Pitch {
		return nil, nil, fmt.Errorf("device pitch %d does not match allocation pitch %d", devPitch, a.mem.Pitch)
	}
	if widthBytes > a.mem.WidthBytes || rows > a.mem.Rows {
		return nil, nil, fmt.Errorf("extent %dBx%d exceeds allocation %s", widthBytes, rows, a.mem.Extent())
	}
	if !d.use(hs, a) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPointer, ptr)
	}
	return hs, a, nil
}

// use records s as a user of allocs so that Free waits for it. It
// reports false if any of them was freed since lookup.
func (d *Device) use(s *Stream, allocs ...*allocation) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range allocs {
		if d.allocs[a.mem.Ptr] != a {
			return false
		}
	}
	for _, a := range allocs {
		a.users[s] = struct{}{}
	}
	return true
}

func (d *Device) lookup(ptr substrate.DevicePtr) (*allocation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.allocs[ptr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPointer, ptr)
	}
	return a, nil
}

func (d *Device) hostStream(s substrate.Stream) (*Stream, error) {
	hs, ok := s.(*Stream)
	if !ok || hs == nil || hs.dev != d {
		return nil, ErrForeignStream
	}
	return hs, nil
}

func (d *Device) release(size int64) {
	d.mu.Lock()
	d.used -= size
	d.mu.Unlock()
}

// execute runs a validated routine, splitting its units across workers.
func (d *Device) execute(r substrate.Routine, args substrate.Args, src, dst *image.Buf, units int) error {
	workers := min(d.opts.workers, units)
	if workers <= 1 {
		return runUnits(r, args, src, dst, 0, units)
	}

	chunk := (units + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for u0 := 0; u0 < units; u0 += chunk {
		u1 := min(u0+chunk, units)
		g.Go(func() error {
			return runUnits(r, args, src, dst, u0, u1)
		})
	}
	return g.Wait()
}

func runUnits(r substrate.Routine, args substrate.Args, src, dst *image.Buf, u0, u1 int) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("host: %s units [%d,%d): %v", r, u0, u1, rec)
		}
	}()
	kernel.Execute(r, args, src.Data(), dst.Data(), u0, u1)
	return nil
}
