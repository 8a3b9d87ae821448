// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/devimage/internal/queue"
	"github.com/gogpu/devimage/substrate"
)

// Errors returned by wgpu devices and streams.
var (
	// ErrClosed is returned when using a closed device.
	ErrClosed = errors.New("wgpu: device closed")

	// ErrStreamClosed is returned when enqueueing on a closed stream.
	ErrStreamClosed = errors.New("wgpu: stream closed")

	// ErrForeignStream is returned when a stream from another device is used.
	ErrForeignStream = errors.New("wgpu: stream does not belong to this device")

	// ErrUnknownPointer is returned for device pointers that are not the
	// base of a live allocation.
	ErrUnknownPointer = errors.New("wgpu: unknown device pointer")

	// ErrNoAdapter is returned by New when the HAL backend is missing or
	// exposes no adapter.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter available")

	// ErrFenceTimeout is returned when a submission does not complete
	// within the fence timeout.
	ErrFenceTimeout = errors.New("wgpu: fence wait timed out")

	// ErrNotHAL is returned by NewWithProvider when the provider does not
	// expose gogpu/wgpu HAL objects.
	ErrNotHAL = errors.New("wgpu: provider does not expose HAL device and queue")
)

// Synthetic address layout, as on the host device.
const (
	addressBase = 1 << 20
	pageSize    = 4096
)

// allocation is one live pitched buffer. users holds the allocating
// stream and every stream that has had work enqueued against it; it is
// guarded by Device.mu.
type allocation struct {
	buf   hal.Buffer
	mem   substrate.PitchedMemory
	size  uint64
	users map[*Stream]struct{}
}

// Device is a substrate.Device backed by a wgpu HAL device.
//
// Thread safety: Device is safe for concurrent use. Every HAL call on
// the device or queue, from AllocatePitched, stream goroutines or Close,
// is made with halMu held. halMu is never acquired while holding mu.
type Device struct {
	opts     options
	name     string
	instance hal.Instance // nil for shared devices
	device   hal.Device
	queue    hal.Queue
	external bool
	pipe     *convertPipeline

	halMu    sync.Mutex
	released bool // guarded by halMu; the device is gone

	mu      sync.Mutex
	allocs  map[substrate.DevicePtr]*allocation
	streams map[*Stream]struct{}
	next    uintptr
	used    int64
	closed  bool
}

var _ substrate.Device = (*Device)(nil)

// New opens a GPU through the configured HAL backend, preferring a
// discrete or integrated adapter.
func New(opts ...Option) (*Device, error) {
	o := applyOptions(opts)

	b, ok := hal.GetBackend(o.backend)
	if !ok {
		return nil, fmt.Errorf("%w: backend %v not registered", ErrNoAdapter, o.backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	if o.name == "" {
		o.name = selected.Info.Name
	}
	d, err := newDevice(openDev.Device, openDev.Queue, o, false)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	slogger().Info("wgpu: device opened", "adapter", selected.Info.Name, "backend", o.backend)
	return d, nil
}

// NewFromHAL wraps a HAL device and queue owned by the caller. Close
// releases only what the Device created.
func NewFromHAL(device hal.Device, q hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || q == nil {
		return nil, fmt.Errorf("wgpu: nil HAL device or queue")
	}
	o := applyOptions(opts)
	if o.name == "" {
		o.name = "wgpu (shared)"
	}
	return newDevice(device, q, o, true)
}

// NewWithProvider shares the GPU of a gpucontext.DeviceProvider. The
// provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewWithProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNotHAL, hp.HalDevice())
	}
	q, ok := hp.HalQueue().(hal.Queue)
	if !ok || q == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNotHAL, hp.HalQueue())
	}
	return NewFromHAL(device, q, opts...)
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newDevice(device hal.Device, q hal.Queue, o options, external bool) (*Device, error) {
	pipe, err := newConvertPipeline(device)
	if err != nil {
		return nil, fmt.Errorf("wgpu: %w", err)
	}
	return &Device{
		opts:     o,
		name:     o.name,
		device:   device,
		queue:    q,
		external: external,
		pipe:     pipe,
		allocs:   make(map[substrate.DevicePtr]*allocation),
		streams:  make(map[*Stream]struct{}),
		next:     addressBase,
	}, nil
}

// Name implements substrate.Device.
func (d *Device) Name() string { return d.name }

// PitchAlignment returns the row alignment of allocations in bytes.
func (d *Device) PitchAlignment() int { return d.opts.pitchAlignment }

// MemoryInUse returns the bytes of live buffers. Freed memory is
// subtracted once every stream that used it reaches the free.
func (d *Device) MemoryInUse() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}

// AllocatePitched implements substrate.Device.
func (d *Device) AllocatePitched(widthBytes, rows int, s substrate.Stream) (substrate.PitchedMemory, error) {
	ws, err := d.wgpuStream(s)
	if err != nil {
		return substrate.PitchedMemory{}, err
	}
	if widthBytes <= 0 || rows <= 0 {
		return substrate.PitchedMemory{}, fmt.Errorf("wgpu: invalid allocation extent %dBx%d", widthBytes, rows)
	}
	pitch := substrate.AlignPitch(widthBytes, d.opts.pitchAlignment)
	size := uint64(pitch) * uint64(rows)

	// Holding halMu keeps Close from destroying the device until the
	// buffer is either registered or destroyed here.
	d.halMu.Lock()
	defer d.halMu.Unlock()
	if d.isClosed() {
		return substrate.PitchedMemory{}, ErrClosed
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "devimage_image",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return substrate.PitchedMemory{}, fmt.Errorf("%w: %dBx%d: %w", substrate.ErrOutOfMemory, widthBytes, rows, err)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.device.DestroyBuffer(buf)
		return substrate.PitchedMemory{}, ErrClosed
	}
	ptr := substrate.DevicePtr(d.next)
	d.next += uintptr(substrate.AlignPitch(int(size), pageSize) + pageSize) //nolint:gosec // size is positive
	mem := substrate.NewPitchedMemory(ptr, pitch, widthBytes, rows, d)
	d.allocs[ptr] = &allocation{buf: buf, mem: mem, size: size, users: map[*Stream]struct{}{ws: {}}}
	d.used += int64(size) //nolint:gosec // bounded by device limits
	d.mu.Unlock()

	slogger().Debug("wgpu: allocate", "ptr", ptr, "pitch", pitch, "widthBytes", widthBytes, "rows", rows)
	return mem, nil
}

// Free implements substrate.Device. The pointer becomes invalid at once;
// the buffer is destroyed after work already enqueued against it has run
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
		slogger().Warn("wgpu: free of unknown pointer", "ptr", ptr)
		return
	}

	queue.AfterAll(qs, func() {
		d.halMu.Lock()
		defer d.halMu.Unlock()
		if d.released {
			return
		}
		d.device.DestroyBuffer(a.buf)
		d.mu.Lock()
		if !d.closed {
			d.used -= int64(a.size) //nolint:gosec // bounded by device limits
		}
		d.mu.Unlock()
	})
	slogger().Debug("wgpu: free", "ptr", ptr, "streams", len(qs))
}

// Launch implements substrate.Device.
func (d *Device) Launch(r substrate.Routine, args substrate.Args, s substrate.Stream) substrate.Status {
	ws, err := d.wgpuStream(s)
	if err != nil {
		slogger().Warn("wgpu: launch rejected", "routine", r, "err", err)
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
	if !d.use(ws, src, dst) {
		return substrate.StatusNullPointer
	}

	if err := ws.enqueue(func() error {
		return d.convert(r, args, src, dst)
	}); err != nil {
		slogger().Warn("wgpu: launch on closed stream", "routine", r)
		return substrate.StatusExecution
	}
	slogger().Debug("wgpu: launch", "routine", r, "width", args.Width, "height", args.Height)
	return substrate.StatusSuccess
}

// StatusText implements substrate.Device.
func (d *Device) StatusText(st substrate.Status) string {
	return "wgpu: " + substrate.DefaultStatusText(st)
}

// CopyToDevice implements substrate.Device.
func (d *Device) CopyToDevice(dst substrate.DevicePtr, dstPitch int, src []byte, srcPitch, widthBytes, rows int, s substrate.Stream) error {
	ws, a, err := d.prepareCopy(dst, dstPitch, src, srcPitch, widthBytes, rows, s)
	if err != nil {
		return fmt.Errorf("wgpu: copy to device: %w", err)
	}
	return ws.enqueue(func() error {
		return d.upload(a, src, srcPitch, widthBytes, rows)
	})
}

// CopyFromDevice implements substrate.Device.
func (d *Device) CopyFromDevice(dst []byte, dstPitch int, src substrate.DevicePtr, srcPitch, widthBytes, rows int, s substrate.Stream) error {
	ws, a, err := d.prepareCopy(src, srcPitch, dst, dstPitch, widthBytes, rows, s)
	if err != nil {
		return fmt.Errorf("wgpu: copy from device: %w", err)
	}
	return ws.enqueue(func() error {
		return d.download(a, dst, dstPitch, widthBytes, rows)
	})
}

// Close closes every stream, destroys live buffers and the pipeline, and
// releases the HAL device unless it is shared.
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
		slogger().Warn("wgpu: device closed with live allocations", "count", n)
	}
	live := make([]hal.Buffer, 0, len(d.allocs))
	for _, a := range d.allocs {
		live = append(live, a.buf)
	}
	clear(d.allocs)
	d.used = 0
	d.mu.Unlock()

	d.halMu.Lock()
	defer d.halMu.Unlock()
	d.released = true
	for _, buf := range live {
		d.device.DestroyBuffer(buf)
	}
	d.pipe.destroy()
	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	return errors.Join(errs...)
}

func (d *Device) prepareCopy(ptr substrate.DevicePtr, devPitch int, host []byte, hostPitch, widthBytes, rows int, s substrate.Stream) (*Stream, *allocation, error) {
	ws, err := d.wgpuStream(s)
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
	if !d.use(ws, a) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPointer, ptr)
	}
	return ws, a, nil
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

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
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

func (d *Device) wgpuStream(s substrate.Stream) (*Stream, error) {
	ws, ok := s.(*Stream)
	if !ok || ws == nil || ws.dev != d {
		return nil, ErrForeignStream
	}
	return ws, nil
}
