package devimage

import (
	"context"
	"sync"

	"github.com/gogpu/devimage/substrate"
)

// mockDevice records every substrate call and performs none of them.
type mockDevice struct {
	mu sync.Mutex

	pitchAlign   int
	allocErr     error
	launchStatus substrate.Status

	next       substrate.DevicePtr
	allocs     []substrate.PitchedMemory
	frees      []substrate.DevicePtr
	launches   []launchRecord
	copiesTo   []copyRecord
	copiesFrom []copyRecord
}

type launchRecord struct {
	routine substrate.Routine
	args    substrate.Args
}

type copyRecord struct {
	ptr        substrate.DevicePtr
	devPitch   int
	hostPitch  int
	widthBytes int
	rows       int
}

func newMockDevice() *mockDevice {
	return &mockDevice{pitchAlign: 256, next: 0x1000}
}

func (d *mockDevice) stream() *mockStream { return &mockStream{dev: d} }

func (d *mockDevice) Name() string { return "mock" }

func (d *mockDevice) AllocatePitched(widthBytes, rows int, _ substrate.Stream) (substrate.PitchedMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.allocErr != nil {
		return substrate.PitchedMemory{}, d.allocErr
	}
	pitch := substrate.AlignPitch(widthBytes, d.pitchAlign)
	ptr := d.next
	d.next += substrate.DevicePtr(pitch*rows + 0x1000)
	mem := substrate.NewPitchedMemory(ptr, pitch, widthBytes, rows, d)
	d.allocs = append(d.allocs, mem)
	return mem, nil
}

func (d *mockDevice) Free(ptr substrate.DevicePtr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frees = append(d.frees, ptr)
}

func (d *mockDevice) Launch(r substrate.Routine, args substrate.Args, _ substrate.Stream) substrate.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.launches = append(d.launches, launchRecord{routine: r, args: args})
	return d.launchStatus
}

func (d *mockDevice) StatusText(st substrate.Status) string {
	return "mock: " + substrate.DefaultStatusText(st)
}

func (d *mockDevice) CopyToDevice(dst substrate.DevicePtr, dstPitch int, _ []byte, srcPitch, widthBytes, rows int, _ substrate.Stream) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.copiesTo = append(d.copiesTo, copyRecord{dst, dstPitch, srcPitch, widthBytes, rows})
	return nil
}

func (d *mockDevice) CopyFromDevice(_ []byte, dstPitch int, src substrate.DevicePtr, srcPitch, widthBytes, rows int, _ substrate.Stream) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.copiesFrom = append(d.copiesFrom, copyRecord{src, srcPitch, dstPitch, widthBytes, rows})
	return nil
}

type mockStream struct {
	dev *mockDevice
}

func (s *mockStream) Device() substrate.Device          { return s.dev }
func (s *mockStream) Synchronize(context.Context) error { return nil }

var (
	_ substrate.Device = (*mockDevice)(nil)
	_ substrate.Stream = (*mockStream)(nil)
)
