// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package substrate defines the device capabilities devimage consumes:
// pitched device memory, asynchronous copies, ordered execution streams
// and native conversion routines.
//
// devimage never creates devices or streams. Implementations live in
// backend packages (backend/host, backend/wgpu) or in tests, and are
// always passed explicitly; there is no process-wide default device.
//
// # Ordering
//
// Everything enqueued on one [Stream] executes in enqueue order. Work on
// different streams is unordered unless the caller synchronizes. No
// method of [Device] blocks on device completion; only
// [Stream.Synchronize] does.
package substrate

import (
	"context"
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned by AllocatePitched when device memory is exhausted.
var ErrOutOfMemory = errors.New("substrate: out of device memory")

// DevicePtr is an address in device memory. It is not dereferenceable
// on the host.
type DevicePtr uintptr

// NullPtr is the zero device address.
const NullPtr DevicePtr = 0

// String formats the address as hex.
func (p DevicePtr) String() string {
	return fmt.Sprintf("0x%x", uintptr(p))
}

// Stream is an ordered queue of asynchronous device operations.
type Stream interface {
	// Device returns the device context the stream belongs to.
	Device() Device

	// Synchronize blocks until all work enqueued on the stream so far has
	// completed, or ctx is done.
	Synchronize(ctx context.Context) error
}

// Device is a compute device context: allocator, copy engine and kernel
// launcher.
//
// Implementations must be safe for concurrent use.
type Device interface {
	// Name returns a human-readable device name.
	Name() string

	// AllocatePitched reserves a 2D region of at least widthBytes x rows
	// with a row pitch chosen by the device. The allocation is associated
	// with s. Releasing it is ordered after work already enqueued on s
	// and on every other stream that launched or copied with it.
	// Exhaustion is reported with an error wrapping ErrOutOfMemory.
	AllocatePitched(widthBytes, rows int, s Stream) (PitchedMemory, error)

	// Free releases memory returned by AllocatePitched.
	Free(ptr DevicePtr)

	// Launch enqueues routine r on s. Argument validation happens
	// immediately and is reported through the returned Status; execution
	// is asynchronous.
	Launch(r Routine, args Args, s Stream) Status

	// StatusText returns a message for a status code returned by Launch.
	StatusText(st Status) string

	// CopyToDevice enqueues a pitched copy of widthBytes x rows from host
	// memory into device memory. src must not be modified until s has
	// been synchronized.
	CopyToDevice(dst DevicePtr, dstPitch int, src []byte, srcPitch, widthBytes, rows int, s Stream) error

	// CopyFromDevice enqueues a pitched copy of widthBytes x rows from
	// device memory into host memory. dst is valid once s has been
	// synchronized.
	CopyFromDevice(dst []byte, dstPitch int, src DevicePtr, srcPitch, widthBytes, rows int, s Stream) error
}

// CheckHostCopy validates the host side of a pitched copy.
func CheckHostCopy(host []byte, hostPitch, widthBytes, rows int) error {
	if widthBytes <= 0 || rows <= 0 {
		return fmt.Errorf("substrate: invalid copy extent %dBx%d", widthBytes, rows)
	}
	if hostPitch < widthBytes {
		return fmt.Errorf("substrate: host pitch %d smaller than row width %d", hostPitch, widthBytes)
	}
	if need := (rows-1)*hostPitch + widthBytes; len(host) < need {
		return fmt.Errorf("substrate: host buffer has %d bytes, copy needs %d", len(host), need)
	}
	return nil
}
