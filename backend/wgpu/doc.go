// Package wgpu implements substrate.Device on a GPU through gogpu/wgpu.
//
// Device memory is a set of storage buffers, one per pitched allocation,
// published at synthetic device addresses. Every conversion routine runs
// through a single WGSL compute kernel, compiled to SPIR-V with naga,
// that rewrites the destination one 32-bit word per invocation.
//
// # Architecture Overview
//
//	Launch -> params uniform + bind group -> compute pass -> fence wait
//	CopyToDevice   -> Queue.WriteBuffer
//	CopyFromDevice -> buffer copy to staging -> Queue.ReadBuffer
//
// Streams are ordered queues drained by one goroutine; each operation is
// submitted and waited on before the next starts, so a stream never has
// more than one command buffer in flight.
//
// # Devices
//
// [New] opens its own HAL instance and adapter (Vulkan by default).
// [NewFromHAL] and [NewWithProvider] share a device owned by someone
// else, for example the gpucontext.DeviceProvider of a gogpu window:
//
//	dev, err := wgpu.NewWithProvider(provider)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
// # Precision
//
// The kernel mirrors the float arithmetic of the host kernels. Copies,
// channel swaps and alpha changes are bit-exact; Y'CbCr and HSV results
// can differ from the host device by one code where GPU rounding differs.
//
// The package registers itself with package backend under the name
// "wgpu".
package wgpu
