package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/devimage/substrate"
)

// convert runs one validated routine and waits for it.
func (d *Device) convert(r substrate.Routine, args substrate.Args, src, dst *allocation) error {
	params, gx, gy := newConvertParams(r, args)
	if gx == 0 {
		return nil
	}
	d.halMu.Lock()
	defer d.halMu.Unlock()

	ub, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "devimage_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: %s: create params buffer: %w", r, err)
	}
	defer d.device.DestroyBuffer(ub)
	d.queue.WriteBuffer(ub, 0, params.bytes())

	// The kernel cannot read and write one buffer, so in-place
	// conversions read from a snapshot.
	input := src.buf
	var scratch hal.Buffer
	if src == dst {
		scratch, err = d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "devimage_scratch", Size: src.size,
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("wgpu: %s: create scratch buffer: %w", r, err)
		}
		defer d.device.DestroyBuffer(scratch)
		input = scratch
	}

	bg, err := d.pipe.bindGroup(ub, input, src.size, dst.buf, dst.size)
	if err != nil {
		return fmt.Errorf("wgpu: %s: create bind group: %w", r, err)
	}
	defer d.device.DestroyBindGroup(bg)

	err = d.submit("devimage_convert", func(enc hal.CommandEncoder) {
		if scratch != nil {
			enc.CopyBufferToBuffer(src.buf, scratch, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: src.size}})
		}
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "devimage_convert"})
		pass.SetPipeline(d.pipe.pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(gx, gy, 1)
		pass.End()
	})
	if err != nil {
		return fmt.Errorf("wgpu: %s: %w", r, err)
	}
	return nil
}

// upload writes widthBytes x rows from host memory into a. Rows that
// do not cover the allocation width are merged with the current buffer
// contents so bytes outside the copied extent survive.
func (d *Device) upload(a *allocation, src []byte, srcPitch, widthBytes, rows int) error {
	d.halMu.Lock()
	defer d.halMu.Unlock()
	pitch := a.mem.Pitch
	span := uint64(pitch) * uint64(rows)

	var data []byte
	if widthBytes < a.mem.WidthBytes {
		var err error
		if data, err = d.readSpan(a, span); err != nil {
			return fmt.Errorf("wgpu: upload: %w", err)
		}
	} else {
		data = make([]byte, span)
	}
	for y := range rows {
		copy(data[y*pitch:y*pitch+widthBytes], src[y*srcPitch:])
	}
	d.queue.WriteBuffer(a.buf, 0, data)
	return nil
}

// download reads widthBytes x rows of a into host memory.
func (d *Device) download(a *allocation, dst []byte, dstPitch, widthBytes, rows int) error {
	d.halMu.Lock()
	defer d.halMu.Unlock()
	pitch := a.mem.Pitch
	data, err := d.readSpan(a, uint64(pitch)*uint64(rows))
	if err != nil {
		return fmt.Errorf("wgpu: download: %w", err)
	}
	for y := range rows {
		copy(dst[y*dstPitch:y*dstPitch+widthBytes], data[y*pitch:])
	}
	return nil
}

// readSpan returns the first size bytes of a through a staging buffer.
// The caller holds halMu.
func (d *Device) readSpan(a *allocation, size uint64) ([]byte, error) {
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "devimage_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	err = d.submit("devimage_readback", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(a.buf, staging, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})
	})
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("read staging buffer: %w", err)
	}
	return out, nil
}

// submit records commands into one command buffer, submits it and waits
// for its fence. The caller holds halMu.
func (d *Device) submit(label string, record func(hal.CommandEncoder)) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	record(encoder)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, d.opts.fenceTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %s", ErrFenceTimeout, d.opts.fenceTimeout)
	}
	return nil
}
