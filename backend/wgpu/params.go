package wgpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/devimage/internal/color"
	"github.com/gogpu/devimage/substrate"
)

// Dispatch geometry of the conversion kernel.
const (
	workgroupSize   = 64
	maxGroupsPerDim = 65535

	// paramsSize is the byte size of the Params uniform, padded to 16.
	paramsSize = 80
)

// convertParams mirrors the Params struct of shaders/convert.wgsl.
type convertParams struct {
	kind          uint32
	swapRB        uint32
	width         uint32
	height        uint32
	srcPitch      uint32
	dstPitch      uint32
	dstRows       uint32
	dstWidthBytes uint32
	dstWords      uint32
	stride        uint32

	kr, kg, kb      float32
	yOffset, yScale float32
	cScale          float32
}

// newConvertParams builds the kernel uniform for a validated launch and
// returns it with the workgroup grid to dispatch.
//
//nolint:gosec // validated extents fit in uint32
func newConvertParams(r substrate.Routine, args substrate.Args) (p convertParams, groupsX, groupsY uint32) {
	info := r.Info()
	dst := r.DstExtent(args.Width, args.Height)
	coeffs := color.Lookup(r.ColorParams(args))

	words := uint32(dst.Rows * args.DstPitch / 4)
	groupsX, groupsY = dispatchGrid(words)

	p = convertParams{
		kind:          uint32(info.Kind),
		width:         uint32(args.Width),
		height:        uint32(args.Height),
		srcPitch:      uint32(args.SrcPitch),
		dstPitch:      uint32(args.DstPitch),
		dstRows:       uint32(dst.Rows),
		dstWidthBytes: uint32(dst.WidthBytes),
		dstWords:      words,
		stride:        groupsX * workgroupSize,
		kr:            coeffs.Kr,
		kg:            coeffs.Kg,
		kb:            coeffs.Kb,
		yOffset:       coeffs.YOffset,
		yScale:        coeffs.YScale,
		cScale:        coeffs.CScale,
	}
	if info.SwapRB {
		p.swapRB = 1
	}
	return p, groupsX, groupsY
}

// bytes encodes the uniform in std140 order.
func (p convertParams) bytes() []byte {
	b := make([]byte, 0, paramsSize)
	for _, v := range []uint32{
		p.kind, p.swapRB, p.width, p.height,
		p.srcPitch, p.dstPitch, p.dstRows, p.dstWidthBytes,
		p.dstWords, p.stride, 0, 0,
	} {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	for _, f := range []float32{p.kr, p.kg, p.kb, p.yOffset, p.yScale, p.cScale, 0, 0} {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

// dispatchGrid spreads one invocation per word over a 2D grid of
// workgroups, keeping each dimension within the WebGPU limit.
func dispatchGrid(words uint32) (x, y uint32) {
	groups := (words + workgroupSize - 1) / workgroupSize
	if groups == 0 {
		return 0, 0
	}
	x = min(groups, maxGroupsPerDim)
	y = (groups + x - 1) / x
	return x, y
}
