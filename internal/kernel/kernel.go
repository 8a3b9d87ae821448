// Package kernel implements every substrate.Routine on host memory.
//
// Kernels address both images through their pitch and never touch bytes
// outside the logical extent, so padding between rows and the unused
// tail of a larger allocation are left as they were.
//
// Work is split into units: one destination row for most routines, and
// one pair of luma rows plus the chroma row they share when the
// destination is 4:2:0. Units are independent, so callers may run
// disjoint unit ranges concurrently.
package kernel

import (
	"github.com/gogpu/devimage/internal/color"
	"github.com/gogpu/devimage/pixfmt"
	"github.com/gogpu/devimage/substrate"
)

// Units returns the number of independent work units for routine r on an
// image of the given height.
func Units(r substrate.Routine, height int) int {
	if r.Info().Dst == pixfmt.FamilyPlanar420 {
		return height / 2
	}
	return height
}

// Execute runs units [u0, u1) of routine r. src and dst start at the
// images' base addresses and must cover their routine extents at the
// pitches given in args; Execute panics otherwise, which callers prevent
// with substrate.ValidateArgs.
func Execute(r substrate.Routine, args substrate.Args, src, dst []byte, u0, u1 int) {
	info := r.Info()
	k := job{
		args:   args,
		src:    src,
		dst:    dst,
		swapRB: info.SwapRB,
	}
	if info.Kind == substrate.KindNV12ToRGB || info.Kind == substrate.KindRGBToNV12 {
		cs, cr := r.ColorParams(args)
		k.coeffs = color.Lookup(cs, cr)
	}

	for u := u0; u < u1; u++ {
		switch info.Kind {
		case substrate.KindCopy:
			k.copyUnit(info.Src, u)
		case substrate.KindSwap:
			k.swapRow(info.Src, u)
		case substrate.KindRGBToHSV:
			k.hsvRow(u, true)
		case substrate.KindHSVToRGB:
			k.hsvRow(u, false)
		case substrate.KindAddAlpha:
			k.addAlphaRow(u)
		case substrate.KindDropAlpha:
			k.dropAlphaRow(u)
		case substrate.KindNV12ToRGB:
			k.nv12ToRGBRow(u)
		case substrate.KindRGBToNV12:
			k.rgbToNV12Unit(u)
		}
	}
}

type job struct {
	args   substrate.Args
	src    []byte
	dst    []byte
	swapRB bool
	coeffs *color.Coefficients
}

func (k *job) srcRow(y, n int) []byte {
	off := y * k.args.SrcPitch
	return k.src[off : off+n]
}

func (k *job) dstRow(y, n int) []byte {
	off := y * k.args.DstPitch
	return k.dst[off : off+n]
}

func (k *job) copyUnit(f pixfmt.Family, u int) {
	w := k.args.Width
	switch f {
	case pixfmt.FamilyInterleaved3:
		copy(k.dstRow(u, w*3), k.srcRow(u, w*3))
	case pixfmt.FamilyInterleaved4:
		copy(k.dstRow(u, w*4), k.srcRow(u, w*4))
	case pixfmt.FamilyPlanar420:
		copy(k.dstRow(2*u, w), k.srcRow(2*u, w))
		copy(k.dstRow(2*u+1, w), k.srcRow(2*u+1, w))
		c := k.args.Height + u
		copy(k.dstRow(c, w), k.srcRow(c, w))
	}
}

func (k *job) swapRow(f pixfmt.Family, y int) {
	bpp := 3
	if f == pixfmt.FamilyInterleaved4 {
		bpp = 4
	}
	n := k.args.Width * bpp
	s, d := k.srcRow(y, n), k.dstRow(y, n)
	for i := 0; i < n; i += bpp {
		d[i], d[i+1], d[i+2] = s[i+2], s[i+1], s[i]
		if bpp == 4 {
			d[i+3] = s[i+3]
		}
	}
}

func (k *job) hsvRow(y int, forward bool) {
	n := k.args.Width * 3
	s, d := k.srcRow(y, n), k.dstRow(y, n)
	for i := 0; i < n; i += 3 {
		if forward {
			d[i], d[i+1], d[i+2] = color.RGBToHSV(s[i], s[i+1], s[i+2])
		} else {
			d[i], d[i+1], d[i+2] = color.HSVToRGB(s[i], s[i+1], s[i+2])
		}
	}
}

func (k *job) addAlphaRow(y int) {
	w := k.args.Width
	s, d := k.srcRow(y, w*3), k.dstRow(y, w*4)
	for x := range w {
		si, di := x*3, x*4
		r, g, b := s[si], s[si+1], s[si+2]
		if k.swapRB {
			r, b = b, r
		}
		d[di], d[di+1], d[di+2], d[di+3] = r, g, b, 0xFF
	}
}

func (k *job) dropAlphaRow(y int) {
	w := k.args.Width
	s, d := k.srcRow(y, w*4), k.dstRow(y, w*3)
	for x := range w {
		si, di := x*4, x*3
		r, g, b := s[si], s[si+1], s[si+2]
		if k.swapRB {
			r, b = b, r
		}
		d[di], d[di+1], d[di+2] = r, g, b
	}
}

func (k *job) nv12ToRGBRow(y int) {
	w := k.args.Width
	luma := k.srcRow(y, w)
	chroma := k.srcRow(k.args.Height+y/2, w)
	d := k.dstRow(y, w*3)
	for x := range w {
		ci := x &^ 1
		r, g, b := k.coeffs.YCbCrToRGB(luma[x], chroma[ci], chroma[ci+1])
		if k.swapRB {
			r, b = b, r
		}
		di := x * 3
		d[di], d[di+1], d[di+2] = r, g, b
	}
}

func (k *job) rgbToNV12Unit(u int) {
	w := k.args.Width
	top, bottom := k.srcRow(2*u, w*3), k.srcRow(2*u+1, w*3)
	lumaTop, lumaBottom := k.dstRow(2*u, w), k.dstRow(2*u+1, w)
	chroma := k.dstRow(k.args.Height+u, w)

	pixel := func(row []byte, x int) [3]uint8 {
		i := x * 3
		if k.swapRB {
			return [3]uint8{row[i+2], row[i+1], row[i]}
		}
		return [3]uint8{row[i], row[i+1], row[i+2]}
	}

	for x := 0; x < w; x += 2 {
		block := [4][3]uint8{pixel(top, x), pixel(top, x+1), pixel(bottom, x), pixel(bottom, x+1)}
		lumaTop[x] = k.coeffs.Luma(block[0][0], block[0][1], block[0][2])
		lumaTop[x+1] = k.coeffs.Luma(block[1][0], block[1][1], block[1][2])
		lumaBottom[x] = k.coeffs.Luma(block[2][0], block[2][1], block[2][2])
		lumaBottom[x+1] = k.coeffs.Luma(block[3][0], block[3][1], block[3][2])
		chroma[x], chroma[x+1] = k.coeffs.Chroma2x2(block)
	}
}
