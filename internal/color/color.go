// Package color provides the numeric transforms behind devimage's
// conversion kernels: Y'CbCr matrices per color space, full/limited range
// quantisation and 8-bit HSV.
//
// All functions work on 8-bit samples and are shared by the host kernels
// and the tests that check GPU output, so both agree on rounding.
package color

import "github.com/gogpu/devimage/pixfmt"

// Matrix holds the luma weights of a Y'CbCr color space.
// Kg is always 1 - Kr - Kb.
type Matrix struct {
	Kr, Kg, Kb float32
}

// MatrixFor returns the luma weights for a color space.
// Unknown color spaces fall back to BT.601.
func MatrixFor(cs pixfmt.ColorSpace) Matrix {
	switch cs {
	case pixfmt.BT709:
		return newMatrix(0.2126, 0.0722)
	case pixfmt.BT2020:
		return newMatrix(0.2627, 0.0593)
	default:
		return newMatrix(0.299, 0.114)
	}
}

func newMatrix(kr, kb float32) Matrix {
	return Matrix{Kr: kr, Kg: 1 - kr - kb, Kb: kb}
}

// Quantization maps normalized Y'CbCr onto 8-bit codes.
type Quantization struct {
	// YOffset is the code for black.
	YOffset float32
	// YScale is the number of luma codes per unit of 0-255 input.
	YScale float32
	// CScale is the number of chroma codes per unit of 0-255 input.
	CScale float32
}

// QuantizationFor returns the quantisation of a color range.
func QuantizationFor(r pixfmt.ColorRange) Quantization {
	if r == pixfmt.Full {
		return Quantization{YOffset: 0, YScale: 1, CScale: 1}
	}
	return Quantization{YOffset: 16, YScale: 219.0 / 255.0, CScale: 224.0 / 255.0}
}

// Coefficients combine a matrix and a quantisation.
type Coefficients struct {
	Matrix
	Quantization
}
