package color

import "github.com/gogpu/devimage/pixfmt"

// coefficientTable holds the coefficients of every (color space, range)
// pair, built once so kernels can fetch them per launch without
// recomputing the matrix.
var coefficientTable [3][2]Coefficients

func init() {
	for _, cs := range pixfmt.ColorSpaces() {
		for _, r := range pixfmt.ColorRanges() {
			coefficientTable[cs][r] = Coefficients{
				Matrix:       MatrixFor(cs),
				Quantization: QuantizationFor(r),
			}
		}
	}
}

// Lookup returns the shared coefficients for a color space and range.
// Invalid values fall back to BT.601 limited range.
func Lookup(cs pixfmt.ColorSpace, r pixfmt.ColorRange) *Coefficients {
	if !cs.IsValid() {
		cs = pixfmt.BT601
	}
	if !r.IsValid() {
		r = pixfmt.Limited
	}
	return &coefficientTable[cs][r]
}
