package color

// RGBToYCbCr converts one RGB pixel to quantized Y'CbCr.
func (c *Coefficients) RGBToYCbCr(r, g, b uint8) (y, cb, cr uint8) {
	yy, pb, pr := c.analyze(r, g, b)
	return c.quantizeLuma(yy), c.quantizeChroma(pb), c.quantizeChroma(pr)
}

// Luma returns the quantized luma of one RGB pixel.
func (c *Coefficients) Luma(r, g, b uint8) uint8 {
	yy, _, _ := c.analyze(r, g, b)
	return c.quantizeLuma(yy)
}

// Chroma2x2 returns quantized Cb and Cr for a 2x2 block of RGB pixels,
// averaging the unquantized chroma of the four pixels.
func (c *Coefficients) Chroma2x2(px [4][3]uint8) (cb, cr uint8) {
	var sumB, sumR float32
	for _, p := range px {
		_, pb, pr := c.analyze(p[0], p[1], p[2])
		sumB += pb
		sumR += pr
	}
	return c.quantizeChroma(sumB / 4), c.quantizeChroma(sumR / 4)
}

// YCbCrToRGB converts one quantized Y'CbCr sample triple to RGB.
func (c *Coefficients) YCbCrToRGB(y, cb, cr uint8) (r, g, b uint8) {
	yy := (float32(y) - c.YOffset) / c.YScale
	pb := (float32(cb) - 128) / c.CScale
	pr := (float32(cr) - 128) / c.CScale

	rf := yy + 2*(1-c.Kr)*pr
	bf := yy + 2*(1-c.Kb)*pb
	gf := (yy - c.Kr*rf - c.Kb*bf) / c.Kg
	return clampAndRound(rf), clampAndRound(gf), clampAndRound(bf)
}

// analyze returns unquantized luma in [0,255] and chroma in [-127.5,127.5].
func (c *Coefficients) analyze(r, g, b uint8) (yy, pb, pr float32) {
	rf, gf, bf := float32(r), float32(g), float32(b)
	yy = c.Kr*rf + c.Kg*gf + c.Kb*bf
	pb = (bf - yy) / (2 * (1 - c.Kb))
	pr = (rf - yy) / (2 * (1 - c.Kr))
	return yy, pb, pr
}

func (c *Coefficients) quantizeLuma(yy float32) uint8 {
	return clampAndRound(c.YOffset + yy*c.YScale)
}

func (c *Coefficients) quantizeChroma(p float32) uint8 {
	return clampAndRound(128 + p*c.CScale)
}

// RGBToHSV converts an RGB pixel to 8-bit HSV. Hue covers 0-255 for a
// full turn; saturation and value are 0-255.
func RGBToHSV(r, g, b uint8) (h, s, v uint8) {
	maxC := max(r, g, b)
	minC := min(r, g, b)
	v = maxC
	delta := float32(maxC) - float32(minC)
	if maxC == 0 || delta == 0 {
		return 0, 0, v
	}
	s = clampAndRound(delta / float32(maxC) * 255)

	rf, gf, bf := float32(r), float32(g), float32(b)
	var hue float32
	switch maxC {
	case r:
		hue = (gf - bf) / delta
		if hue < 0 {
			hue += 6
		}
	case g:
		hue = (bf-rf)/delta + 2
	default:
		hue = (rf-gf)/delta + 4
	}
	code := int(hue/6*256 + 0.5)
	return uint8(code & 0xFF), s, v //nolint:gosec // masked to 8 bits
}

// HSVToRGB converts an 8-bit HSV pixel back to RGB.
func HSVToRGB(h, s, v uint8) (r, g, b uint8) {
	if s == 0 {
		return v, v, v
	}
	vf := float32(v)
	sf := float32(s) / 255
	hue := float32(h) / 256 * 6
	sector := int(hue)
	frac := hue - float32(sector)

	p := vf * (1 - sf)
	q := vf * (1 - sf*frac)
	t := vf * (1 - sf*(1-frac))

	var rf, gf, bf float32
	switch sector {
	case 0:
		rf, gf, bf = vf, t, p
	case 1:
		rf, gf, bf = q, vf, p
	case 2:
		rf, gf, bf = p, vf, t
	case 3:
		rf, gf, bf = p, q, vf
	case 4:
		rf, gf, bf = t, p, vf
	default:
		rf, gf, bf = vf, p, q
	}
	return clampAndRound(rf), clampAndRound(gf), clampAndRound(bf)
}

// clampAndRound clamps a value to [0,255] and converts to uint8 with rounding.
func clampAndRound(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
