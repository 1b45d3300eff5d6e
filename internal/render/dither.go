package render

import "math/bits"

// temporalDither adds a noise offset that steps through a bit-reversed
// ("butterfly") sequence of period 2^k, where k is the number of
// fractional bits being dithered. Averaged over a full cycle the
// truncated outputs reproduce the fractional intensity exactly, with
// the error spread evenly in time instead of clumped.
type temporalDither struct {
	shift  uint
	zeroes uint
	noise  uint32
}

// newTemporalDither sizes the sequence for a color depth of bpc bits
// per component, dithering at most maxDitherBits of the fractional
// tail. bpc must exceed 8; the menu only offers dithering variants
// where that holds.
func newTemporalDither(bpc, maxDitherBits int) *temporalDither {
	k := bpc - 8
	if maxDitherBits < k {
		k = maxDitherBits
	}
	return &temporalDither{
		shift:  uint(32 - k),
		zeroes: uint(bpc - 8 - k),
	}
}

// apply offsets every channel by the current noise value. The host
// keeps the maximum component at 0xff << (bpc-8), a property preserved
// by interpolation, so the addition cannot overflow the component.
func (d *temporalDither) apply(c Color) Color {
	return Color{R: c.R + d.noise, G: c.G + d.noise, B: c.B + d.noise}
}

// advance steps the sequence once. Incrementing the bit-reversed
// counter produces e.g. 0,4,2,6,1,5,3,7 for k=3.
func (d *temporalDither) advance() {
	n := d.noise >> d.zeroes
	n = bits.Reverse32(bits.Reverse32(n<<d.shift)+1) >> d.shift
	d.noise = n << d.zeroes
}
