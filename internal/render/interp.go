package render

// linearInterp blends the front and prior frames with fixed-point
// weights in 1/256 steps, widening the color by 8 bits to keep the
// fractional precision. Weights start fully-front so a renderer with a
// single received frame displays it unblended.
type linearInterp struct {
	alpha, beta uint32
}

func newLinearInterp() *linearInterp {
	return &linearInterp{alpha: 256, beta: 0}
}

func (ip *linearInterp) apply(front, prior Color) Color {
	return Color{
		R: front.R*ip.alpha + prior.R*ip.beta,
		G: front.G*ip.alpha + prior.G*ip.beta,
		B: front.B*ip.alpha + prior.B*ip.beta,
	}
}

// setCoeffs derives the blend weights from the wall-clock position
// between the two frames' arrival times (microseconds). The 32-bit
// fast path covers about 16 seconds; anything outside it, including
// unsigned wraparound when now precedes the front frame, saturates to
// fully-front rather than extrapolating.
func (ip *linearInterp) setCoeffs(now, frontTime, priorTime uint64) {
	period := frontTime - priorTime
	advance := now - frontTime
	if advance < 0x1000000 && period <= 0x1000000 {
		period32 := uint32(period)
		advance32 := uint32(advance)
		if advance32 < period32 {
			ip.alpha = advance32 * 256 / period32
			ip.beta = 256 - ip.alpha
			return
		}
	}
	ip.alpha = 256
	ip.beta = 0
}
