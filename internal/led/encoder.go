// Package led converts rendered pixel data into the interleaved
// bit-plane buffer the output hardware shifts onto up to eight strips in
// lockstep, and drives the timer/DMA state machine that emits it.
package led

import "encoding/binary"

// BufferSize returns the DMA buffer size in bytes for strips of the
// given length. One byte per bit time carries one bit for each of the 8
// output lines, so a pixel occupies 24 bytes regardless of strip count.
func BufferSize(ledsPerStrip int) int { return ledsPerStrip * 24 }

// Sampler returns the packed 24-bit GRB word for one pixel position of
// one strip.
type Sampler func(strip, pixel int) uint32

// pushFunc encodes one pixel position across all strips into 6 output
// words. Word w, byte j, bit s carries color bit 23-(4w+j) of strip s:
// streamed in order, each byte is one bit time with strip s on line s.
type pushFunc func(dst *[6]uint32, pixel int, sample Sampler)

// The swizzle is specialized per strip count so the per-pixel loop
// carries no count branch; strips past the count leave their lines low.
var pushPixels = [9]pushFunc{
	nil,
	func(dst *[6]uint32, pixel int, sample Sampler) { swizzle(dst, pixel, 1, sample) },
	func(dst *[6]uint32, pixel int, sample Sampler) { swizzle(dst, pixel, 2, sample) },
	func(dst *[6]uint32, pixel int, sample Sampler) { swizzle(dst, pixel, 3, sample) },
	func(dst *[6]uint32, pixel int, sample Sampler) { swizzle(dst, pixel, 4, sample) },
	func(dst *[6]uint32, pixel int, sample Sampler) { swizzle(dst, pixel, 5, sample) },
	func(dst *[6]uint32, pixel int, sample Sampler) { swizzle(dst, pixel, 6, sample) },
	func(dst *[6]uint32, pixel int, sample Sampler) { swizzle(dst, pixel, 7, sample) },
	func(dst *[6]uint32, pixel int, sample Sampler) { swizzle(dst, pixel, 8, sample) },
}

func swizzle(dst *[6]uint32, pixel, n int, sample Sampler) {
	*dst = [6]uint32{}
	for s := 0; s < n; s++ {
		p := sample(s, pixel)
		for w := 0; w < 6; w++ {
			// Four color bits per word, MSB first within the word's bytes.
			nib := p >> (20 - 4*w)
			dst[w] |= (nib >> 3 & 1) << s
			dst[w] |= (nib >> 2 & 1) << (8 + s)
			dst[w] |= (nib >> 1 & 1) << (16 + s)
			dst[w] |= (nib & 1) << (24 + s)
		}
	}
}

// UpdateBuffer encodes a whole frame into buf, which must hold
// BufferSize(ledsPerStrip) bytes. ledStrips must be in [1, 8].
func UpdateBuffer(buf []byte, ledStrips, ledsPerStrip int, sample Sampler) {
	push := pushPixels[ledStrips]
	var words [6]uint32
	for i := 0; i < ledsPerStrip; i++ {
		push(&words, i, sample)
		off := i * 24
		for w := 0; w < 6; w++ {
			binary.LittleEndian.PutUint32(buf[off+4*w:], words[w])
		}
	}
}

// ExtractPixel recovers the packed 24-bit GRB word of one strip from an
// encoded buffer. It is the encoder's inverse, used by single-line
// output backends and by tests.
func ExtractPixel(buf []byte, strip, pixel int) uint32 {
	var p uint32
	base := pixel * 24
	for k := 0; k < 24; k++ {
		bit := uint32(buf[base+k]>>strip) & 1
		p |= bit << (23 - k)
	}
	return p
}
