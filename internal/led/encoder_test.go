package led

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferSize(t *testing.T) {
	assert.Equal(t, 24, BufferSize(1))
	assert.Equal(t, 2880, BufferSize(120))
}

// Encoding then re-extracting must return every strip's word exactly:
// bit b of strip s in output word w corresponds to color bit 23-b.
func TestBitPlaneRoundTrip(t *testing.T) {
	colors := []uint32{
		0xffffff, 0x000000, 0xa5c3e1, 0x800001,
		0x123456, 0xfedcba, 0x0f0f0f, 0xf0f0f0,
	}
	for n := 1; n <= 8; n++ {
		buf := make([]byte, BufferSize(3))
		UpdateBuffer(buf, n, 3, func(strip, pixel int) uint32 {
			return colors[strip] ^ uint32(pixel)
		})
		for pixel := 0; pixel < 3; pixel++ {
			for s := 0; s < n; s++ {
				want := colors[s] ^ uint32(pixel)
				assert.Equal(t, want, ExtractPixel(buf, s, pixel),
					"n=%d strip=%d pixel=%d", n, s, pixel)
			}
			// Strips past the configured count keep their lines low.
			for s := n; s < 8; s++ {
				assert.Zero(t, ExtractPixel(buf, s, pixel),
					"n=%d idle strip=%d pixel=%d", n, s, pixel)
			}
		}
	}
}

func TestSingleBitPlacement(t *testing.T) {
	// One strip, one pixel, a single set color bit at every position.
	for b := 0; b < 24; b++ {
		buf := make([]byte, BufferSize(1))
		UpdateBuffer(buf, 1, 1, func(strip, pixel int) uint32 {
			return 1 << b
		})
		for k := 0; k < 24; k++ {
			want := byte(0)
			if k == 23-b {
				want = 1 // line 0, MSB of the color first on the wire
			}
			assert.Equal(t, want, buf[k], "bit=%d byte=%d", b, k)
		}
	}
}

func TestUpdateBufferDeterministic(t *testing.T) {
	sample := func(strip, pixel int) uint32 { return uint32(strip*7+pixel) * 0x10203 }
	a := make([]byte, BufferSize(4))
	b := make([]byte, BufferSize(4))
	UpdateBuffer(a, 5, 4, sample)
	UpdateBuffer(b, 5, 4, sample)
	assert.True(t, bytes.Equal(a, b))
}
