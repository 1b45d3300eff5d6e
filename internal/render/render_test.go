package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/funtimes-octostrip/internal/led"
	"github.com/coreman2200/funtimes-octostrip/internal/pool"
	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
)

type fakeClock struct{ now uint64 }

func (c *fakeClock) read() uint64 { return c.now }

func newTestHolder(t *testing.T) (*Holder, *pool.Pool, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: 1_000_000}
	p := pool.New(256)
	return NewHolder(p, WithClock(clk.read)), p, clk
}

// feedPacket copies one encoded frame packet into a pool buffer and
// stores it, returning the renderer's completion signal.
func feedPacket(p *pool.Pool, r Renderer, index int, data []byte) bool {
	pkt := p.Alloc()
	copy(pkt.Buf[:], data)
	return r.StoreFramePacket(index, pkt)
}

func feedFrame(p *pool.Pool, r Renderer, fw *protocol.FrameWriter) bool {
	complete := false
	for i, pkt := range fw.Packets() {
		complete = feedPacket(p, r, i, pkt)
	}
	return complete
}

func grb(r, g, b uint32) uint32 { return g<<16 | r<<8 | b }

func TestStoreThenReadBack(t *testing.T) {
	for _, f := range []protocol.ColorFormat{protocol.RGB8, protocol.RGB11} {
		t.Run(f.String(), func(t *testing.T) {
			h, p, _ := newTestHolder(t)
			opts := Options{LedStrips: 2, LedsPerStrip: 21}
			assert.True(t, h.Init(ID{Format: f, Dither: protocol.DitherNone, Interpolate: protocol.InterpolateNone}, opts))
			r := h.Get()

			fw := protocol.NewFrameWriter(2, 21, f)
			scale := f.Bits() - 8
			for n := 0; n < fw.NumPixels(); n++ {
				fw.SetPixel(n, (n+1)<<scale, (n+2)<<scale, (n+3)<<scale)
			}
			assert.True(t, feedFrame(p, r, fw))
			r.AdvanceFrame()

			out := make([]byte, led.BufferSize(21))
			assert.True(t, r.Render(out))
			for strip := 0; strip < 2; strip++ {
				for pixel := 0; pixel < 21; pixel++ {
					n := uint32(strip*21 + pixel)
					assert.Equal(t, grb(n+1, n+2, n+3), led.ExtractPixel(out, strip, pixel),
						"strip=%d pixel=%d", strip, pixel)
				}
			}
		})
	}
}

func TestPartialFrameIsRenderable(t *testing.T) {
	h, p, _ := newTestHolder(t)
	opts := Options{LedStrips: 2, LedsPerStrip: 30} // 60 px -> 3 packets for RGB8
	assert.True(t, h.Init(ID{Format: protocol.RGB8}, opts))
	r := h.Get()

	// Store only the middle packet (pixels 21..41); its neighbors keep
	// the zero fill from allocation.
	fw := protocol.NewFrameWriter(2, 30, protocol.RGB8)
	for n := 0; n < fw.NumPixels(); n++ {
		fw.SetPixel(n, 10, 20, 30)
	}
	assert.False(t, feedPacket(p, r, 1, fw.Packets()[1]), "middle packet must not complete the frame")
	r.AdvanceFrame()

	out := make([]byte, led.BufferSize(30))
	assert.True(t, r.Render(out))
	assert.Zero(t, led.ExtractPixel(out, 0, 0), "pixel from the missing first packet")
	assert.Equal(t, grb(10, 20, 30), led.ExtractPixel(out, 0, 25), "pixel from the stored packet")
	assert.Zero(t, led.ExtractPixel(out, 1, 20), "pixel from the missing last packet")
}

func TestCompletionOnlyOnLastIndex(t *testing.T) {
	h, p, _ := newTestHolder(t)
	opts := Options{LedStrips: 2, LedsPerStrip: 21} // 42 px -> 2 packets for RGB8
	assert.True(t, h.Init(ID{Format: protocol.RGB8}, opts))
	r := h.Get()

	var data [64]byte
	assert.False(t, feedPacket(p, r, 0, data[:]))
	assert.True(t, feedPacket(p, r, 1, data[:]), "last index signals completion")
	assert.False(t, feedPacket(p, r, 0, data[:]), "earlier index alone never completes")

	// Out-of-range indices are freed and dropped.
	before := p.Available()
	assert.False(t, feedPacket(p, r, 2, data[:]))
	assert.Equal(t, before, p.Available())
}

func TestRenderIdempotentWithoutAdvance(t *testing.T) {
	ids := []ID{
		{Format: protocol.RGB8},
		// Temporal dither on 8-bit input without interpolation is a
		// no-op, so this id aliases the non-dithered variant.
		{Format: protocol.RGB8, Dither: protocol.DitherTemporal},
	}
	for _, id := range ids {
		h, p, _ := newTestHolder(t)
		assert.True(t, h.Init(id, Options{LedStrips: 2, LedsPerStrip: 4}))
		r := h.Get()

		fw := protocol.NewFrameWriter(2, 4, protocol.RGB8)
		for n := 0; n < fw.NumPixels(); n++ {
			fw.SetPixel(n, 3*n, 5*n, 7*n)
		}
		assert.True(t, feedFrame(p, r, fw))
		r.AdvanceFrame()

		a := make([]byte, led.BufferSize(4))
		b := make([]byte, led.BufferSize(4))
		assert.True(t, r.Render(a))
		assert.True(t, r.Render(b))
		assert.True(t, bytes.Equal(a, b))
	}
}

// Over a full dither cycle the truncated outputs must sum to the exact
// 11-bit input: the mean reproduces the fractional intensity.
func TestDitherFairness(t *testing.T) {
	h, p, _ := newTestHolder(t)
	opts := Options{LedStrips: 2, LedsPerStrip: 2, MaxDitherBits: 3}
	id := ID{Format: protocol.RGB11, Dither: protocol.DitherTemporal}
	assert.True(t, h.Init(id, opts))
	r := h.Get()

	const vr, vg, vb = 0x123, 0x456, 0x701
	fw := protocol.NewFrameWriter(2, 2, protocol.RGB11)
	for n := 0; n < fw.NumPixels(); n++ {
		fw.SetPixel(n, vr, vg, vb)
	}
	assert.True(t, feedFrame(p, r, fw))
	r.AdvanceFrame()

	out := make([]byte, led.BufferSize(2))
	var sumR, sumG, sumB uint32
	for i := 0; i < 8; i++ {
		assert.True(t, r.Render(out))
		w := led.ExtractPixel(out, 0, 0)
		sumG += w >> 16 & 0xff
		sumR += w >> 8 & 0xff
		sumB += w & 0xff
	}
	assert.Equal(t, uint32(vr), sumR)
	assert.Equal(t, uint32(vg), sumG)
	assert.Equal(t, uint32(vb), sumB)
}

func TestInterpolationBoundaries(t *testing.T) {
	h, p, clk := newTestHolder(t)
	opts := Options{LedStrips: 2, LedsPerStrip: 2}
	id := ID{Format: protocol.RGB8, Interpolate: protocol.InterpolateLinear}
	assert.True(t, h.Init(id, opts))
	r := h.Get()

	writeFrame := func(v int) {
		fw := protocol.NewFrameWriter(2, 2, protocol.RGB8)
		for n := 0; n < fw.NumPixels(); n++ {
			fw.SetPixel(n, v, v, v)
		}
		assert.True(t, feedFrame(p, r, fw))
		r.AdvanceFrame()
	}

	clk.now = 1_000_000
	writeFrame(100) // prior frame
	clk.now = 2_000_000
	writeFrame(200) // front frame, period = 1s

	renderAt := func(now uint64) uint32 {
		clk.now = now
		out := make([]byte, led.BufferSize(2))
		assert.True(t, r.Render(out))
		return led.ExtractPixel(out, 0, 0)
	}

	assert.Equal(t, grb(150, 150, 150), renderAt(2_500_000), "midpoint blends evenly")
	// At the instant the front frame arrived the blend is still fully
	// prior; clamping to front starts strictly before that instant.
	assert.Equal(t, grb(100, 100, 100), renderAt(2_000_000), "at the front frame's arrival the prior frame shows")
	assert.Equal(t, grb(200, 200, 200), renderAt(1_900_000), "before the front frame clamps to front")
	assert.Equal(t, grb(200, 200, 200), renderAt(3_000_000), "at front+period clamps to front")
	assert.Equal(t, grb(200, 200, 200), renderAt(60_000_000), "far future clamps to front")
}

func TestHolderRejectsUnknownID(t *testing.T) {
	h, _, _ := newTestHolder(t)
	bad := ID{Format: protocol.ColorFormat(7)}
	assert.False(t, h.Init(bad, Options{LedStrips: 4, LedsPerStrip: 16}))

	out := make([]byte, led.BufferSize(16))
	assert.False(t, h.Get().Render(out), "holder must stay idle")
}

func TestHolderValidatesGeometry(t *testing.T) {
	h, _, _ := newTestHolder(t)
	cases := []struct {
		name string
		id   ID
		o    Options
	}{
		{"one strip", ID{Format: protocol.RGB8}, Options{LedStrips: 1, LedsPerStrip: 16}},
		{"nine strips", ID{Format: protocol.RGB8}, Options{LedStrips: 9, LedsPerStrip: 16}},
		{"one led", ID{Format: protocol.RGB8}, Options{LedStrips: 4, LedsPerStrip: 1}},
		{"strip too long", ID{Format: protocol.RGB8}, Options{LedStrips: 4, LedsPerStrip: MaxLedsPerStrip}},
		{
			"exceeds triple-buffered packet capacity",
			ID{Format: protocol.RGB11, Interpolate: protocol.InterpolateLinear},
			Options{LedStrips: 8, LedsPerStrip: 119}, // 64 packets > 48
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.False(t, h.Init(c.id, c.o))
			assert.False(t, h.Get().Render(make([]byte, led.BufferSize(MaxLedsPerStrip))))
		})
	}

	// The same long frame fits when double buffered.
	assert.True(t, h.Init(ID{Format: protocol.RGB8}, Options{LedStrips: 8, LedsPerStrip: 119}))
}

func TestClearReturnsPacketsToPool(t *testing.T) {
	h, p, _ := newTestHolder(t)
	total := p.Available()
	assert.True(t, h.Init(ID{Format: protocol.RGB8}, Options{LedStrips: 2, LedsPerStrip: 21}))
	assert.Equal(t, total-4, p.Available(), "two buffers of two packets each")

	h.Clear()
	assert.Equal(t, total, p.Available())
	assert.False(t, h.Get().Render(make([]byte, led.BufferSize(21))))
}

// A client may reconfigure mid stream, so packet storage must never
// land in a renderer the holder is tearing down: that would double-free
// the renderer's packet slots.
func TestStoreDuringReconfiguration(t *testing.T) {
	h, p, _ := newTestHolder(t)
	opts := Options{LedStrips: 2, LedsPerStrip: 21}
	assert.True(t, h.Init(ID{Format: protocol.RGB8}, opts))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			pkt := p.TryAlloc()
			if pkt == nil {
				continue
			}
			h.StoreFramePacket(i%2, pkt)
		}
	}()
	for i := 0; i < 500; i++ {
		h.Init(ID{Format: protocol.RGB11}, opts)
		h.Init(ID{Format: protocol.RGB8}, opts)
	}
	<-done

	h.Clear()
	assert.Equal(t, 256, p.Available(), "every packet accounted for")
}

func TestNullRendererDiscardsPackets(t *testing.T) {
	h, p, _ := newTestHolder(t)
	before := p.Available()
	pkt := p.Alloc()
	assert.False(t, h.Get().StoreFramePacket(0, pkt))
	assert.Equal(t, before, p.Available())
}
