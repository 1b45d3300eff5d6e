package render

import (
	"github.com/coreman2200/funtimes-octostrip/internal/led"
	"github.com/coreman2200/funtimes-octostrip/internal/pool"
	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
)

// doubleBuffered renders without interpolation: one buffer accumulates
// the incoming frame while the other is read for output, and
// AdvanceFrame swaps them.
type doubleBuffered struct {
	opts Options
	pool *pool.Pool
	now  func() uint64

	pixelsPerPacket int
	getPixel        accessor
	dither          *temporalDither // nil when dithering is off
	bits            uint            // component depth entering packGRB

	buffers     [2]frameBuffer
	back, front *frameBuffer
}

func newDoubleBuffered(f protocol.ColorFormat, dither bool, o Options, p *pool.Pool, now func() uint64) *doubleBuffered {
	r := &doubleBuffered{
		opts:            o,
		pool:            p,
		now:             now,
		pixelsPerPacket: protocol.PixelsPerPacket(f),
		getPixel:        accessorFor(f),
		bits:            uint(f.Bits()),
	}
	if dither {
		r.dither = newTemporalDither(f.Bits(), o.MaxDitherBits)
	}
	packetsPerFrame := protocol.PacketsPerFrame(o.LedStrips, o.LedsPerStrip, f)
	for i := range r.buffers {
		r.buffers[i].alloc(p, packetsPerFrame)
	}
	r.back, r.front = &r.buffers[0], &r.buffers[1]
	return r
}

func (r *doubleBuffered) StoreFramePacket(packetIndex int, pkt *pool.Packet) bool {
	return r.back.storeFramePacket(r.pool, packetIndex, pkt, r.now())
}

func (r *doubleBuffered) AdvanceFrame() {
	r.front, r.back = r.back, r.front
}

func (r *doubleBuffered) Render(out []byte) bool {
	led.UpdateBuffer(out, r.opts.LedStrips, r.opts.LedsPerStrip, func(strip, pixel int) uint32 {
		x := strip*r.opts.LedsPerStrip + pixel
		c := r.getPixel(r.front.packets, x/r.pixelsPerPacket, x%r.pixelsPerPacket)
		if r.dither != nil {
			c = r.dither.apply(c)
		}
		return packGRB(c, r.bits)
	})
	// One step per render call, regardless of geometry, so the dither
	// period is consistent.
	if r.dither != nil {
		r.dither.advance()
	}
	return true
}

func (r *doubleBuffered) Close() {
	for i := range r.buffers {
		r.buffers[i].release(r.pool)
	}
}

// tripleBuffered renders with linear interpolation between the two most
// recently completed frames: ingest, front, and prior buffers rotate on
// AdvanceFrame.
type tripleBuffered struct {
	opts Options
	pool *pool.Pool
	now  func() uint64

	pixelsPerPacket int
	getPixel        accessor
	interp          *linearInterp
	dither          *temporalDither // nil when dithering is off
	bits            uint

	buffers            [3]frameBuffer
	back, front, prior *frameBuffer
}

func newTripleBuffered(f protocol.ColorFormat, dither bool, o Options, p *pool.Pool, now func() uint64) *tripleBuffered {
	r := &tripleBuffered{
		opts:            o,
		pool:            p,
		now:             now,
		pixelsPerPacket: protocol.PixelsPerPacket(f),
		getPixel:        accessorFor(f),
		interp:          newLinearInterp(),
		bits:            uint(f.Bits() + 8), // interpolation widens by 8
	}
	if dither {
		r.dither = newTemporalDither(f.Bits()+8, o.MaxDitherBits)
	}
	packetsPerFrame := protocol.PacketsPerFrame(o.LedStrips, o.LedsPerStrip, f)
	for i := range r.buffers {
		r.buffers[i].alloc(p, packetsPerFrame)
	}
	r.back, r.front, r.prior = &r.buffers[0], &r.buffers[1], &r.buffers[2]
	return r
}

func (r *tripleBuffered) StoreFramePacket(packetIndex int, pkt *pool.Packet) bool {
	return r.back.storeFramePacket(r.pool, packetIndex, pkt, r.now())
}

func (r *tripleBuffered) AdvanceFrame() {
	r.front, r.prior = r.prior, r.front
	r.front, r.back = r.back, r.front
}

func (r *tripleBuffered) Render(out []byte) bool {
	r.interp.setCoeffs(r.now(), r.front.time, r.prior.time)
	led.UpdateBuffer(out, r.opts.LedStrips, r.opts.LedsPerStrip, func(strip, pixel int) uint32 {
		x := strip*r.opts.LedsPerStrip + pixel
		pi, xi := x/r.pixelsPerPacket, x%r.pixelsPerPacket
		c := r.interp.apply(r.getPixel(r.front.packets, pi, xi), r.getPixel(r.prior.packets, pi, xi))
		if r.dither != nil {
			c = r.dither.apply(c)
		}
		return packGRB(c, r.bits)
	})
	if r.dither != nil {
		r.dither.advance()
	}
	return true
}

func (r *tripleBuffered) Close() {
	for i := range r.buffers {
		r.buffers[i].release(r.pool)
	}
}
