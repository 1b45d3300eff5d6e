package render

import (
	"github.com/coreman2200/funtimes-octostrip/internal/pool"
	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
)

// Capacity limits. They bound how much packet memory a renderer may
// claim and how large the DMA output buffers are.
const (
	// MaxLedsPerStrip bounds strip length; the output buffer needs
	// 24 bytes per LED regardless of how many strips are active.
	MaxLedsPerStrip = 120

	// Packet capacity per frame depending on buffering depth.
	maxPacketsPerDoubleBufferedFrame = 72
	maxPacketsPerTripleBufferedFrame = 48
)

// Options configures a renderer's geometry. It is immutable for the
// lifetime of one renderer; changing it means tearing the renderer
// down and constructing a new one.
type Options struct {
	// LedStrips is the number of parallel strips, 1 to 8.
	LedStrips int
	// LedsPerStrip is the strip length.
	LedsPerStrip int
	// MaxDitherBits caps the temporal dither depth, typically 0 to 3.
	// It sets the period at which the dither pattern repeats: 3 bits
	// cycle every 8 frames, which can flicker at low refresh rates.
	MaxDitherBits int
}

// Renderer consumes frame packets and renders them to an encoded
// output buffer.
type Renderer interface {
	// StoreFramePacket takes ownership of a packet holding part of the
	// next frame. Callable from the packet-arrival context. Returns
	// true when the frame buffer is ready to be rendered (this was the
	// last packet of the frame).
	StoreFramePacket(packetIndex int, pkt *pool.Packet) bool

	// AdvanceFrame flips frame buffers. Must be called exactly once per
	// completed frame, before the render that should reflect it.
	AdvanceFrame()

	// Render writes the frame into an encoded output buffer for DMA.
	// Returns true if a frame was written.
	Render(out []byte) bool

	// Close returns the renderer's packet buffers to the pool.
	Close()
}

// nullRenderer discards all packets and renders nothing. It stands in
// whenever no valid configuration is active.
type nullRenderer struct {
	pool *pool.Pool
}

func (n *nullRenderer) StoreFramePacket(packetIndex int, pkt *pool.Packet) bool {
	n.pool.Free(pkt)
	return false
}

func (n *nullRenderer) AdvanceFrame()          {}
func (n *nullRenderer) Render(out []byte) bool { return false }
func (n *nullRenderer) Close()                 {}

func validGeometry(o Options, f protocol.ColorFormat, maxPackets int) bool {
	return o.LedStrips > 1 && o.LedStrips <= 8 &&
		o.LedsPerStrip > 1 && o.LedsPerStrip < MaxLedsPerStrip &&
		protocol.PacketsPerFrame(o.LedStrips, o.LedsPerStrip, f) <= maxPackets
}
