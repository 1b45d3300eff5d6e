package protocol

import "encoding/binary"

// FrameWriter packs pixels into the frame packets for one geometry and
// color format. It is the host-side counterpart of the device's frame
// decoding and is used by streaming clients and tests.
type FrameWriter struct {
	format  ColorFormat
	pixels  int
	packets [][]byte
}

// NewFrameWriter allocates the packet set for one frame.
func NewFrameWriter(ledStrips, ledsPerStrip int, f ColorFormat) *FrameWriter {
	n := PacketsPerFrame(ledStrips, ledsPerStrip, f)
	w := &FrameWriter{
		format:  f,
		pixels:  ledStrips * ledsPerStrip,
		packets: make([][]byte, n),
	}
	for i := range w.packets {
		w.packets[i] = make([]byte, 64)
		w.packets[i][0] = byte(i)
	}
	return w
}

// NumPixels returns the pixel capacity of the frame.
func (w *FrameWriter) NumPixels() int { return w.pixels }

// Packets returns the packet buffers in index order. The last packet's
// arrival is what signals frame completion, so senders must transmit
// them in this order.
func (w *FrameWriter) Packets() [][]byte { return w.packets }

// SetPixel writes one pixel, clamping components to the format's range:
// [0, 255] for RGB8 and [0, 2040] for RGB11 (the dither headroom limit).
func (w *FrameWriter) SetPixel(n int, r, g, b int) {
	if n < 0 || n >= w.pixels {
		return
	}
	switch w.format {
	case RGB8:
		w.setPixel24(n, clamp(r, 0xff), clamp(g, 0xff), clamp(b, 0xff))
	case RGB11:
		w.setPixel33(n, clamp(r, 0x7f8), clamp(g, 0x7f8), clamp(b, 0x7f8))
	}
}

func (w *FrameWriter) setPixel24(n int, r, g, b uint32) {
	ppp := PixelsPerPacket(RGB8)
	p := w.packets[n/ppp]
	off := 1 + (n%ppp)*3
	p[off+0] = byte(r)
	p[off+1] = byte(g)
	p[off+2] = byte(b)
}

func (w *FrameWriter) setPixel33(n int, r, g, b uint32) {
	ppp := PixelsPerPacket(RGB11)
	p := w.packets[n/ppp]
	i := n % ppp
	word := r<<21 | g<<10 | b>>1
	binary.LittleEndian.PutUint32(p[4+4*i:], word)
	blues := binary.LittleEndian.Uint16(p[2:])
	blues = blues&^(1<<i) | uint16(b&1)<<i
	binary.LittleEndian.PutUint16(p[2:], blues)
}

func clamp(x, max int) uint32 {
	if x < 0 {
		return 0
	}
	if x > max {
		return uint32(max)
	}
	return uint32(x)
}
