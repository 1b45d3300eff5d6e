// Package render turns received video frames into the packed output
// words the LED encoder consumes. The pipeline per pixel is
// decode -> interpolate -> dither -> pack, with stages chosen from a
// fixed menu of variants at configuration time.
package render

import (
	"encoding/binary"

	"github.com/coreman2200/funtimes-octostrip/internal/pool"
	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
)

// Color is an RGB triple. The number of significant bits per component
// is tracked by the pipeline stage that produced it, not by the value:
// decoding yields the format's depth and interpolation widens it by 8.
type Color struct {
	R, G, B uint32
}

// accessor decodes one pixel from a frame's packet array.
type accessor func(packets []*pool.Packet, packetIndex, pixelIndex int) Color

// pixelRGB8 reads 3 bytes per pixel starting after the header byte.
func pixelRGB8(packets []*pool.Packet, packetIndex, pixelIndex int) Color {
	p := &packets[packetIndex].Buf
	off := 1 + pixelIndex*3
	return Color{R: uint32(p[off]), G: uint32(p[off+1]), B: uint32(p[off+2])}
}

// pixelRGB11 reads an 11:11:10 packed word plus the pixel's blue LSB
// from the side-channel word at offset 2.
func pixelRGB11(packets []*pool.Packet, packetIndex, pixelIndex int) Color {
	p := packets[packetIndex].Buf[:]
	word := binary.LittleEndian.Uint32(p[4+4*pixelIndex:])
	blues := binary.LittleEndian.Uint16(p[2:])
	return Color{
		R: word >> 21,
		G: word >> 10 & 0x7ff,
		B: word&0x3ff<<1 | uint32(blues>>pixelIndex)&1,
	}
}

func accessorFor(f protocol.ColorFormat) accessor {
	if f == protocol.RGB11 {
		return pixelRGB11
	}
	return pixelRGB8
}

// packGRB keeps the top 8 bits of each component and packs them in the
// GRB order the strips expect on the wire. bits is the component depth
// of the incoming color.
func packGRB(c Color, bits uint) uint32 {
	shift := bits - 8
	return (c.G>>shift)<<16 | (c.R>>shift)<<8 | c.B>>shift
}
