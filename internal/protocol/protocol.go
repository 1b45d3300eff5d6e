// Package protocol defines the packet-level wire format shared between
// the controller firmware core and hosts that stream frames to it.
package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/coreman2200/funtimes-octostrip/internal/pool"
)

// Packet type information encoded in the first byte of each packet.
// The high bit marks a control message; for frame packets the header
// byte is the packet index within the frame.
const (
	ControlFlag byte = 0x80

	TypeConfig byte = ControlFlag | 0x00
	TypeDebug  byte = ControlFlag | 0x01
)

// FramePacketMaxIndex is the highest index a frame packet can carry.
const FramePacketMaxIndex = 0x7f

// MaxPacketsPerFrame is the largest frame the wire format can describe.
const MaxPacketsPerFrame = FramePacketMaxIndex + 1

// IsControl reports whether a header byte marks a control packet.
func IsControl(header byte) bool { return header&ControlFlag != 0 }

// FrameIndex extracts the frame packet index from a header byte.
func FrameIndex(header byte) int { return int(header &^ ControlFlag) }

// ColorFormat selects the pixel representation inside frame packets.
type ColorFormat uint8

const (
	// RGB8 packs 24-bit pixels as 3 bytes each starting at offset 1.
	RGB8 ColorFormat = 0
	// RGB11 packs 33-bit pixels as little-endian uint32 words starting at
	// offset 4, with each pixel's blue LSB in the uint16 at offset 2.
	RGB11 ColorFormat = 1
)

// Bits returns the bits per color component of the format.
func (f ColorFormat) Bits() int {
	if f == RGB11 {
		return 11
	}
	return 8
}

func (f ColorFormat) String() string {
	switch f {
	case RGB8:
		return "rgb8"
	case RGB11:
		return "rgb11"
	}
	return fmt.Sprintf("ColorFormat(%d)", uint8(f))
}

// DitherMode selects the per-pixel dither applied before truncation.
type DitherMode uint8

const (
	DitherNone     DitherMode = 0
	DitherTemporal DitherMode = 1
)

// InterpolateMode selects blending between the two most recent frames.
type InterpolateMode uint8

const (
	InterpolateNone   InterpolateMode = 0
	InterpolateLinear InterpolateMode = 1
)

// IndicatorMode controls the activity LED on the board itself.
type IndicatorMode uint8

const (
	IndicatorActivity IndicatorMode = 0
	IndicatorOff      IndicatorMode = 1
	IndicatorOn       IndicatorMode = 2
)

// PixelsPerPacket returns how many pixels fit in one 64-byte packet
// after the 1-byte header (RGB8) or the header+blues words (RGB11).
func PixelsPerPacket(f ColorFormat) int {
	if f == RGB8 {
		return 21
	}
	return 15
}

// PacketsPerFrame returns the number of packets needed to carry one
// full frame for the given geometry and format.
func PacketsPerFrame(ledStrips, ledsPerStrip int, f ColorFormat) int {
	ppp := PixelsPerPacket(f)
	return (ledStrips*ledsPerStrip + ppp - 1) / ppp
}

// Config is the contents of a configuration packet.
type Config struct {
	LedStrips       uint8
	LedsPerStrip    uint8
	MaxDitherBits   uint8
	ColorFormat     ColorFormat
	DitherMode      DitherMode
	InterpolateMode InterpolateMode
	IndicatorMode   IndicatorMode
	Timings         Timings
}

// ConfigDefault matches the configuration the device boots with before
// a host reconfigures it.
var ConfigDefault = Config{
	LedStrips:       8,
	LedsPerStrip:    64,
	MaxDitherBits:   3,
	ColorFormat:     RGB11,
	DitherMode:      DitherTemporal,
	InterpolateMode: InterpolateLinear,
	IndicatorMode:   IndicatorActivity,
	Timings:         TimingsDefault,
}

const configPacketLen = 24

// DecodeConfig parses a configuration packet.
func DecodeConfig(pkt *pool.Packet) (Config, error) {
	b := pkt.Buf[:]
	if b[0] != TypeConfig {
		return Config{}, fmt.Errorf("protocol: not a config packet: header 0x%02x", b[0])
	}
	c := Config{
		LedStrips:       b[1],
		LedsPerStrip:    b[2],
		MaxDitherBits:   b[3],
		ColorFormat:     ColorFormat(b[4]),
		DitherMode:      DitherMode(b[5]),
		InterpolateMode: InterpolateMode(b[6]),
		IndicatorMode:   IndicatorMode(b[7]),
		Timings: Timings{
			Frequency:     binary.LittleEndian.Uint32(b[8:]),
			ResetInterval: binary.LittleEndian.Uint32(b[12:]),
			T0H:           binary.LittleEndian.Uint32(b[16:]),
			T1H:           binary.LittleEndian.Uint32(b[20:]),
		},
	}
	return c, nil
}

// Encode writes the configuration into a 64-byte packet buffer.
func (c Config) Encode(buf []byte) {
	_ = buf[configPacketLen-1]
	buf[0] = TypeConfig
	buf[1] = c.LedStrips
	buf[2] = c.LedsPerStrip
	buf[3] = c.MaxDitherBits
	buf[4] = byte(c.ColorFormat)
	buf[5] = byte(c.DitherMode)
	buf[6] = byte(c.InterpolateMode)
	buf[7] = byte(c.IndicatorMode)
	binary.LittleEndian.PutUint32(buf[8:], c.Timings.Frequency)
	binary.LittleEndian.PutUint32(buf[12:], c.Timings.ResetInterval)
	binary.LittleEndian.PutUint32(buf[16:], c.Timings.T0H)
	binary.LittleEndian.PutUint32(buf[20:], c.Timings.T1H)
}

// Debug is the contents of a debugging packet.
type Debug struct {
	// PrintStats enables periodic statistics logging.
	PrintStats bool
}

// DecodeDebug parses a debug packet.
func DecodeDebug(pkt *pool.Packet) Debug {
	return Debug{PrintStats: pkt.Buf[1] == 1}
}

// Encode writes the debug flags into a packet buffer.
func (d Debug) Encode(buf []byte) {
	buf[0] = TypeDebug
	if d.PrintStats {
		buf[1] = 1
	} else {
		buf[1] = 0
	}
}
