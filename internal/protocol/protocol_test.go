package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/funtimes-octostrip/internal/pool"
)

func TestHeaderClassification(t *testing.T) {
	assert.False(t, IsControl(0x00))
	assert.False(t, IsControl(0x7f))
	assert.True(t, IsControl(TypeConfig))
	assert.True(t, IsControl(TypeDebug))
	assert.Equal(t, 0, FrameIndex(0x00))
	assert.Equal(t, 127, FrameIndex(0x7f))
}

func TestPacketsPerFrame(t *testing.T) {
	cases := []struct {
		strips, leds int
		fmt          ColorFormat
		want         int
	}{
		{8, 64, RGB8, 25},   // 512 px / 21
		{8, 64, RGB11, 35},  // 512 px / 15
		{2, 2, RGB8, 1},
		{2, 2, RGB11, 1},
		{8, 120, RGB8, 46},  // 960 px
		{8, 120, RGB11, 64},
		{3, 21, RGB8, 3},    // exact multiple
	}
	for _, c := range cases {
		assert.Equal(t, c.want, PacketsPerFrame(c.strips, c.leds, c.fmt),
			"strips=%d leds=%d fmt=%v", c.strips, c.leds, c.fmt)
	}
}

func TestTimingsValidate(t *testing.T) {
	cases := []struct {
		name string
		t    Timings
		ok   bool
	}{
		{"default", TimingsDefault, true},
		{"sk6812-extreme", TimingsSK6812Extreme, true},
		{"freq too low", Timings{Frequency: 99_999, ResetInterval: 300, T0H: 60, T1H: 176}, false},
		{"freq too high", Timings{Frequency: 2_000_001, ResetInterval: 300, T0H: 60, T1H: 176}, false},
		{"reset too long", Timings{Frequency: 800_000, ResetInterval: 5001, T0H: 60, T1H: 176}, false},
		{"t0h zero", Timings{Frequency: 800_000, ResetInterval: 300, T0H: 0, T1H: 176}, false},
		{"t1h not above t0h", Timings{Frequency: 800_000, ResetInterval: 300, T0H: 176, T1H: 176}, false},
		{"t1h too wide", Timings{Frequency: 800_000, ResetInterval: 300, T0H: 60, T1H: 256}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.t.Validate()
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTimingsByName(t *testing.T) {
	got, ok := TimingsByName("sk6812")
	assert.True(t, ok)
	assert.Equal(t, TimingsSK6812, got)
	_, ok = TimingsByName("nope")
	assert.False(t, ok)
}

func TestConfigRoundTrip(t *testing.T) {
	in := Config{
		LedStrips:       5,
		LedsPerStrip:    90,
		MaxDitherBits:   2,
		ColorFormat:     RGB11,
		DitherMode:      DitherTemporal,
		InterpolateMode: InterpolateLinear,
		IndicatorMode:   IndicatorOn,
		Timings:         TimingsSK6812Fast,
	}
	var pkt pool.Packet
	in.Encode(pkt.Buf[:])
	assert.True(t, IsControl(pkt.Buf[0]))

	out, err := DecodeConfig(&pkt)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeConfigRejectsWrongType(t *testing.T) {
	var pkt pool.Packet
	pkt.Buf[0] = TypeDebug
	_, err := DecodeConfig(&pkt)
	assert.Error(t, err)
}

func TestDebugRoundTrip(t *testing.T) {
	var pkt pool.Packet
	Debug{PrintStats: true}.Encode(pkt.Buf[:])
	assert.Equal(t, TypeDebug, pkt.Buf[0])
	assert.True(t, DecodeDebug(&pkt).PrintStats)

	Debug{}.Encode(pkt.Buf[:])
	assert.False(t, DecodeDebug(&pkt).PrintStats)
}
