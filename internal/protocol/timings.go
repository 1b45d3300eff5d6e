package protocol

import "fmt"

// Timings are the LED output waveform parameters. They can be tuned per
// strip model; some parts tolerate overclocking well past the nominal
// 800 kHz.
type Timings struct {
	// Frequency is the bit clock in Hz.
	Frequency uint32
	// ResetInterval is the post-frame latch time in microseconds.
	ResetInterval uint32
	// T0H and T1H are the high times for 0 and 1 bits, as fractions of
	// the bit period scaled 0..255.
	T0H, T1H uint32
}

// Validate performs basic sanity checks so that experimental values
// cannot wedge the output hardware, even if they might not actually
// drive a given strip correctly.
func (t Timings) Validate() error {
	if t.Frequency < 100_000 || t.Frequency > 2_000_000 {
		return fmt.Errorf("protocol: frequency %d Hz out of range [100 kHz, 2 MHz]", t.Frequency)
	}
	if t.ResetInterval > 5000 {
		return fmt.Errorf("protocol: reset interval %d us exceeds 5 ms", t.ResetInterval)
	}
	if t.T0H == 0 || t.T1H <= t.T0H || t.T1H > 255 {
		return fmt.Errorf("protocol: pulse widths t0h=%d t1h=%d invalid (need 0 < t0h < t1h <= 255)", t.T0H, t.T1H)
	}
	return nil
}

// Stock timing presets. The default matches WS2811/WS2812B parts;
// SK6812 latches faster and overclocks reliably up to 1 MHz.
var (
	TimingsDefault       = Timings{Frequency: 800_000, ResetInterval: 300, T0H: 60, T1H: 176}
	TimingsSK6812        = Timings{Frequency: 800_000, ResetInterval: 100, T0H: 56, T1H: 172}
	TimingsSK6812Fast    = Timings{Frequency: 900_000, ResetInterval: 100, T0H: 44, T1H: 150}
	TimingsSK6812Extreme = Timings{Frequency: 1_000_000, ResetInterval: 80, T0H: 40, T1H: 140}
)

var namedTimings = map[string]Timings{
	"default":        TimingsDefault,
	"sk6812":         TimingsSK6812,
	"sk6812-fast":    TimingsSK6812Fast,
	"sk6812-extreme": TimingsSK6812Extreme,
}

// TimingsByName looks up a stock preset.
func TimingsByName(name string) (Timings, bool) {
	t, ok := namedTimings[name]
	return t, ok
}
