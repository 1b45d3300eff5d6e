package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
)

type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0
	SpeedHz int    `yaml:"speed_hz"` // e.g. 2400000
}

type Timings struct {
	Preset      string `yaml:"preset,omitempty"` // overrides the fields below
	FrequencyHz uint32 `yaml:"frequency_hz,omitempty"`
	ResetUs     uint32 `yaml:"reset_us,omitempty"`
	T0H         uint32 `yaml:"t0h,omitempty"`
	T1H         uint32 `yaml:"t1h,omitempty"`
}

type Config struct {
	Addr   string `yaml:"addr"`   // websocket listen address
	Driver string `yaml:"driver"` // "sim" | "spi" | "screen"

	Strips        int    `yaml:"strips"`
	LedsPerStrip  int    `yaml:"leds_per_strip"`
	Format        string `yaml:"format"`      // "rgb8" | "rgb11"
	Dither        string `yaml:"dither"`      // "none" | "temporal"
	Interpolate   string `yaml:"interpolate"` // "none" | "linear"
	MaxDitherBits int    `yaml:"max_dither_bits"`

	Timings Timings `yaml:"timings,omitempty"`
	SPI     SPI     `yaml:"spi,omitempty"`
}

// Default mirrors the device's power-on configuration.
func Default() *Config {
	return &Config{
		Addr:          ":7890",
		Driver:        "sim",
		Strips:        int(protocol.ConfigDefault.LedStrips),
		LedsPerStrip:  int(protocol.ConfigDefault.LedsPerStrip),
		Format:        protocol.ConfigDefault.ColorFormat.String(),
		Dither:        "temporal",
		Interpolate:   "linear",
		MaxDitherBits: int(protocol.ConfigDefault.MaxDitherBits),
		Timings:       Timings{Preset: "default"},
		SPI:           SPI{Dev: "/dev/spidev0.0", SpeedHz: 2_400_000},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Protocol converts the file settings into the wire configuration the
// controller boots with.
func (c *Config) Protocol() (protocol.Config, error) {
	p := protocol.ConfigDefault
	p.LedStrips = uint8(c.Strips)
	p.LedsPerStrip = uint8(c.LedsPerStrip)
	p.MaxDitherBits = uint8(c.MaxDitherBits)

	switch c.Format {
	case "", "rgb11":
		p.ColorFormat = protocol.RGB11
	case "rgb8":
		p.ColorFormat = protocol.RGB8
	default:
		return p, fmt.Errorf("config: unknown format %q", c.Format)
	}
	switch c.Dither {
	case "", "temporal":
		p.DitherMode = protocol.DitherTemporal
	case "none":
		p.DitherMode = protocol.DitherNone
	default:
		return p, fmt.Errorf("config: unknown dither mode %q", c.Dither)
	}
	switch c.Interpolate {
	case "", "linear":
		p.InterpolateMode = protocol.InterpolateLinear
	case "none":
		p.InterpolateMode = protocol.InterpolateNone
	default:
		return p, fmt.Errorf("config: unknown interpolate mode %q", c.Interpolate)
	}

	t, err := c.Timings.Protocol()
	if err != nil {
		return p, err
	}
	p.Timings = t
	return p, nil
}

// Protocol resolves a timings section: a preset name when given,
// otherwise explicit fields with unset ones taken from the default.
func (t Timings) Protocol() (protocol.Timings, error) {
	if t.Preset != "" {
		pt, ok := protocol.TimingsByName(t.Preset)
		if !ok {
			return protocol.Timings{}, fmt.Errorf("config: unknown timings preset %q", t.Preset)
		}
		return pt, nil
	}
	pt := protocol.TimingsDefault
	if t.FrequencyHz != 0 {
		pt.Frequency = t.FrequencyHz
	}
	if t.ResetUs != 0 {
		pt.ResetInterval = t.ResetUs
	}
	if t.T0H != 0 {
		pt.T0H = t.T0H
	}
	if t.T1H != 0 {
		pt.T1H = t.T1H
	}
	return pt, pt.Validate()
}
