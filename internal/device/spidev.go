package device

import (
	"fmt"
	"image"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
)

// NewSPIStrip builds a simulator whose frames additionally drive a real
// NRZ strip on a SPI port. Only the first of the eight encoded lines
// goes out; SPI has a single data pin.
func NewSPIStrip(dev string, ledsPerStrip int, t protocol.Timings) (*Sim, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("device: open spi %q: %w", dev, err)
	}

	// The SPI clock carries three SPI bits per NRZ bit, plus headroom.
	opts := nrzled.Opts{
		NumPixels: ledsPerStrip,
		Channels:  3,
		Freq:      3*physic.Frequency(t.Frequency)*physic.Hertz + 100*physic.KiloHertz,
	}
	d, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		port.Close()
		return nil, err
	}
	_ = d.Halt()

	return NewSim(WithFrameHook(func(buf []byte) {
		img := stripImage(buf, 0, ledsPerStrip)
		_ = d.Draw(d.Bounds(), img, image.Point{})
	})), nil
}
