package device

import (
	"image"

	"periph.io/x/extra/devices/screen"
)

// NewScreen builds a simulator that also previews the first strip of
// each frame as color blocks in the terminal.
func NewScreen(ledsPerStrip int) *Sim {
	dev := screen.New(ledsPerStrip)
	return NewSim(WithFrameHook(func(buf []byte) {
		img := stripImage(buf, 0, ledsPerStrip)
		_ = dev.Draw(dev.Bounds(), img, image.Point{})
	}))
}
