// Package device provides the output peripherals the LED driver can
// run against: a pure software simulator, a terminal preview, and a
// real strip on a SPI port.
package device

import (
	"image"
	"image/color"

	"github.com/coreman2200/funtimes-octostrip/internal/led"
)

// stripImage decodes one strip out of an encoded output buffer into a
// 1-pixel-tall image for display backends.
func stripImage(buf []byte, strip, ledsPerStrip int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, ledsPerStrip, 1))
	for i := 0; i < ledsPerStrip; i++ {
		w := led.ExtractPixel(buf, strip, i)
		img.SetNRGBA(i, 0, color.NRGBA{
			R: uint8(w >> 8),
			G: uint8(w >> 16),
			B: uint8(w),
			A: 0xff,
		})
	}
	return img
}
