// octofeed streams a test pattern to a running octostripd, standing in
// for a real lighting controller host.
package main

import (
	"flag"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-octostrip/internal/pool"
	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:7890/packets", "packet stream endpoint")
		strips     = flag.Int("strips", 8, "LED strips")
		leds       = flag.Int("leds", 64, "LEDs per strip")
		format     = flag.String("format", "rgb11", "pixel format: rgb8 | rgb11")
		fps        = flag.Int("fps", 60, "frames per second")
		brightness = flag.Float64("brightness", 0.8, "global brightness 0..1")
		timings    = flag.String("timings", "default", "strip timing preset")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	var cf protocol.ColorFormat
	switch *format {
	case "rgb8":
		cf = protocol.RGB8
	case "rgb11":
		cf = protocol.RGB11
	default:
		log.Fatal().Str("format", *format).Msg("unknown pixel format")
	}
	tm, ok := protocol.TimingsByName(*timings)
	if !ok {
		log.Fatal().Str("timings", *timings).Msg("unknown timing preset")
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", *url).Msg("connect failed")
	}
	defer conn.Close()

	cfg := protocol.ConfigDefault
	cfg.LedStrips = uint8(*strips)
	cfg.LedsPerStrip = uint8(*leds)
	cfg.ColorFormat = cf
	cfg.Timings = tm

	var pkt [pool.PacketSize]byte
	cfg.Encode(pkt[:])
	if err := conn.WriteMessage(websocket.BinaryMessage, pkt[:]); err != nil {
		log.Fatal().Err(err).Msg("send config")
	}
	log.Info().
		Str("format", cf.String()).
		Int("strips", *strips).
		Int("leds", *leds).
		Msg("streaming")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	full := 1<<cf.Bits() - 1
	ticker := time.NewTicker(time.Second / time.Duration(max(1, *fps)))
	defer ticker.Stop()
	phase := 0.0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		fw := protocol.NewFrameWriter(*strips, *leds, cf)
		for s := 0; s < *strips; s++ {
			for i := 0; i < *leds; i++ {
				h := math.Mod(float64(i)/float64(*leds)+float64(s)*0.125+phase, 1.0)
				r, g, b := hsvToRGB(h, 1.0, *brightness)
				fw.SetPixel(s**leds+i,
					int(r*float64(full)),
					int(g*float64(full)),
					int(b*float64(full)))
			}
		}
		phase += 0.01

		// One message per frame; the daemon splits it back into packets.
		var msg []byte
		for _, p := range fw.Packets() {
			msg = append(msg, p...)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			log.Fatal().Err(err).Msg("send frame")
		}
	}
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	p := v * (1.0 - s)
	q := v * (1.0 - f*s)
	t := v * (1.0 - (1.0-f)*s)
	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
