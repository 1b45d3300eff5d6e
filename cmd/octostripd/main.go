package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-octostrip/internal/config"
	"github.com/coreman2200/funtimes-octostrip/internal/core"
	"github.com/coreman2200/funtimes-octostrip/internal/device"
	"github.com/coreman2200/funtimes-octostrip/internal/led"
	"github.com/coreman2200/funtimes-octostrip/internal/pool"
	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
	"github.com/coreman2200/funtimes-octostrip/internal/render"
	"github.com/coreman2200/funtimes-octostrip/internal/ws"
)

// poolSize covers the largest frame geometry at either buffering depth
// plus headroom for control packets in flight.
const poolSize = 148

func main() {
	var (
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
		driver     = flag.String("driver", "", "output driver: sim | spi | screen (overrides config)")
		configPath = flag.String("config", "octostrip.yaml", "path to config file")
		printStats = flag.Bool("stats", false, "log loop statistics every second")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *driver != "" {
		cfg.Driver = *driver
	}

	boot, err := cfg.Protocol()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	var periph led.Peripheral
	switch cfg.Driver {
	case "", "sim":
		periph = device.NewSim()
	case "screen":
		periph = device.NewScreen(cfg.LedsPerStrip)
	case "spi":
		p, err := device.NewSPIStrip(cfg.SPI.Dev, cfg.LedsPerStrip, boot.Timings)
		if err != nil {
			log.Warn().Err(err).Str("dev", cfg.SPI.Dev).Msg("SPI init failed; falling back to sim")
			p = device.NewSim()
		}
		periph = p
	default:
		log.Warn().Str("driver", cfg.Driver).Msg("unknown driver; using sim")
		periph = device.NewSim()
	}

	p := pool.New(poolSize)
	holder := render.NewHolder(p)
	drv := led.NewDriver(periph)
	ctl := core.NewController(p, holder, drv, log.Logger)
	ctl.SubmitConfig(boot)
	if *printStats {
		pkt := p.Alloc()
		protocol.Debug{PrintStats: true}.Encode(pkt.Buf[:])
		ctl.HandlePacket(pkt)
	}

	server := ws.NewServer(p, ctl, log.Logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/packets", server.HandlePacketsWS)
	mux.HandleFunc("/health", server.HandleHealth)

	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go ctl.Run(ctx)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("driver", cfg.Driver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	cancel()
	_ = srv.Close()
}
