// Package core ties the packet pool, renderer, and LED driver together
// into the device's main loop: packets in, encoded frames out.
package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-octostrip/internal/clock"
	"github.com/coreman2200/funtimes-octostrip/internal/led"
	"github.com/coreman2200/funtimes-octostrip/internal/pool"
	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
	"github.com/coreman2200/funtimes-octostrip/internal/render"
)

// Controller runs the device main loop. HandlePacket is safe to call
// from any number of transport goroutines while Run executes
// concurrently: frame ingestion, buffer flips, and reconfiguration are
// serialized by the ingest mutex, while the render and DMA write path
// runs outside it.
type Controller struct {
	pool   *pool.Pool
	holder *render.Holder
	driver *led.Driver
	log    zerolog.Logger
	now    func() uint64

	// ingest orders frame-packet storage against AdvanceFrame and
	// against renderer/driver reconfiguration. Holding it across the
	// pendingFrame check and the store makes the try-set atomic when
	// several clients send at once.
	ingest       sync.Mutex
	pendingFrame atomic.Bool
	configSlot   atomic.Pointer[protocol.Config]
	printStats   atomic.Bool

	stats Stats

	// Two output buffers so the renderer never touches the bytes the
	// peripheral is still transferring. Sized for the largest geometry
	// once, up front, like the rest of the packet memory.
	out     [2][]byte
	backIdx int

	config    protocol.Config
	indicator func(on bool)
	blink     bool

	lastStatsAt uint64
}

// Option adjusts controller construction.
type Option func(*Controller)

// WithControllerClock substitutes the microsecond timebase, for tests.
func WithControllerClock(fn func() uint64) Option {
	return func(c *Controller) { c.now = fn }
}

// WithIndicator registers the activity LED output.
func WithIndicator(fn func(on bool)) Option {
	return func(c *Controller) { c.indicator = fn }
}

// NewController wires the main loop to its collaborators.
func NewController(p *pool.Pool, h *render.Holder, d *led.Driver, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		pool:   p,
		holder: h,
		driver: d,
		log:    log,
		now:    clock.Micros,
	}
	for _, o := range opts {
		o(c)
	}
	for i := range c.out {
		c.out[i] = make([]byte, led.BufferSize(render.MaxLedsPerStrip))
	}
	return c
}

// HandlePacket consumes one 64-byte packet from the transport. It takes
// ownership of pkt unless it returns false, which means a frame swap is
// pending and the caller must retry the same packet later.
func (c *Controller) HandlePacket(pkt *pool.Packet) bool {
	header := pkt.Buf[0]
	if protocol.IsControl(header) {
		c.handleControl(header, pkt)
		return true
	}

	// Hold off new frame data until the main loop has flipped buffers
	// for the previous frame; the packet stays with the caller.
	c.ingest.Lock()
	if c.pendingFrame.Load() {
		c.ingest.Unlock()
		c.stats.PacketsDeferred.Add(1)
		return false
	}
	complete := c.holder.StoreFramePacket(protocol.FrameIndex(header), pkt)
	if complete {
		c.pendingFrame.Store(true)
	}
	c.ingest.Unlock()

	c.stats.PacketsIn.Add(1)
	if complete {
		c.stats.FramesReceived.Add(1)
	}
	return true
}

func (c *Controller) handleControl(header byte, pkt *pool.Packet) {
	switch header {
	case protocol.TypeConfig:
		cfg, err := protocol.DecodeConfig(pkt)
		c.pool.Free(pkt)
		if err != nil {
			c.stats.PacketsDropped.Add(1)
			c.log.Warn().Err(err).Msg("bad config packet")
			return
		}
		// Latest wins: an unapplied earlier config is superseded.
		c.configSlot.Store(&cfg)
	case protocol.TypeDebug:
		dbg := protocol.DecodeDebug(pkt)
		c.pool.Free(pkt)
		c.printStats.Store(dbg.PrintStats)
	default:
		c.pool.Free(pkt)
		c.stats.PacketsDropped.Add(1)
		c.log.Warn().Uint8("type", header).Msg("unknown control packet")
	}
}

// SubmitConfig queues a configuration exactly as if it had arrived in a
// control packet. Used to apply the boot configuration.
func (c *Controller) SubmitConfig(cfg protocol.Config) {
	c.configSlot.Store(&cfg)
}

// Config returns the most recently applied configuration.
func (c *Controller) Config() protocol.Config { return c.config }

// Stats returns a snapshot of the loop counters.
func (c *Controller) Stats() StatsSnapshot { return c.stats.Snapshot() }

// RunOnce performs one main-loop iteration: apply any queued
// configuration, flip buffers if a frame completed, render, and hand
// the encoded buffer to the driver. Returns true if a frame was
// written to the strips.
func (c *Controller) RunOnce() bool {
	if cfg := c.configSlot.Swap(nil); cfg != nil {
		c.applyConfig(*cfg)
	}

	c.ingest.Lock()
	r := c.holder.Get()
	if c.pendingFrame.Load() {
		r.AdvanceFrame()
		c.pendingFrame.Store(false)
	}
	c.ingest.Unlock()

	// Render unconditionally: dithering and interpolation produce a
	// different buffer every pass even without new frame data.
	back := c.out[c.backIdx]
	if !r.Render(back) {
		return false
	}
	if err := c.driver.Write(back); err != nil {
		c.log.Error().Err(err).Msg("frame write failed")
		return false
	}
	c.backIdx ^= 1
	c.stats.FramesRendered.Add(1)
	c.updateIndicator()
	c.maybeLogStats()
	return true
}

// Run drives the main loop until the context is canceled.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !c.RunOnce() {
			// Unconfigured; nothing to render until a config arrives.
			time.Sleep(time.Millisecond)
		}
	}
}

// applyConfig reinitializes the renderer and driver, excluding frame
// ingestion for the duration so no packet lands in a renderer that is
// being torn down. On any failure the device falls back to the idle
// state rather than keeping a renderer whose geometry the driver never
// accepted.
func (c *Controller) applyConfig(cfg protocol.Config) {
	c.ingest.Lock()
	defer c.ingest.Unlock()

	id := render.ID{Format: cfg.ColorFormat, Dither: cfg.DitherMode, Interpolate: cfg.InterpolateMode}
	opts := render.Options{
		LedStrips:     int(cfg.LedStrips),
		LedsPerStrip:  int(cfg.LedsPerStrip),
		MaxDitherBits: int(cfg.MaxDitherBits),
	}

	if !c.holder.Init(id, opts) {
		c.log.Error().
			Str("format", cfg.ColorFormat.String()).
			Int("strips", opts.LedStrips).
			Int("leds", opts.LedsPerStrip).
			Msg("unsupported render configuration")
		return
	}
	if err := c.driver.Init(opts.LedsPerStrip, cfg.Timings); err != nil {
		c.holder.Clear()
		c.log.Error().Err(err).Msg("driver rejected configuration")
		return
	}

	c.config = cfg
	c.pendingFrame.Store(false)
	c.log.Info().
		Str("format", cfg.ColorFormat.String()).
		Int("strips", opts.LedStrips).
		Int("leds", opts.LedsPerStrip).
		Uint32("freq", cfg.Timings.Frequency).
		Msg("configuration applied")
}

func (c *Controller) updateIndicator() {
	if c.indicator == nil {
		return
	}
	switch c.config.IndicatorMode {
	case protocol.IndicatorActivity:
		c.blink = !c.blink
		c.indicator(c.blink)
	case protocol.IndicatorOn:
		c.indicator(true)
	case protocol.IndicatorOff:
		c.indicator(false)
	}
}

func (c *Controller) maybeLogStats() {
	if !c.printStats.Load() {
		return
	}
	now := c.now()
	if now-c.lastStatsAt < 1_000_000 {
		return
	}
	c.lastStatsAt = now
	s := c.stats.Snapshot()
	c.log.Info().
		Uint64("packets_in", s.PacketsIn).
		Uint64("frames_received", s.FramesReceived).
		Uint64("frames_rendered", s.FramesRendered).
		Uint64("packets_deferred", s.PacketsDeferred).
		Uint64("packets_dropped", s.PacketsDropped).
		Int("pool_available", c.pool.Available()).
		Msg("stats")
}
