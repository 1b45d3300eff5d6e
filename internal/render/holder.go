package render

import (
	"sync"

	"github.com/coreman2200/funtimes-octostrip/internal/clock"
	"github.com/coreman2200/funtimes-octostrip/internal/pool"
	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
)

// ID identifies one rendering algorithm. Requests match the variant
// table by exact triple.
type ID struct {
	Format      protocol.ColorFormat
	Dither      protocol.DitherMode
	Interpolate protocol.InterpolateMode
}

type variant struct {
	id             ID
	canInstantiate func(Options) bool
	factory        func(Options, *pool.Pool, func() uint64) Renderer
}

func doubleVariant(f protocol.ColorFormat, requested protocol.DitherMode, effectiveDither bool) variant {
	return variant{
		id: ID{Format: f, Dither: requested, Interpolate: protocol.InterpolateNone},
		canInstantiate: func(o Options) bool {
			return validGeometry(o, f, maxPacketsPerDoubleBufferedFrame)
		},
		factory: func(o Options, p *pool.Pool, now func() uint64) Renderer {
			return newDoubleBuffered(f, effectiveDither, o, p, now)
		},
	}
}

func tripleVariant(f protocol.ColorFormat, requested protocol.DitherMode, effectiveDither bool) variant {
	return variant{
		id: ID{Format: f, Dither: requested, Interpolate: protocol.InterpolateLinear},
		canInstantiate: func(o Options) bool {
			return validGeometry(o, f, maxPacketsPerTripleBufferedFrame)
		},
		factory: func(o Options, p *pool.Pool, now func() uint64) Renderer {
			return newTripleBuffered(f, effectiveDither, o, p, now)
		},
	}
}

// variants is the fixed menu of renderer algorithms this build carries.
// Requesting anything else fails cleanly. Dithering an 8-bit format
// without interpolation is a no-op, so that id aliases the non-dithered
// variant instead of wasting a distinct implementation.
var variants = []variant{
	doubleVariant(protocol.RGB8, protocol.DitherNone, false),
	doubleVariant(protocol.RGB8, protocol.DitherTemporal, false),
	tripleVariant(protocol.RGB8, protocol.DitherNone, false),
	tripleVariant(protocol.RGB8, protocol.DitherTemporal, true),
	doubleVariant(protocol.RGB11, protocol.DitherNone, false),
	doubleVariant(protocol.RGB11, protocol.DitherTemporal, true),
	tripleVariant(protocol.RGB11, protocol.DitherNone, false),
	tripleVariant(protocol.RGB11, protocol.DitherTemporal, true),
}

// Holder owns the single live renderer, constructing and destroying
// variants as configurations come and go. When no configuration is
// active it exposes a null renderer that drops packets and renders
// nothing, so callers never see a nil Renderer.
//
// Packet delivery and reconfiguration run on different goroutines, so
// the active renderer is guarded by a mutex: StoreFramePacket holds it
// across lookup and store, which keeps Init from closing a renderer
// (freeing its packet slots) mid delivery.
type Holder struct {
	pool *pool.Pool
	now  func() uint64

	mu     sync.Mutex
	null   nullRenderer
	active Renderer
}

// HolderOption adjusts holder construction.
type HolderOption func(*Holder)

// WithClock substitutes the microsecond timebase, for tests.
func WithClock(fn func() uint64) HolderOption {
	return func(h *Holder) { h.now = fn }
}

// NewHolder creates a holder in the idle (null renderer) state.
func NewHolder(p *pool.Pool, opts ...HolderOption) *Holder {
	h := &Holder{pool: p, now: clock.Micros}
	for _, o := range opts {
		o(h)
	}
	h.null.pool = p
	h.active = &h.null
	return h
}

// Get returns the current renderer. This may be the null renderer if
// initialization hasn't happened yet or failed.
func (h *Holder) Get() Renderer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// StoreFramePacket hands a frame packet to the active renderer. Unlike
// Get-then-store, the renderer cannot be torn down in between.
func (h *Holder) StoreFramePacket(packetIndex int, pkt *pool.Packet) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active.StoreFramePacket(packetIndex, pkt)
}

// Init tears down the current renderer and constructs the variant
// matching id with the given options. Returns false, leaving the null
// renderer active, if the id isn't in the compiled menu or the
// geometry fails that variant's validation.
func (h *Holder) Init(id ID, o Options) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked()

	for _, v := range variants {
		if v.id == id {
			if !v.canInstantiate(o) {
				break
			}
			h.active = v.factory(o, h.pool, h.now)
			return true
		}
	}
	return false
}

// Clear destroys the active renderer, returning its packet buffers to
// the pool, and falls back to the null renderer.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked()
}

func (h *Holder) clearLocked() {
	if h.active != &h.null {
		h.active.Close()
		h.active = &h.null
	}
}
