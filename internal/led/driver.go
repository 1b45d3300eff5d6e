package led

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/coreman2200/funtimes-octostrip/internal/clock"
	"github.com/coreman2200/funtimes-octostrip/internal/protocol"
)

// Peripheral abstracts the timer and the three DMA channels that emit
// the waveform: a set channel raises all lines at the start of each bit
// period, a data channel writes the per-line bits partway through, and
// a clear channel drops all lines before the period ends.
//
// Implementations must invoke the completion handler when the clear
// channel finishes the final byte of a transfer.
type Peripheral interface {
	// BusClock returns the timer input clock in Hz.
	BusClock() uint32
	// Configure programs the waveform timer (period and the two match
	// values for 0/1 pulses, in timer ticks) and the per-channel
	// transfer length in bytes. Called only while no write is in flight.
	Configure(period, t0, t1 uint32, transferLen int) error
	// OnTransferComplete registers the handler invoked from the
	// completion interrupt context.
	OnTransferComplete(fn func())
	// ArmData sets the data channel's source buffer.
	ArmData(buf []byte)

	// The methods below form the write-start critical section and are
	// only ever called in the documented order.
	DisableIRQ()
	// QuiesceTrigger disarms the data channel's timer trigger so that
	// re-enabling requests below cannot fire against a stale edge.
	QuiesceTrigger()
	// SyncCycle waits for the waveform timer to pass the clear match
	// twice, so the enable lands between the clear match and the next
	// period start.
	SyncCycle()
	// ClearPendingEdge clears the latched edge flag that would
	// otherwise trigger the set channel immediately.
	ClearPendingEdge()
	// EnableRequests re-enables the set, data, and clear channel
	// requests, in that priority order.
	EnableRequests()
	// RestoreTriggers re-arms the timer's waveform-generation triggers
	// for the data and clear channels.
	RestoreTriggers()
	EnableIRQ()
}

// Driver owns the asynchronous write/ready state machine for the LED
// output. Writes are fire-and-forget: once armed, a transfer runs to
// completion and the buffer must not be touched until WriteFinished.
type Driver struct {
	p   Peripheral
	now func() uint64

	writing    atomic.Bool
	finishedAt atomic.Uint64

	resetInterval uint64
	configured    bool
}

// DriverOption adjusts driver construction.
type DriverOption func(*Driver)

// WithDriverClock substitutes the microsecond timebase, for tests.
func WithDriverClock(fn func() uint64) DriverOption {
	return func(d *Driver) { d.now = fn }
}

// NewDriver wires a driver to its peripheral.
func NewDriver(p Peripheral, opts ...DriverOption) *Driver {
	d := &Driver{p: p, now: clock.Micros}
	for _, o := range opts {
		o(d)
	}
	p.OnTransferComplete(d.finishWrite)
	return d
}

// Init validates timings, waits for any in-flight write, then programs
// the waveform and transfer geometry. Invalid parameters are rejected
// before any hardware state is touched.
func (d *Driver) Init(ledsPerStrip int, t protocol.Timings) error {
	if ledsPerStrip <= 0 {
		return fmt.Errorf("led: leds per strip %d invalid", ledsPerStrip)
	}
	if err := t.Validate(); err != nil {
		return err
	}

	for d.writing.Load() {
		runtime.Gosched()
	}

	d.resetInterval = uint64(t.ResetInterval)
	// Timer period for the bit clock, rounded to nearest.
	period := (d.p.BusClock() + t.Frequency/2) / t.Frequency
	if err := d.p.Configure(period, period*t.T0H>>8, period*t.T1H>>8, BufferSize(ledsPerStrip)); err != nil {
		return err
	}
	d.configured = true
	return nil
}

// WriteFinished reports whether all prior writes have completed.
func (d *Driver) WriteFinished() bool { return !d.writing.Load() }

// Ready reports whether the strips can accept new data: no write in
// flight and the reset interval has elapsed since the last one ended.
func (d *Driver) Ready() bool {
	return !d.writing.Load() && d.now() >= d.finishedAt.Load()+d.resetInterval
}

// Write submits an encoded buffer to the peripheral, busy-waiting until
// the strips are ready. The start sequence must run without interrupts,
// in exactly this order, and complete within one waveform period;
// otherwise the first bit is corrupted or the set channel fires early.
// Fails if no Init has succeeded: the waveform timer would be
// unprogrammed.
func (d *Driver) Write(buf []byte) error {
	if !d.configured {
		return errors.New("led: write before a successful init")
	}
	for !d.Ready() {
		runtime.Gosched()
	}

	d.writing.Store(true)
	d.p.ArmData(buf)

	d.p.DisableIRQ()
	d.p.QuiesceTrigger()
	d.p.SyncCycle()
	d.p.ClearPendingEdge()
	d.p.EnableRequests()
	d.p.RestoreTriggers()
	d.p.EnableIRQ()
	return nil
}

// finishWrite runs in the completion interrupt context.
func (d *Driver) finishWrite() {
	d.finishedAt.Store(d.now())
	d.writing.Store(false)
}
