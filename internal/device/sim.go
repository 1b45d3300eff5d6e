package device

import (
	"fmt"
	"sync"
	"time"
)

// Sim emulates the timer and DMA channels in software. It honors the
// configured waveform timing by scheduling the transfer-complete
// callback after the time a real strip chain would take, so the driver
// state machine behaves exactly as it would against hardware.
type Sim struct {
	busClock uint32
	onFrame  func(buf []byte)

	mu          sync.Mutex
	period      uint32
	transferLen int
	data        []byte
	complete    func()
	lastFrame   []byte
	writes      int
}

// SimOption adjusts simulator construction.
type SimOption func(*Sim)

// WithBusClock overrides the emulated timer input clock.
func WithBusClock(hz uint32) SimOption {
	return func(s *Sim) { s.busClock = hz }
}

// WithFrameHook registers a callback invoked with a copy of each
// completed frame, before the driver is told the transfer finished.
func WithFrameHook(fn func(buf []byte)) SimOption {
	return func(s *Sim) { s.onFrame = fn }
}

// NewSim creates a simulator with a 48 MHz bus clock.
func NewSim(opts ...SimOption) *Sim {
	s := &Sim{busClock: 48_000_000}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Sim) BusClock() uint32 { return s.busClock }

func (s *Sim) Configure(period, t0, t1 uint32, transferLen int) error {
	if t0 == 0 || t1 <= t0 || t1 >= period {
		return fmt.Errorf("device: waveform does not fit the period (period=%d t0=%d t1=%d)", period, t0, t1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = period
	s.transferLen = transferLen
	return nil
}

func (s *Sim) OnTransferComplete(fn func()) { s.complete = fn }

func (s *Sim) ArmData(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = buf
}

func (s *Sim) DisableIRQ()       {}
func (s *Sim) QuiesceTrigger()   {}
func (s *Sim) SyncCycle()        {}
func (s *Sim) ClearPendingEdge() {}
func (s *Sim) EnableRequests()   {}
func (s *Sim) RestoreTriggers()  {}

// EnableIRQ ends the write-start sequence; the simulated transfer
// begins here.
func (s *Sim) EnableIRQ() {
	s.mu.Lock()
	frame := append([]byte(nil), s.data[:s.transferLen]...)
	s.lastFrame = frame
	s.writes++
	// One buffer byte per bit period across all eight lines.
	d := time.Duration(uint64(s.transferLen) * uint64(s.period) * uint64(time.Second) / uint64(s.busClock))
	s.mu.Unlock()

	time.AfterFunc(d, func() {
		if s.onFrame != nil {
			s.onFrame(frame)
		}
		s.complete()
	})
}

// LastFrame returns a copy of the most recently written frame.
func (s *Sim) LastFrame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.lastFrame...)
}

// Writes returns how many transfers have started.
func (s *Sim) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
