package core

import "sync/atomic"

// Stats counts main-loop events. Fields are updated from both the
// transport and main-loop goroutines.
type Stats struct {
	PacketsIn       atomic.Uint64
	FramesReceived  atomic.Uint64
	FramesRendered  atomic.Uint64
	PacketsDeferred atomic.Uint64
	PacketsDropped  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	PacketsIn       uint64
	FramesReceived  uint64
	FramesRendered  uint64
	PacketsDeferred uint64
	PacketsDropped  uint64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		PacketsIn:       s.PacketsIn.Load(),
		FramesReceived:  s.FramesReceived.Load(),
		FramesRendered:  s.FramesRendered.Load(),
		PacketsDeferred: s.PacketsDeferred.Load(),
		PacketsDropped:  s.PacketsDropped.Load(),
	}
}
