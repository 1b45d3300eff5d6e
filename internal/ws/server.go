// Package ws exposes the packet stream over websockets, standing in for
// the USB transport the controller core was written around.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-octostrip/internal/core"
	"github.com/coreman2200/funtimes-octostrip/internal/pool"
)

// Sink is where decoded packets go. HandlePacket returning false means
// the sink is mid frame-flip and the same packet must be offered again.
type Sink interface {
	HandlePacket(pkt *pool.Packet) bool
	Stats() core.StatsSnapshot
}

// Server accepts websocket clients that stream 64-byte packets as
// binary messages. A message may carry several packets back to back.
type Server struct {
	pool      *pool.Pool
	sink      Sink
	log       zerolog.Logger
	startTime time.Time

	// retryDelay paces the HandlePacket retry loop while the main loop
	// flips frame buffers.
	retryDelay time.Duration
}

// NewServer builds the transport front end.
func NewServer(p *pool.Pool, sink Sink, log zerolog.Logger) *Server {
	return &Server{
		pool:       p,
		sink:       sink,
		log:        log,
		startTime:  time.Now(),
		retryDelay: 200 * time.Microsecond,
	}
}

// HandlePacketsWS upgrades the connection and pumps its binary messages
// into the sink until the client goes away.
func (s *Server) HandlePacketsWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client disconnected")
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if len(data) == 0 || len(data)%pool.PacketSize != 0 {
			s.log.Warn().Int("len", len(data)).Msg("misaligned packet message")
			continue
		}
		for off := 0; off < len(data); off += pool.PacketSize {
			s.deliver(data[off : off+pool.PacketSize])
		}
	}
}

// deliver moves one wire packet into pool memory and hands it to the
// sink, applying backpressure to the connection when the pool is dry or
// the sink is busy.
func (s *Server) deliver(data []byte) {
	pkt := s.pool.TryAlloc()
	for pkt == nil {
		time.Sleep(s.retryDelay)
		pkt = s.pool.TryAlloc()
	}
	copy(pkt.Buf[:], data)
	for !s.sink.HandlePacket(pkt) {
		time.Sleep(s.retryDelay)
	}
}

// HandleHealth reports loop statistics and pool headroom.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.sink.Stats()
	resp := map[string]any{
		"uptime_s":         time.Since(s.startTime).Seconds(),
		"packets_in":       st.PacketsIn,
		"frames_received":  st.FramesReceived,
		"frames_rendered":  st.FramesRendered,
		"packets_deferred": st.PacketsDeferred,
		"packets_dropped":  st.PacketsDropped,
		"pool_available":   s.pool.Available(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}
