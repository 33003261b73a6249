package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
)

// StreamHub pushes completed run records to websocket subscribers. Slow
// subscribers drop messages rather than stalling the heartbeat.
type StreamHub struct {
	log zerolog.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewStreamHub creates an empty hub
func NewStreamHub(log zerolog.Logger) *StreamHub {
	return &StreamHub{
		log:  log.With().Str("component", "stream").Logger(),
		subs: make(map[chan []byte]struct{}),
	}
}

// Broadcast sends a run record to all connected subscribers
func (h *StreamHub) Broadcast(rec *domain.RunRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode run record for stream")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
			// Subscriber buffer full, drop the beat
		}
	}
}

func (h *StreamHub) subscribe() chan []byte {
	ch := make(chan []byte, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *StreamHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// handleStream upgrades the connection and relays beats until the client
// disconnects
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := s.stream.subscribe()
	defer s.stream.unsubscribe(ch)

	s.log.Debug().Msg("Stream subscriber connected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-ch:
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				s.log.Debug().Err(err).Msg("Stream subscriber disconnected")
				return
			}
		}
	}
}
