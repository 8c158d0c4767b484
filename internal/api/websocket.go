package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fleet_console/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

const (
	FrameSnapshot = "snapshot"
	FrameEvent    = "event"
)

// Frame is one websocket message. Every event frame carries the snapshot
// taken right after the transition so clients never need a second request.
type Frame struct {
	Type     string                 `json:"type"`
	Event    *domain.PlayerEvent    `json:"event,omitempty"`
	Snapshot *domain.PlayerSnapshot `json:"snapshot,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	subID := "ws-" + uuid.NewString()
	sub := s.console.Subscribe(subID)
	defer s.console.Unsubscribe(subID)

	snap := s.console.Snapshot()
	if err := writeFrame(conn, Frame{Type: FrameSnapshot, Snapshot: &snap}); err != nil {
		s.logger.Warn().Err(err).Str("subscriber", subID).Msg("ws write snapshot failed")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			snap := s.console.Snapshot()
			if err := writeFrame(conn, Frame{Type: FrameEvent, Event: &ev, Snapshot: &snap}); err != nil {
				s.logger.Warn().Err(err).Str("subscriber", subID).Msg("ws write event failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, frame Frame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}
