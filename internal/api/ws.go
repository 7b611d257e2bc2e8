package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// wsUpgrader accepts any origin; the gateway binds to loopback and the
// desktop shell's origin varies between dev and packaged builds, same
// as the CORS policy.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 120 * time.Second

// handleChatWS streams chat events over a WebSocket. The client sends
// one ChatRequest as its first text frame; the server answers with one
// JSON frame per event and closes after done. Closing the socket early
// cancels the pipeline.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req ChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Debug("websocket request decode failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read loop only watches for the peer going away; any read
	// error (close frame, dropped connection) cancels the producer.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := s.chat.Stream(ctx, req.toService(true))
	for ev := range events {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			cancel()
			// Drain so the producer can finish and close the channel.
			for range events {
			}
			return
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
