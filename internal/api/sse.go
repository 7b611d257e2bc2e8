package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openchat/openchatd/internal/chat"
)

// handleChatSSE streams chat events as server-sent events. Each event
// is one complete `data: {json}` frame flushed on its own, so transport
// chunking never splits or merges payloads. The stream ends with the
// pipeline's done event.
func (s *Server) handleChatSSE(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.errorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Reset the write deadline per event so a slow generation does not
	// trip the server-wide write timeout mid-stream.
	rc := http.NewResponseController(w)

	for ev := range s.chat.Stream(r.Context(), req) {
		s.writeSSE(w, ev)
		flusher.Flush()
		if err := rc.SetWriteDeadline(time.Now().Add(120 * time.Second)); err != nil {
			s.logger.Debug("failed to reset write deadline", "error", err)
		}
	}
}

func (s *Server) writeSSE(w http.ResponseWriter, ev chat.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Debug("failed to marshal SSE event", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		s.logger.Debug("failed to write SSE event", "error", err)
	}
}
