// Package api implements the gateway HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openchat/openchatd/internal/buildinfo"
	"github.com/openchat/openchatd/internal/chat"
	"github.com/openchat/openchatd/internal/session"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address string
	port    int
	chat    *chat.Service
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates a new API server.
func NewServer(address string, port int, svc *chat.Service, logger *slog.Logger) *Server {
	return &Server{
		address: address,
		port:    port,
		chat:    svc,
		logger:  logger,
	}
}

// Handler builds the full handler stack: routes wrapped in CORS and
// request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health and introspection
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /ollama/health", s.handleOllamaHealth)
	mux.HandleFunc("GET /models", s.handleModels)
	mux.HandleFunc("GET /session/stats", s.handleSessionStats)

	// Chat
	mux.HandleFunc("POST /warm", s.handleWarm)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /chat/sse", s.handleChatSSE)
	mux.HandleFunc("GET /chat/ws", s.handleChatWS)
	mux.HandleFunc("POST /title", s.handleTitle)

	return s.withLogging(withCORS(mux))
}

// Start begins serving HTTP requests. It blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Long for streaming responses
	}

	s.logger.Info("starting API server", "address", s.address, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// withCORS applies the permissive development policy the desktop shell
// needs (Tauri dev serves the client from its own origin).
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "openchatd",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

// handleOllamaHealth is a lightweight daemon reachability check plus
// model count. Defensive: backend faults degrade to offline/zero.
func (s *Server) handleOllamaHealth(w http.ResponseWriter, r *http.Request) {
	online := s.chat.Online(r.Context())
	var count int
	if online {
		count = len(s.chat.Models(r.Context()))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"online": online, "models": count}, s.logger)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.chat.Models(r.Context())
	if models == nil {
		models = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"models": models}, s.logger)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.chat.Store().Stats(), s.logger)
}

// handleWarm preloads a model to reduce first-token latency.
// POST /warm {"model": "llama3.1"}
func (s *Server) handleWarm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if !s.chat.BackendEnabled() {
		writeJSON(w, map[string]any{"status": "noop", "detail": "model backend not configured"}, s.logger)
		return
	}

	model, err := s.chat.Warm(r.Context(), req.Model)
	if err != nil {
		writeJSON(w, map[string]any{"status": "error", "model": model, "detail": err.Error()}, s.logger)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "model": model}, s.logger)
}

// handleChat is the one-shot chat endpoint. Always 200: model and
// backend problems are surfaced as text inside output, never as a
// transport fault.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	output, err := s.chat.Respond(r.Context(), req)
	if err != nil {
		s.logger.Error("chat failed", "session", req.SessionID, "error", err)
		output = fmt.Sprintf("Error from model: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"output": output}, s.logger)
}

// handleTitle computes a conversation title. Never fails: the heuristic
// result backs every error path.
func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	maxWords := req.MaxWords
	if maxWords <= 0 {
		maxWords = chat.DefaultTitleWords
	}

	turns := make([]session.Turn, len(req.Messages))
	for i, m := range req.Messages {
		turns[i] = session.Turn{Role: session.ParseRole(m.Role), Content: m.Content}
	}

	title := s.chat.Title(r.Context(), turns, maxWords, req.Model)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"title": title}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}

// HistoryItem is one caller-supplied context turn.
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserContext carries per-conversation request metadata.
type UserContext struct {
	ConversationID string `json:"conversation_id"`
}

// ChatRequest is the wire format shared by the one-shot and streaming
// chat endpoints.
type ChatRequest struct {
	Message     string        `json:"message"`
	History     []HistoryItem `json:"history,omitempty"`
	Model       string        `json:"model,omitempty"`
	System      string        `json:"system,omitempty"`
	UserContext *UserContext  `json:"user_context,omitempty"`
}

// TitleRequest asks for a conversation label.
type TitleRequest struct {
	Messages []HistoryItem `json:"messages"`
	Model    string        `json:"model,omitempty"`
	MaxWords int           `json:"max_words,omitempty"`
}

// toService converts the wire request to the orchestration request,
// normalizing roles. A one-shot call without a conversation id gets a
// generated one so its mirror writes stay isolated.
func (r ChatRequest) toService(generateID bool) chat.Request {
	history := make([]session.Turn, len(r.History))
	for i, h := range r.History {
		history[i] = session.Turn{Role: session.ParseRole(h.Role), Content: h.Content}
	}

	var sessionID string
	if r.UserContext != nil {
		sessionID = r.UserContext.ConversationID
	}
	if sessionID == "" && generateID {
		sessionID = uuid.New().String()
	}

	return chat.Request{
		Message:   r.Message,
		History:   history,
		Model:     r.Model,
		System:    r.System,
		SessionID: sessionID,
	}
}

func decodeChatRequest(r *http.Request) (chat.Request, error) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return chat.Request{}, err
	}
	return req.toService(true), nil
}
