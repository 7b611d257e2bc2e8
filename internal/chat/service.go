package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openchat/openchatd/internal/llm"
	"github.com/openchat/openchatd/internal/router"
	"github.com/openchat/openchatd/internal/session"
)

// backendMissingNotice is streamed (or returned) when no model backend
// is configured. The gateway always answers; it never hard-fails a chat
// because the daemon integration is off.
const backendMissingNotice = "Gateway is running, but no model backend is configured. "

// defaultTitleBoostTimeout is the hard deadline for the model call that
// upgrades a heuristic title.
const defaultTitleBoostTimeout = 2 * time.Second

// Request is one inbound chat call. History is the client-supplied
// context for this call; it is mirrored into the session store on the
// streaming path but the two are otherwise independent.
type Request struct {
	Message   string
	History   []session.Turn
	Model     string
	System    string
	SessionID string
}

// Service orchestrates model resolution, context assembly, dispatch and
// streaming. The backend capability is decided at startup and injected.
type Service struct {
	backend      llm.Capability
	store        session.Store
	logger       *slog.Logger
	titleTimeout time.Duration
	defaultModel string
}

// Config holds the service tunables.
type Config struct {
	// TitleBoostTimeout bounds the title-boost model call.
	// Zero selects the built-in 2s default.
	TitleBoostTimeout time.Duration

	// DefaultModel is used when a request names no model and the daemon
	// reports nothing installed. Empty selects router.FallbackModel.
	DefaultModel string
}

// New creates the chat service.
func New(backend llm.Capability, store session.Store, logger *slog.Logger, cfg Config) *Service {
	if cfg.TitleBoostTimeout <= 0 {
		cfg.TitleBoostTimeout = defaultTitleBoostTimeout
	}
	return &Service{
		backend:      backend,
		store:        store,
		logger:       logger.With("component", "chat"),
		titleTimeout: cfg.TitleBoostTimeout,
		defaultModel: cfg.DefaultModel,
	}
}

// Store exposes the session history store for observability endpoints.
func (s *Service) Store() session.Store { return s.store }

// BackendEnabled reports whether a model backend was configured.
func (s *Service) BackendEnabled() bool { return s.backend.Enabled() }

// Online reports whether the model daemon is reachable right now.
// Never returns an error; absence degrades to false.
func (s *Service) Online(ctx context.Context) bool {
	cl, err := s.backend.Client()
	if err != nil {
		return false
	}
	return cl.Ping(ctx) == nil
}

// Models returns the installed model names; empty on any failure.
func (s *Service) Models(ctx context.Context) []string {
	return s.installedModels(ctx)
}

// installedModels queries the daemon fresh on every call. Resolution
// trades probe latency for freshness; nothing is cached.
func (s *Service) installedModels(ctx context.Context) []string {
	cl, err := s.backend.Client()
	if err != nil {
		return nil
	}
	names, err := cl.ListModels(ctx)
	if err != nil {
		s.logger.Debug("list models failed", "error", err)
		return nil
	}
	return names
}

// Warm triggers a model load with a throwaway one-shot call, reducing
// first-token latency for the real request that follows. Returns the
// model that was warmed.
func (s *Service) Warm(ctx context.Context, model string) (string, error) {
	cl, err := s.backend.Client()
	if err != nil {
		return model, err
	}

	resolved, err := router.Resolve(model, s.installedModels(ctx), false, s.defaultModel)
	if err != nil {
		return model, err
	}

	_, err = cl.Chat(ctx, resolved.Model, []llm.Message{{Role: "user", Content: "ping"}})
	return resolved.Model, err
}

// Respond handles a one-shot chat request. When no backend is
// configured it degrades to a fixed informational answer. The only
// errors returned are model-level (not installed, daemon fault); the
// transport folds them into the response body rather than failing.
func (s *Service) Respond(ctx context.Context, req Request) (string, error) {
	cl, err := s.backend.Client()
	if err != nil {
		return backendMissingNotice, nil
	}

	s.logger.Debug("chat request",
		"session", req.SessionID,
		"model", req.Model,
		"msg_len", len(req.Message),
		"history", len(req.History),
	)

	resolved, err := router.Resolve(req.Model, s.installedModels(ctx), false, s.defaultModel)
	if err != nil {
		return "", err
	}

	resp, err := cl.Chat(ctx, resolved.Model, Assemble(req.System, req.History, req.Message))
	if err != nil {
		return "", fmt.Errorf("model %s: %w", resolved.Model, err)
	}
	return resp.Message.Content, nil
}

// seedHistory mirrors the request's context window into the session
// store for future server-side use. Best effort: a store fault must
// never block or alter the token stream.
func (s *Service) seedHistory(sessionID string, history []session.Turn) {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		if err := s.store.Append(sessionID, turn.Role, turn.Content); err != nil {
			s.logger.Debug("history seed failed", "session", sessionID, "error", err)
			return
		}
	}
}
