package chat

import (
	"context"

	"github.com/openchat/openchatd/internal/router"
)

// streamBuffer decouples the producing goroutine from transport write
// latency for a few tokens without growing unbounded.
const streamBuffer = 16

// Stream runs one chat generation as a background producer and returns
// the event sequence. The channel is closed after the terminal event;
// barring consumer disconnect, the final event is always done, with at
// most one error before it. The sequence is finite and not restartable.
//
// Cancelling ctx (consumer disconnect) stops the producer promptly: no
// further backend reads are issued and the channel is closed without
// the remaining events.
func (s *Service) Stream(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, streamBuffer)
	go func() {
		defer close(out)
		s.stream(ctx, req, out)
	}()
	return out
}

func (s *Service) stream(ctx context.Context, req Request, out chan<- Event) {
	emit := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	// Every path below terminates the stream with done.
	defer emit(DoneEvent())

	cl, err := s.backend.Client()
	if err != nil {
		// A caller that asked for a stream must never see zero events:
		// degrade to one informational token.
		emit(TokenEvent(backendMissingNotice))
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}
	s.logger.Debug("stream request",
		"session", sessionID,
		"model", req.Model,
		"msg_len", len(req.Message),
		"history", len(req.History),
	)

	s.seedHistory(sessionID, req.History)

	resolved, err := router.Resolve(req.Model, s.installedModels(ctx), true, s.defaultModel)
	if err != nil {
		emit(ErrorEvent(err.Error()))
		return
	}

	if !emit(MetaEvent(resolved.Model, len(req.History))) {
		return
	}

	msgs := Assemble(req.System, req.History, req.Message)
	_, err = cl.ChatStream(ctx, resolved.Model, msgs, func(token string) {
		if token == "" {
			return
		}
		emit(TokenEvent(token))
	})
	if err != nil && ctx.Err() == nil {
		emit(ErrorEvent(err.Error()))
	}
}
