package chat

// Event types on the streaming wire.
const (
	EventMeta  = "meta"
	EventToken = "token"
	EventError = "error"
	EventDone  = "done"
)

// Event is one unit of the token-streaming protocol. A stream carries
// at most one meta (first), any number of tokens, at most one error,
// and is always terminated by exactly one done; nothing follows done.
type Event struct {
	Type string `json:"type"`

	// Model and History are set on meta events.
	Model   string `json:"model,omitempty"`
	History int    `json:"history,omitempty"`

	// Text is set on token events and is never empty.
	Text string `json:"text,omitempty"`

	// Message is set on error events.
	Message string `json:"message,omitempty"`
}

// MetaEvent describes the resolved model and supplied history length,
// emitted before any token for transport-side observability.
func MetaEvent(model string, history int) Event {
	return Event{Type: EventMeta, Model: model, History: history}
}

// TokenEvent carries one increment of generated text.
func TokenEvent(text string) Event {
	return Event{Type: EventToken, Text: text}
}

// ErrorEvent converts a pipeline failure into stream content.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// DoneEvent terminates every stream.
func DoneEvent() Event {
	return Event{Type: EventDone}
}
