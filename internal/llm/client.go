// Package llm provides the model backend client.
package llm

import "context"

// Message represents a chat message for the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the response to a completed chat call.
type ChatResponse struct {
	Model   string
	Message Message
	Done    bool

	// Token counts, populated when the daemon reports them.
	PromptTokens int
	OutputTokens int
}

// StreamCallback is called for each streamed token.
type StreamCallback func(token string)

// Client is the interface to a model-serving daemon.
type Client interface {
	// Chat sends a chat completion request and returns the full response.
	Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error)

	// ChatStream sends a streaming chat request. If callback is non-nil,
	// tokens are delivered to it as they arrive; the returned response
	// carries the accumulated content.
	ChatStream(ctx context.Context, model string, messages []Message, callback StreamCallback) (*ChatResponse, error)

	// Ping checks if the daemon is reachable.
	Ping(ctx context.Context) error

	// ListModels returns the installed model names.
	ListModels(ctx context.Context) ([]string, error)
}
