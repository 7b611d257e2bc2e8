// Package chat implements the chat orchestration and streaming pipeline.
package chat

import (
	"strings"

	"github.com/openchat/openchatd/internal/llm"
	"github.com/openchat/openchatd/internal/session"
)

// historyWindow bounds how many prior turns are sent to the model.
// Older turns are dropped, not summarized.
const historyWindow = 10

// systemMarker prefixes an inline system note. The note rides in a
// user-role message so every entry on the wire uses the same two roles;
// switching to Ollama's native system role would work too, this keeps
// the format uniform for clients that replay transcripts.
const systemMarker = "[SYSTEM]\n"

// Assemble builds the ordered message list the model consumes: the
// optional system note, then up to the last historyWindow turns, then
// the new user message. Pure and deterministic.
func Assemble(system string, history []session.Turn, message string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)

	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, llm.Message{Role: "user", Content: systemMarker + system})
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		role := "user"
		if turn.Role == session.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: turn.Content})
	}

	return append(msgs, llm.Message{Role: "user", Content: message})
}
