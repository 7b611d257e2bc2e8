package chat

import (
	"context"
	"regexp"
	"strings"

	"github.com/openchat/openchatd/internal/llm"
	"github.com/openchat/openchatd/internal/router"
	"github.com/openchat/openchatd/internal/session"
)

// DefaultTitleWords caps the heuristic title length.
const DefaultTitleWords = 6

// fallbackTitle is returned when no usable source text exists.
const fallbackTitle = "New Chat"

// Title boost parameters: how much conversation the model sees.
const (
	titleBoostTurns    = 8
	titleBoostTurnSize = 240
)

var (
	fenceRe    = regexp.MustCompile("(?s)```.*?```")
	headingRe  = regexp.MustCompile(`(?m)^#+.*$`)
	spaceRe    = regexp.MustCompile(`\s+`)
	quoteRe    = regexp.MustCompile("[\"'`]+")
	trailingRe = regexp.MustCompile(`[.,;:!?\-\s]+$`)
)

// HeuristicTitle derives a short conversation label from the turns
// alone. Pure and idempotent; never returns an empty string. Used both
// as the default title and as the fallback when the model boost fails.
func HeuristicTitle(turns []session.Turn, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultTitleWords
	}

	// Prefer the most recent user turn, then any non-empty turn.
	var text string
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == session.RoleUser && strings.TrimSpace(turns[i].Content) != "" {
			text = turns[i].Content
			break
		}
	}
	if text == "" {
		for i := len(turns) - 1; i >= 0; i-- {
			if strings.TrimSpace(turns[i].Content) != "" {
				text = turns[i].Content
				break
			}
		}
	}
	if text == "" {
		text = fallbackTitle
	}

	text = fenceRe.ReplaceAllString(text, " ")
	text = headingRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))

	words := strings.Fields(text)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	text = strings.Join(words, " ")

	text = strings.Trim(text, "\"'` ")
	text = trailingRe.ReplaceAllString(text, "")
	if text == "" {
		return fallbackTitle
	}
	return text
}

// Title computes a conversation label. The heuristic result is always
// available; when a backend is configured, a time-boxed model call may
// replace it. Boost faults and timeouts are absorbed, so Title always
// succeeds and always returns within the boost budget plus negligible
// overhead.
func (s *Service) Title(ctx context.Context, turns []session.Turn, maxWords int, model string) string {
	base := HeuristicTitle(turns, maxWords)

	cl, err := s.backend.Client()
	if err != nil {
		return base
	}
	if boosted, ok := s.boostTitle(ctx, cl, turns, model); ok {
		return boosted
	}
	return base
}

// boostTitle asks the model for a better title under a hard deadline.
// A late result is discarded; the in-flight call is abandoned to its
// own context.
func (s *Service) boostTitle(ctx context.Context, cl llm.Client, turns []session.Turn, model string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.titleTimeout)
	defer cancel()

	resolved, err := router.Resolve(model, s.installedModels(ctx), false, s.defaultModel)
	if err != nil {
		return "", false
	}

	type outcome struct {
		resp *llm.ChatResponse
		err  error
	}
	// Buffered so an abandoned call can still deliver and exit.
	ch := make(chan outcome, 1)
	go func() {
		resp, err := cl.Chat(ctx, resolved.Model, []llm.Message{{Role: "user", Content: titlePrompt(turns)}})
		ch <- outcome{resp, err}
	}()

	select {
	case <-ctx.Done():
		return "", false
	case res := <-ch:
		if res.err != nil {
			return "", false
		}
		title, _, _ := strings.Cut(strings.TrimSpace(res.resp.Message.Content), "\n")
		title = quoteRe.ReplaceAllString(strings.TrimSpace(title), "")
		title = trailingRe.ReplaceAllString(title, "")
		if title == "" {
			return "", false
		}
		return title, true
	}
}

// titlePrompt builds the fixed boost instruction plus a role-labeled
// tail of the conversation.
func titlePrompt(turns []session.Turn) string {
	var b strings.Builder
	b.WriteString("Generate a concise chat title (<=6 words) for the following conversation.\n")
	b.WriteString("No quotes, no trailing punctuation. Return ONLY the title.\n\n")

	if len(turns) > titleBoostTurns {
		turns = turns[len(turns)-titleBoostTurns:]
	}
	for _, turn := range turns {
		content := turn.Content
		if len(content) > titleBoostTurnSize {
			content = content[:titleBoostTurnSize]
		}
		b.WriteString(capitalize(string(turn.Role)))
		b.WriteString(": ")
		b.WriteString(content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
