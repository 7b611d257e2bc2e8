package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/openchat/openchatd/internal/llm"
	"github.com/openchat/openchatd/internal/session"
)

func TestHeuristicTitle(t *testing.T) {
	tests := []struct {
		name     string
		turns    []session.Turn
		maxWords int
		want     string
	}{
		{
			name:  "no turns",
			turns: nil,
			want:  "New Chat",
		},
		{
			name: "simple user message",
			turns: []session.Turn{
				{Role: session.RoleUser, Content: "Explain binary search"},
			},
			want: "Explain binary search",
		},
		{
			name: "prefers last user turn",
			turns: []session.Turn{
				{Role: session.RoleUser, Content: "first question"},
				{Role: session.RoleAssistant, Content: "an answer"},
				{Role: session.RoleUser, Content: "second question"},
			},
			want: "second question",
		},
		{
			name: "falls back to assistant turn",
			turns: []session.Turn{
				{Role: session.RoleUser, Content: "   "},
				{Role: session.RoleAssistant, Content: "Here is the summary"},
			},
			want: "Here is the summary",
		},
		{
			name: "strips fences and headings",
			turns: []session.Turn{
				{Role: session.RoleUser, Content: "```code fence```\n# Heading\nDeploy the service"},
			},
			want: "Deploy the service",
		},
		{
			name: "caps word count",
			turns: []session.Turn{
				{Role: session.RoleUser, Content: "one two three four five six seven eight"},
			},
			want: "one two three four five six",
		},
		{
			name: "custom word cap",
			turns: []session.Turn{
				{Role: session.RoleUser, Content: "one two three four"},
			},
			maxWords: 2,
			want:     "one two",
		},
		{
			name: "strips quotes and trailing punctuation",
			turns: []session.Turn{
				{Role: session.RoleUser, Content: `"How does DNS work?!"`},
			},
			want: "How does DNS work",
		},
		{
			name: "collapses whitespace",
			turns: []session.Turn{
				{Role: session.RoleUser, Content: "fix   the\n\n  build"},
			},
			want: "fix the build",
		},
		{
			name: "only code fence yields fallback",
			turns: []session.Turn{
				{Role: session.RoleUser, Content: "```just code```"},
			},
			want: "New Chat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicTitle(tt.turns, tt.maxWords)
			if got != tt.want {
				t.Errorf("HeuristicTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeuristicTitle_Idempotent(t *testing.T) {
	turns := []session.Turn{
		{Role: session.RoleUser, Content: "## Plan\nShip the new release tomorrow, please!"},
	}

	first := HeuristicTitle(turns, 0)
	second := HeuristicTitle(turns, 0)
	if first != second {
		t.Errorf("heuristic not idempotent: %q then %q", first, second)
	}

	// Re-titling its own output must not change it.
	again := HeuristicTitle([]session.Turn{{Role: session.RoleUser, Content: first}}, 0)
	if again != first {
		t.Errorf("re-titling changed result: %q -> %q", first, again)
	}
}

func TestHeuristicTitle_NeverEmptyAndBounded(t *testing.T) {
	inputs := []string{
		"", "   ", "!!!", "```x```", "# \n## ", `"'` + "`",
		"word " + strings.Repeat("filler ", 50),
	}
	for _, in := range inputs {
		got := HeuristicTitle([]session.Turn{{Role: session.RoleUser, Content: in}}, 6)
		if got == "" {
			t.Errorf("HeuristicTitle(%q) returned empty", in)
		}
		if n := len(strings.Fields(got)); n > 6 {
			t.Errorf("HeuristicTitle(%q) = %q has %d words, want <=6", in, got, n)
		}
	}
}

func testService(t *testing.T, backend llm.Capability, cfg Config) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(backend, session.NewMemoryStore(), logger, cfg)
}

func TestTitle_NoBackendUsesHeuristic(t *testing.T) {
	s := testService(t, llm.Unavailable("test"), Config{})

	turns := []session.Turn{{Role: session.RoleUser, Content: "Explain binary search"}}
	got := s.Title(context.Background(), turns, 6, "")
	if got != "Explain binary search" {
		t.Errorf("Title() = %q, want heuristic result", got)
	}
}

func TestTitle_BoostReplacesHeuristic(t *testing.T) {
	fake := &fakeClient{
		models:   []string{"llama3.1"},
		response: "\"Binary Search Explained.\"\nSecond line ignored",
	}
	s := testService(t, llm.Available(fake), Config{})

	turns := []session.Turn{{Role: session.RoleUser, Content: "Explain binary search"}}
	got := s.Title(context.Background(), turns, 6, "")
	if got != "Binary Search Explained" {
		t.Errorf("Title() = %q, want cleaned first line of boost", got)
	}
}

func TestTitle_BoostTimeoutFallsBack(t *testing.T) {
	fake := &fakeClient{
		models:    []string{"llama3.1"},
		chatDelay: time.Second,
		response:  "Too Late",
	}
	s := testService(t, llm.Available(fake), Config{TitleBoostTimeout: 30 * time.Millisecond})

	turns := []session.Turn{{Role: session.RoleUser, Content: "Explain binary search"}}

	start := time.Now()
	got := s.Title(context.Background(), turns, 6, "")
	elapsed := time.Since(start)

	if got != "Explain binary search" {
		t.Errorf("Title() = %q, want heuristic fallback on timeout", got)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Title() took %v, should return at the boost deadline", elapsed)
	}
}

func TestTitle_BoostErrorFallsBack(t *testing.T) {
	fake := &fakeClient{
		models:  []string{"llama3.1"},
		chatErr: errFakeBackend,
	}
	s := testService(t, llm.Available(fake), Config{})

	turns := []session.Turn{{Role: session.RoleUser, Content: "Explain binary search"}}
	got := s.Title(context.Background(), turns, 6, "")
	if got != "Explain binary search" {
		t.Errorf("Title() = %q, want heuristic fallback on boost error", got)
	}
}

func TestTitle_BoostEmptyResultFallsBack(t *testing.T) {
	fake := &fakeClient{
		models:   []string{"llama3.1"},
		response: "\"...\"",
	}
	s := testService(t, llm.Available(fake), Config{})

	turns := []session.Turn{{Role: session.RoleUser, Content: "Explain binary search"}}
	got := s.Title(context.Background(), turns, 6, "")
	if got != "Explain binary search" {
		t.Errorf("Title() = %q, boost that cleans to empty must fall back", got)
	}
}

func TestTitlePrompt_TruncatesTurns(t *testing.T) {
	long := strings.Repeat("x", 1000)
	turns := make([]session.Turn, 12)
	for i := range turns {
		turns[i] = session.Turn{Role: session.RoleUser, Content: long}
	}

	prompt := titlePrompt(turns)

	if got := strings.Count(prompt, "User: "); got != titleBoostTurns {
		t.Errorf("prompt contains %d turns, want %d", got, titleBoostTurns)
	}
	for _, line := range strings.Split(prompt, "\n") {
		if len(line) > titleBoostTurnSize+len("User: ") {
			t.Errorf("prompt line length %d exceeds per-turn cap", len(line))
		}
	}
}
