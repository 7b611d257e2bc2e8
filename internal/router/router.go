// Package router handles model selection for a single request.
package router

import (
	"fmt"
	"slices"
	"strings"
)

// defaultPreference is the ordered list of common model names tried when
// a request does not name one.
var defaultPreference = []string{
	"llama3.1:8b",
	"llama3.1",
	"llama3:8b",
	"qwen2.5:7b",
	"mistral:7b",
}

// FallbackModel is selected when the daemon reports no installed models
// at all. The downstream generation call is expected to fail in that
// case; resolution itself never does.
const FallbackModel = "llama3.1"

// Resolved is the concrete model chosen for one call. It is recomputed
// per request and never cached.
type Resolved struct {
	Model     string
	Streaming bool
}

// NotInstalledError reports an explicit request for a model the daemon
// does not have. Silently substituting a different model would be worse
// than failing, so this is the one resolution failure surfaced to
// callers.
type NotInstalledError struct {
	Requested string
	Installed []string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("model %q is not installed (pull it with 'ollama pull %s' or select an installed model: [%s])",
		e.Requested, e.Requested, strings.Join(e.Installed, ", "))
}

// Resolve picks the model for one call.
//
// A requested model must be installed; requesting an absent model fails
// with *NotInstalledError. With no request, the first installed entry of
// the preference list wins, then the first installed model, then the
// configured fallback (FallbackModel when empty). Resolution is
// deterministic and consults only the installed list; daemon liveness
// is the client's concern.
func Resolve(requested string, installed []string, streaming bool, fallback string) (Resolved, error) {
	if requested != "" {
		if !slices.Contains(installed, requested) {
			return Resolved{}, &NotInstalledError{Requested: requested, Installed: installed}
		}
		return Resolved{Model: requested, Streaming: streaming}, nil
	}

	for _, cand := range defaultPreference {
		if slices.Contains(installed, cand) {
			return Resolved{Model: cand, Streaming: streaming}, nil
		}
	}

	if len(installed) > 0 {
		return Resolved{Model: installed[0], Streaming: streaming}, nil
	}

	if fallback == "" {
		fallback = FallbackModel
	}
	return Resolved{Model: fallback, Streaming: streaming}, nil
}
