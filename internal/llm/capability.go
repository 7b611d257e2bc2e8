package llm

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks errors caused by the model backend integration
// being absent, as opposed to the daemon merely being offline. Callers
// branch with errors.Is rather than matching message text.
var ErrUnavailable = errors.New("model backend unavailable")

// UnavailableError carries the reason the backend integration is off.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("model backend unavailable: %s", e.Reason)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// Capability is the startup-decided availability of the model backend.
// Construct one variant with Available or Unavailable and inject it;
// call sites ask for the client once per operation instead of probing
// availability ad hoc.
type Capability struct {
	client Client
	reason string
}

// Available wraps a working backend client.
func Available(c Client) Capability {
	return Capability{client: c}
}

// Unavailable records why no backend client exists.
func Unavailable(reason string) Capability {
	return Capability{reason: reason}
}

// Client returns the backend client, or an *UnavailableError when the
// integration is off.
func (c Capability) Client() (Client, error) {
	if c.client == nil {
		reason := c.reason
		if reason == "" {
			reason = "not configured"
		}
		return nil, &UnavailableError{Reason: reason}
	}
	return c.client, nil
}

// Enabled reports whether a backend client was configured.
func (c Capability) Enabled() bool { return c.client != nil }
