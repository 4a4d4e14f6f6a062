package client

import (
	"errors"
	"fmt"
)

// ErrTransport wraps network and IO failures reaching the service. Callers
// (notably the poller) treat these as transient and retry within budget.
var ErrTransport = errors.New("transport error")

// APIError is a non-2xx response from the Vulnissimo API. It is not a
// transport failure: the service was reached and rejected the request.
type APIError struct {
	// StatusCode is the HTTP status the service returned.
	StatusCode int

	// Message is the service-provided error detail, when present.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsTransport reports whether err is a transient transport failure rather
// than a service-level rejection.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
