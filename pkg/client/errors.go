package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidBaseURL is returned by New for a malformed agent address.
var ErrInvalidBaseURL = errors.New("invalid agent base URL")

// APIError represents a non-200 response from an agent.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("agent returned status %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("agent returned status %s (%s): %s", http.StatusText(e.StatusCode), e.Kind, e.Message)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
