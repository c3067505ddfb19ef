package client

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is returned by authenticated calls made before SetToken.
	ErrMissingToken = errors.New("authentication token is empty")
	// ErrNotText is returned when a response body is not valid UTF-8.
	ErrNotText = errors.New("could not read response as text")
)

// TransportError is a request that never produced a complete response:
// connection failures, cancellations, timeouts and truncated bodies.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
