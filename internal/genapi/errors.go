package genapi

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a body that is not a generation envelope.
var ErrMalformedResponse = errors.New("genapi: malformed response")

// TransportError means the service could not be reached at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("genapi: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx answer whose body was not a usable envelope.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("genapi: http %d", e.StatusCode)
	}
	return fmt.Sprintf("genapi: http %d: %s", e.StatusCode, e.Body)
}
