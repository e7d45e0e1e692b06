package externalApi

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("error not found")
	ErrUnauthorized      = errors.New("error unauthorized")
	ErrTransport         = errors.New("error transport")
	ErrCredentialRevoked = errors.New("error credential revoked")
	ErrBadResponse       = errors.New("error bad response")
)

// StatusError is a non-2xx answer other than an auth rejection.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}
