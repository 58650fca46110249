package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrCancelled    = errors.New("request cancelled")
	ErrDataFormat   = errors.New("unexpected data format")
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("operation failed: HTTP %s", e.Status)
	}
	return fmt.Sprintf("operation failed: HTTP %d", e.StatusCode)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 and 403 responses.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// APIError carries the message of a response whose success flag was false.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "operation failed"
	}
	return e.Message
}

// UserMessage renders err the way it should be shown to a user: the
// backend message verbatim for application failures, a generic text with
// the HTTP status for transport failures.
func UserMessage(err error) string {
	var apiErr *APIError
	var httpErr *HTTPError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.Is(err, ErrUnavailable):
		return "operation failed: server unavailable"
	default:
		return err.Error()
	}
}
