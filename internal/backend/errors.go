package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for a 401; the stored token has already been cleared
	ErrUnauthorized = errors.New("session expired, please login again")

	// ErrNotAuthenticated is returned before any request when no token is stored
	ErrNotAuthenticated = errors.New("please login first")
)

// RequestError is a non-2xx backend response
type RequestError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// Temporary reports whether the status is worth retrying
func (e *RequestError) Temporary() bool {
	switch e.Status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}

// IsClientError reports 4xx responses, which say nothing about backend health
func IsClientError(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Status >= 400 && reqErr.Status < 500
}

// UserMessage extracts the message to show for a failed request
func UserMessage(err error, fallback string) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotAuthenticated) {
		return err.Error()
	}
	return fallback
}
