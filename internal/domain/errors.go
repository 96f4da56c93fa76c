package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrNotReady indicates an operation was invoked before the cache was reset
	ErrNotReady = errors.New("cache manager is not initialized")

	// ErrNotFound indicates the requested entity does not exist on the server
	ErrNotFound = errors.New("entity not found")

	// ErrServerOffline indicates the media server is unreachable
	ErrServerOffline = errors.New("media server is unreachable")

	// ErrAuthFailed indicates the server rejected the credentials
	ErrAuthFailed = errors.New("authentication failed")
)

// APIError is an error reported by the server in a well-formed response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}
