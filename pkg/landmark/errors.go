package landmark

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoTopology is returned when a face carries no index layout.
	ErrNoTopology = errors.New("landmark: topology required")

	// ErrShortFace is returned when a face has fewer points than its topology needs.
	ErrShortFace = errors.New("landmark: face has too few points")

	// ErrNoDimensions is returned when converting spaces without a frame size.
	ErrNoDimensions = errors.New("landmark: frame dimensions required")

	// ErrNoURL is returned when the sidecar URL is missing.
	ErrNoURL = errors.New("landmark: provider URL required")
)

// APIError represents an error response from the landmark sidecar.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("landmark: sidecar error %d: %s", e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
