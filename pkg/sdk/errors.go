package sdk

import (
	"fmt"

	"github.com/kailas-cloud/okp/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrRetrieval       = domain.ErrRetrieval
	ErrConnection      = domain.ErrConnection
	ErrSearch          = domain.ErrSearch
	ErrResponse        = domain.ErrResponse
	ErrCircuitOpen     = domain.ErrCircuitOpen
	ErrInvalidArgument = domain.ErrInvalidArgument
	ErrUnauthorized    = domain.ErrUnauthorized
)

// APIError is a non-2xx bridge response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("okp bridge: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is maps the bridge error code onto the domain sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Code {
	case "bad_request", "validation_failed":
		return target == ErrInvalidArgument
	case "unauthorized":
		return target == ErrUnauthorized
	case "circuit_open":
		return target == ErrCircuitOpen || target == ErrConnection || target == ErrRetrieval
	case "backend_unavailable":
		return target == ErrConnection || target == ErrRetrieval
	case "backend_error":
		return target == ErrSearch || target == ErrRetrieval
	case "bad_gateway":
		return target == ErrResponse || target == ErrRetrieval
	}
	return false
}
