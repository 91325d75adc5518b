package chi

import (
	"github.com/kailas-cloud/okp/internal/usecase/retrieve"
)

// ErrorResponseCode is the machine-readable error code of an ErrorResponse.
type ErrorResponseCode string

// Error codes returned by the bridge API.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed   ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized       ErrorResponseCode = "unauthorized"
	ErrorResponseCodeCircuitOpen        ErrorResponseCode = "circuit_open"
	ErrorResponseCodeBackendUnavailable ErrorResponseCode = "backend_unavailable"
	ErrorResponseCodeBackendError       ErrorResponseCode = "backend_error"
	ErrorResponseCodeBadGateway         ErrorResponseCode = "bad_gateway"
	ErrorResponseCodeTimeout            ErrorResponseCode = "timeout"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// RetrieveParams are the query parameters of GET /v1/retrieve.
type RetrieveParams struct {
	Q        string  `form:"q" json:"q"`
	Rows     *int    `form:"rows,omitempty" json:"rows,omitempty"`
	Product  *string `form:"product,omitempty" json:"product,omitempty"`
	Version  *string `form:"version,omitempty" json:"version,omitempty"`
	Kind     *string `form:"kind,omitempty" json:"kind,omitempty"`
	Sanitize *bool   `form:"sanitize,omitempty" json:"sanitize,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	OKP    retrieve.Health   `json:"okp"`
}
