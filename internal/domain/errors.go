package domain

import (
	"errors"
	"fmt"
)

const (
	maxDetailLen  = 500
	maxRawBodyLen = 2000
)

var (
	// ErrRetrieval is the root of every retrieval failure.
	ErrRetrieval = errors.New("okp retrieval failed")
	// ErrConnection signals an unreachable backend or a transport-level failure.
	ErrConnection = errors.New("okp connection error")
	// ErrSearch signals an HTTP error status from the backend.
	ErrSearch = errors.New("okp search error")
	// ErrResponse signals a response that could not be parsed.
	ErrResponse = errors.New("okp response error")
	// ErrCircuitOpen signals that the circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrInvalidArgument signals a rejected query or per-call option.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidConfig signals an invalid configuration.
	ErrInvalidConfig = errors.New("invalid okp configuration")
	// ErrClientClosed signals a call on a closed client.
	ErrClientClosed = errors.New("okp client is closed")

	// ErrAnswerProvider signals a failure of the chat completion provider used by ask.
	ErrAnswerProvider = errors.New("answer provider error")
	// ErrUnauthorized signals a missing or invalid bridge API key.
	ErrUnauthorized = errors.New("unauthorized")
)

// ConnectionError reports DNS, TCP, TLS or timeout failures, and breaker rejections.
type ConnectionError struct {
	Message string
	Err     error
}

// NewConnectionError creates a ConnectionError wrapping cause (may be nil).
func NewConnectionError(message string, cause error) *ConnectionError {
	return &ConnectionError{Message: message, Err: cause}
}

func (e *ConnectionError) Error() string { return e.Message }

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is matches ErrRetrieval and ErrConnection.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrRetrieval || target == ErrConnection
}

// SearchError reports an HTTP status >= 400 from the backend.
type SearchError struct {
	StatusCode int
	Detail     string
}

// NewSearchError creates a SearchError. Detail is truncated to 500 characters.
func NewSearchError(status int, detail string) *SearchError {
	return &SearchError{StatusCode: status, Detail: truncate(detail, maxDetailLen)}
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

// Is matches ErrRetrieval and ErrSearch.
func (e *SearchError) Is(target error) bool {
	return target == ErrRetrieval || target == ErrSearch
}

// Retryable reports whether the status is worth another attempt (429, 502, 503, 504).
func (e *SearchError) Retryable() bool {
	switch e.StatusCode {
	case 429, 502, 503, 504:
		return true
	}
	return false
}

// ResponseError reports an undecodable body or an unexpected JSON shape.
type ResponseError struct {
	Message string
	RawBody string
	Err     error
}

// NewResponseError creates a ResponseError. RawBody is truncated to 2000 characters.
func NewResponseError(message, rawBody string, cause error) *ResponseError {
	return &ResponseError{Message: message, RawBody: truncate(rawBody, maxRawBodyLen), Err: cause}
}

func (e *ResponseError) Error() string { return e.Message }

func (e *ResponseError) Unwrap() error { return e.Err }

// Is matches ErrRetrieval and ErrResponse.
func (e *ResponseError) Is(target error) bool {
	return target == ErrRetrieval || target == ErrResponse
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
