package solana

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fetch-path failures so callers and telemetry can
// distinguish a timeout from a malformed response or a remote error.
type ErrorKind string

const (
	// ErrKindTimeout indicates retries were exhausted by transport
	// timeouts or the context deadline expired.
	ErrKindTimeout ErrorKind = "timeout"

	// ErrKindInvalidResponse indicates the endpoint answered with
	// something that could not be decoded as a JSON-RPC response.
	ErrKindInvalidResponse ErrorKind = "invalid_response"

	// ErrKindRemote indicates a well-formed JSON-RPC error payload.
	// Remote errors are never retried.
	ErrKindRemote ErrorKind = "remote_error"
)

// NetworkError is the only error type the fetch path surfaces.
type NetworkError struct {
	Kind    ErrorKind
	Code    int    // remote error code, 0 otherwise
	Message string // remote error message, empty otherwise
	Err     error  // underlying transport error, nil for remote errors
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case ErrKindRemote:
		return fmt.Sprintf("rpc remote error %d: %s", e.Code, e.Message)
	case ErrKindTimeout:
		return fmt.Sprintf("rpc timeout: %v", e.Err)
	default:
		return fmt.Sprintf("rpc invalid response: %v", e.Err)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err, or "" if err is not a NetworkError.
func KindOf(err error) ErrorKind {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return ""
}

// IsTimeout reports whether err is a NetworkError of kind timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}
