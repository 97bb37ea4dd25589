package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrContainerNotFound       = errors.New("container not found")
	ErrContainerAlreadyRunning = errors.New("container already running")
	ErrContainerNotRunning     = errors.New("container not running")
	ErrInvalidPattern          = errors.New("invalid filter pattern")
	ErrInvalidTimestamp        = errors.New("invalid timestamp")
	ErrMalformedLine           = errors.New("malformed log line")
	ErrUnknownSourceKind       = errors.New("unknown log source kind")
	ErrNotSupported            = errors.New("operation not supported by log source")
	ErrConfigNotFound          = errors.New("config file not found")
	ErrInvalidConfig           = errors.New("invalid configuration")
)

// Error codes for API responses
const (
	ErrCodeContainerNotFound       = "CONTAINER_NOT_FOUND"
	ErrCodeContainerAlreadyRunning = "CONTAINER_ALREADY_RUNNING"
	ErrCodeContainerNotRunning     = "CONTAINER_NOT_RUNNING"
	ErrCodeInvalidPattern          = "INVALID_PATTERN"
	ErrCodeInvalidTimestamp        = "INVALID_TIMESTAMP"
)

// ErrorCode returns the API error code for a domain error
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrContainerNotFound):
		return ErrCodeContainerNotFound
	case errors.Is(err, ErrContainerAlreadyRunning):
		return ErrCodeContainerAlreadyRunning
	case errors.Is(err, ErrContainerNotRunning):
		return ErrCodeContainerNotRunning
	case errors.Is(err, ErrInvalidPattern):
		return ErrCodeInvalidPattern
	case errors.Is(err, ErrInvalidTimestamp):
		return ErrCodeInvalidTimestamp
	default:
		return "INTERNAL_ERROR"
	}
}

// TransportError reports that a log source stream ended abnormally
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err unless it already is a TransportError
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
