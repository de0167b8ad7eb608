package dex

import "fmt"

// ErrKind classifies upstream API failures so callers can decide whether
// retrying makes sense.
type ErrKind string

const (
	ErrKindNetwork    ErrKind = "network"
	ErrKindTimeout    ErrKind = "timeout"
	ErrKindValidation ErrKind = "validation"
)

// APIError is a typed failure from the indexer boundary.
type APIError struct {
	Kind       ErrKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("dex api %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("dex api %s error: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is transient (network or timeout).
func (e *APIError) IsRetryable() bool {
	return e.Kind == ErrKindNetwork || e.Kind == ErrKindTimeout
}
