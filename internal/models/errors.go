package models

import (
	"fmt"

	"go.temporal.io/sdk/temporal"
)

// ErrorType categorizes errors for appropriate handling by the session loop.
type ErrorType int

const (
	ErrorTypeTransient ErrorType = iota // network, timeout: retryable
	ErrorTypeConfig                     // missing token limit or threshold: fatal to the turn
	ErrorTypeAPILimit                   // rate limit: retry after delay
	ErrorTypeSummarize                  // snapshot call failed: compression fails soft
	ErrorTypeFatal                      // unrecoverable
)

// String returns the string representation of ErrorType.
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypeConfig:
		return "Config"
	case ErrorTypeAPILimit:
		return "APILimit"
	case ErrorTypeSummarize:
		return "Summarize"
	case ErrorTypeFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// ActivityError is an error from a Temporal activity with categorization,
// so the workflow can decide between retry, fail-soft, and ending the turn.
type ActivityError struct {
	Type      ErrorType              `json:"type"`
	Retryable bool                   `json:"retryable"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ActivityError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// NewTransientError creates a retryable transient error.
func NewTransientError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeTransient, Retryable: true, Message: message}
}

// NewConfigError creates a fatal configuration error. Budgets cannot be
// evaluated without a token limit, so the calling turn must stop.
func NewConfigError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeConfig, Retryable: false, Message: message}
}

// NewAPILimitError creates an API rate limit error.
func NewAPILimitError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeAPILimit, Retryable: true, Message: message}
}

// NewSummarizeError creates a summarization failure. The caller keeps the
// prior history; a partial summary is worse than doing nothing this turn.
func NewSummarizeError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeSummarize, Retryable: false, Message: message}
}

// NewFatalError creates a fatal error.
func NewFatalError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeFatal, Retryable: false, Message: message}
}

// WrapActivityError converts an ActivityError into a Temporal application
// error so the worker's retry policy honors its retryability. The error
// type string becomes the application error type, which retry policies can
// list as non-retryable.
func WrapActivityError(err *ActivityError) error {
	if err.Retryable {
		return temporal.NewApplicationError(err.Message, err.Type.String())
	}
	return temporal.NewNonRetryableApplicationError(err.Message, err.Type.String(), err)
}
