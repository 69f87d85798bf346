package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrorKind classifies a failed service call.
type ErrorKind string

const (
	// ErrorRateLimited indicates the service rejected the call with a 429.
	ErrorRateLimited ErrorKind = "rate_limited"
	// ErrorTransient indicates a failure likely to succeed on retry.
	ErrorTransient ErrorKind = "transient"
	// ErrorFatal indicates a failure that will not succeed on retry.
	ErrorFatal ErrorKind = "fatal"
)

// CallError wraps a failed reasoning call with its classification.
type CallError struct {
	// Kind is the failure classification.
	Kind ErrorKind
	// StatusCode is the HTTP status when known, zero otherwise.
	StatusCode int
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api call failed (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("api call failed (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a retry could succeed.
func (e *CallError) Retryable() bool {
	return e.Kind != ErrorFatal
}

// Classify wraps an error from the service into a CallError. Already
// classified errors pass through unchanged.
func Classify(err error) *CallError {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}

	return &CallError{Kind: classifyMessage(err.Error()), Err: err}
}

func classifyStatus(status int, err error) *CallError {
	kind := ErrorFatal
	switch {
	case status == 429:
		kind = ErrorRateLimited
	case status == 408 || status >= 500:
		// 529 is the service's overloaded status.
		kind = ErrorTransient
	}
	return &CallError{Kind: kind, StatusCode: status, Err: err}
}

// classifyMessage falls back to message text when no status is available,
// such as Bedrock transport errors.
func classifyMessage(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"),
		strings.Contains(lower, "429"):
		return ErrorRateLimited
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "overloaded"),
		strings.Contains(lower, "temporarily"),
		strings.Contains(lower, "unavailable"):
		return ErrorTransient
	default:
		return ErrorFatal
	}
}
