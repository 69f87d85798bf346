package api

import (
	"context"
	"time"
)

// CompletionRequest describes a single reasoning call.
type CompletionRequest struct {
	// System is the role system prompt, empty for none.
	System string
	// Prompt is the user-turn content.
	Prompt string
	// MaxTokens caps the completion length. Zero uses the default.
	MaxTokens int64
}

// Completion is the response to a CompletionRequest.
type Completion struct {
	// Text is the concatenated text content of the response.
	Text string
	// InputTokens is the prompt token count reported by the service.
	InputTokens int64
	// OutputTokens is the completion token count reported by the service.
	OutputTokens int64
	// Duration is the wall-clock time of the call.
	Duration time.Duration
}

// Reasoner is the remote reasoning service boundary. The scheduler and
// agents depend on this interface so tests can substitute fakes.
type Reasoner interface {
	// Complete makes one reasoning call. Failures are returned as
	// *CallError so callers can branch on the failure kind.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	// Model returns the model identifier in use.
	Model() string
}

var _ Reasoner = (*Client)(nil)
