package swarm

import (
	"time"

	"github.com/kestrelworks/hive/internal/action"
	"github.com/kestrelworks/hive/internal/plan"
)

const (
	// DefaultMaxParallel is the per-task concurrency bound.
	DefaultMaxParallel = 3
	// DefaultSubtaskTimeout bounds a single reasoning call.
	DefaultSubtaskTimeout = 2 * time.Minute
	// DefaultTaskTimeout is the hard wall-clock limit for one task.
	DefaultTaskTimeout = 5 * time.Minute
	// DefaultVerificationThreshold is the minimum verifier score that
	// counts as a pass.
	DefaultVerificationThreshold = 0.6
)

// Config holds the tunables for task scheduling. Zero numeric fields fall
// back to the defaults above; VerificationEnabled and CriticEnabled are
// taken as given, so callers wanting those passes must set them
// (DefaultConfig does).
type Config struct {
	// MaxParallel bounds concurrent subtask dispatches within one task.
	MaxParallel int
	// MaxRetries is the per-subtask retry budget.
	MaxRetries int
	// SubtaskTimeout bounds each individual reasoning call.
	SubtaskTimeout time.Duration
	// TaskTimeout is the wall-clock limit for the whole task.
	TaskTimeout time.Duration
	// VerificationEnabled routes successful subtasks through a verifier
	// before they count as completed.
	VerificationEnabled bool
	// VerificationThreshold is the minimum passing verifier score.
	VerificationThreshold float64
	// CriticEnabled runs a critic review of the finished task alongside
	// the coordinator summary. Advisory only.
	CriticEnabled bool
	// InputTPM is the shared input-token budget per minute. Zero uses the
	// rate gate's default.
	InputTPM int64
	// OutputTPM is the shared output-token budget per minute. Zero uses
	// the rate gate's default.
	OutputTPM int64
	// Performer, when set, lets executor-role agents run local actions.
	Performer action.Performer
}

// DefaultConfig returns the standard scheduling configuration.
func DefaultConfig() Config {
	return Config{
		MaxParallel:           DefaultMaxParallel,
		MaxRetries:            plan.DefaultMaxRetries,
		SubtaskTimeout:        DefaultSubtaskTimeout,
		TaskTimeout:           DefaultTaskTimeout,
		VerificationEnabled:   true,
		VerificationThreshold: DefaultVerificationThreshold,
		CriticEnabled:         true,
	}
}

// withDefaults fills zero fields with their default values.
func (c Config) withDefaults() Config {
	if c.MaxParallel <= 0 {
		c.MaxParallel = DefaultMaxParallel
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = plan.DefaultMaxRetries
	}
	if c.SubtaskTimeout <= 0 {
		c.SubtaskTimeout = DefaultSubtaskTimeout
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = DefaultTaskTimeout
	}
	if c.VerificationThreshold <= 0 {
		c.VerificationThreshold = DefaultVerificationThreshold
	}
	return c
}
