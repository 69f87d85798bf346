package models

import "time"

// SubtaskStatus represents the current state of a subtask.
type SubtaskStatus string

const (
	// SubtaskStatusPending indicates unmet dependencies remain.
	SubtaskStatusPending SubtaskStatus = "pending"
	// SubtaskStatusReady indicates all dependencies completed and the subtask
	// is eligible for dispatch.
	SubtaskStatusReady SubtaskStatus = "ready"
	// SubtaskStatusExecuting indicates an agent is working on the subtask.
	SubtaskStatusExecuting SubtaskStatus = "executing"
	// SubtaskStatusVerifying indicates the output is being checked.
	SubtaskStatusVerifying SubtaskStatus = "verifying"
	// SubtaskStatusNeedsRetry indicates a recoverable failure awaiting re-dispatch.
	SubtaskStatusNeedsRetry SubtaskStatus = "needs_retry"
	// SubtaskStatusCompleted indicates the subtask finished successfully.
	SubtaskStatusCompleted SubtaskStatus = "completed"
	// SubtaskStatusFailed indicates the subtask failed permanently.
	SubtaskStatusFailed SubtaskStatus = "failed"
	// SubtaskStatusBlocked indicates a dependency failed permanently.
	SubtaskStatusBlocked SubtaskStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s SubtaskStatus) Valid() bool {
	switch s {
	case SubtaskStatusPending, SubtaskStatusReady, SubtaskStatusExecuting,
		SubtaskStatusVerifying, SubtaskStatusNeedsRetry,
		SubtaskStatusCompleted, SubtaskStatusFailed, SubtaskStatusBlocked:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from this status.
func (s SubtaskStatus) Terminal() bool {
	return s == SubtaskStatusCompleted || s == SubtaskStatusFailed || s == SubtaskStatusBlocked
}

// Subtask is a single step in a task's dependency graph.
type Subtask struct {
	// ID is the unique identifier for this subtask.
	ID string `json:"id"`
	// TaskID is the ID of the task this subtask belongs to.
	TaskID string `json:"task_id"`
	// Index is the creation-order position within the task. Dispatch among
	// simultaneously ready subtasks follows ascending Index.
	Index int `json:"index"`
	// Description is what the assigned agent should accomplish.
	Description string `json:"description"`
	// Role is the agent role that executes this subtask.
	Role AgentType `json:"role"`
	// Status is the current state of the subtask.
	Status SubtaskStatus `json:"status"`
	// DependsOn lists subtask IDs that must complete before this one starts.
	DependsOn []string `json:"depends_on,omitempty"`
	// RetryCount is the number of execution attempts consumed so far.
	RetryCount int `json:"retry_count"`
	// MaxRetries is the retry budget for this subtask.
	MaxRetries int `json:"max_retries"`
	// Context accumulates output from prior attempts and recovery
	// observations, fed back into the next attempt's prompt.
	Context []string `json:"context,omitempty"`
	// Result holds the successful output once the subtask completes.
	Result *TaskResult `json:"result,omitempty"`
	// Error contains the most recent failure message.
	Error string `json:"error,omitempty"`
	// BlockedReason records which dependency failure blocked this subtask.
	BlockedReason string `json:"blocked_reason,omitempty"`
	// StartedAt is when the first execution attempt began.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the subtask reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AddContext appends a note to the subtask's accumulated context.
func (s *Subtask) AddContext(note string) {
	if note == "" {
		return
	}
	s.Context = append(s.Context, note)
}
