package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been accepted but not planned.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusPlanning indicates the task is being decomposed into subtasks.
	TaskStatusPlanning TaskStatus = "planning"
	// TaskStatusExecuting indicates subtasks are being dispatched.
	TaskStatusExecuting TaskStatus = "executing"
	// TaskStatusVerifying indicates the final outcome is being synthesized.
	TaskStatusVerifying TaskStatus = "verifying"
	// TaskStatusCompleted indicates every subtask completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task cannot make further progress.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusPlanning, TaskStatusExecuting,
		TaskStatusVerifying, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from this status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task represents a user instruction and the subtask graph derived from it.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Instruction is the natural-language request the task was created from.
	Instruction string `json:"instruction"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Subtasks holds the decomposed steps in creation order.
	Subtasks []*Subtask `json:"subtasks,omitempty"`
	// Summary is the coordinator's final description of the outcome.
	Summary string `json:"summary,omitempty"`
	// Review is the critic's assessment of the finished work, when the
	// critic pass is enabled.
	Review string `json:"review,omitempty"`
	// Error contains the failure reason if the task failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the task was submitted.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Subtask returns the subtask with the given ID, or nil if absent.
func (t *Task) Subtask(id string) *Subtask {
	for _, st := range t.Subtasks {
		if st.ID == id {
			return st
		}
	}
	return nil
}
