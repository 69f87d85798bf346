// Package swarm schedules planned subtasks across role-bound executors
// and reports progress through an ordered event stream.
package swarm

import (
	"time"

	"github.com/kestrelworks/hive/pkg/models"
)

// EventType represents the type of swarm event.
type EventType string

const (
	// EventTaskStarted indicates a task has been accepted and planning begins.
	EventTaskStarted EventType = "task_started"
	// EventSubtaskStarted indicates a subtask was dispatched to an agent.
	EventSubtaskStarted EventType = "subtask_started"
	// EventSubtaskCompleted indicates a subtask finished successfully.
	EventSubtaskCompleted EventType = "subtask_completed"
	// EventSubtaskFailed indicates a subtask reached Failed or Blocked.
	EventSubtaskFailed EventType = "subtask_failed"
	// EventVerification carries a verifier verdict for a subtask attempt.
	EventVerification EventType = "verification"
	// EventRecovery indicates a corrective observation was dispatched.
	EventRecovery EventType = "recovery"
	// EventTaskCompleted indicates the task reached a terminal state.
	EventTaskCompleted EventType = "task_completed"
)

// SwarmEvent represents one state transition in a running task. Events for
// a given subtask are emitted in the order its transitions occurred.
type SwarmEvent struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the task the event belongs to.
	TaskID string
	// SubtaskID is the ID of the related subtask, if applicable.
	SubtaskID string
	// Description carries the task instruction for task_started events.
	Description string
	// AgentType is the role dispatched for subtask_started events.
	AgentType models.AgentType
	// Success reports the outcome for subtask_completed and task_completed.
	Success bool
	// Passed is the verifier verdict for verification events.
	Passed bool
	// Score is the verifier confidence for verification events.
	Score float64
	// Strategy names the corrective strategy for recovery events.
	Strategy string
	// Error contains failure details for subtask_failed events.
	Error string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
