package models

import "time"

// TaskResult is the output of a single successful execution attempt.
type TaskResult struct {
	// SubtaskID is the subtask this result belongs to.
	SubtaskID string `json:"subtask_id"`
	// Role is the agent type that produced the result.
	Role AgentType `json:"role"`
	// Output is the agent's response text.
	Output string `json:"output"`
	// InputTokens is the number of prompt tokens consumed.
	InputTokens int64 `json:"input_tokens"`
	// OutputTokens is the number of completion tokens consumed.
	OutputTokens int64 `json:"output_tokens"`
	// Duration is the wall-clock time of the attempt.
	Duration time.Duration `json:"duration"`
	// Verification holds the verifier's judgment when verification ran.
	Verification *VerificationResult `json:"verification,omitempty"`
}

// TotalTokens returns the combined input and output token count.
func (r *TaskResult) TotalTokens() int64 {
	return r.InputTokens + r.OutputTokens
}

// VerificationResult is the verifier's judgment of a subtask outcome.
type VerificationResult struct {
	// Passed reports whether the outcome satisfied the subtask goal.
	Passed bool `json:"passed"`
	// Score is the verifier's confidence in [0, 1].
	Score float64 `json:"score"`
	// Feedback explains the judgment, used as retry context on failure.
	Feedback string `json:"feedback,omitempty"`
}
