package swarm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kestrelworks/hive/internal/agent"
	"github.com/kestrelworks/hive/pkg/models"
)

// Coordinator synthesizes the final summary of a task from its subtask
// outcomes using the coordinator role.
type Coordinator struct {
	exec *agent.Executor
}

// NewCoordinator creates a Coordinator backed by the given executor.
func NewCoordinator(exec *agent.Executor) *Coordinator {
	return &Coordinator{exec: exec}
}

// Summarize produces the task's final summary. When the executor is
// unavailable or the context has ended it falls back to a plain count of
// outcomes, so a terminal task always carries a summary.
func (c *Coordinator) Summarize(ctx context.Context, task *models.Task) string {
	if c.exec == nil || ctx.Err() != nil {
		return fallbackSummary(task)
	}

	st := &models.Subtask{
		ID:          task.ID,
		TaskID:      task.ID,
		Role:        models.AgentCoordinator,
		Description: summaryPrompt(task),
	}
	result, err := c.exec.Execute(ctx, st)
	if err != nil {
		log.Printf("[swarm] coordinator summary call failed: %v", err)
		return fallbackSummary(task)
	}
	return result.Output
}

// summaryPrompt lists every subtask outcome for the coordinator role.
func summaryPrompt(task *models.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n\nStep outcomes:\n", task.Instruction)
	for _, st := range task.Subtasks {
		fmt.Fprintf(&sb, "- [%s] %s", st.Status, st.Description)
		if st.Status == models.SubtaskStatusCompleted && st.Result != nil {
			fmt.Fprintf(&sb, " -> %s", firstLine(st.Result.Output))
		}
		if st.Error != "" {
			fmt.Fprintf(&sb, " (error: %s)", st.Error)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nSynthesize the final outcome for the user.")
	return sb.String()
}

// fallbackSummary is used when no coordinator call can be made.
func fallbackSummary(task *models.Task) string {
	completed := 0
	var failed []string
	for _, st := range task.Subtasks {
		switch st.Status {
		case models.SubtaskStatusCompleted:
			completed++
		case models.SubtaskStatusFailed, models.SubtaskStatusBlocked:
			failed = append(failed, st.Description)
		}
	}

	if len(failed) == 0 && completed == len(task.Subtasks) && completed > 0 {
		return fmt.Sprintf("All %d steps completed.", completed)
	}
	summary := fmt.Sprintf("%d of %d steps completed.", completed, len(task.Subtasks))
	if len(failed) > 0 {
		summary += " Did not finish: " + strings.Join(failed, "; ")
	}
	if task.Error != "" {
		summary += " (" + task.Error + ")"
	}
	return summary
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
