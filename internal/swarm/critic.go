package swarm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kestrelworks/hive/internal/agent"
	"github.com/kestrelworks/hive/pkg/models"
)

// Critic reviews a finished task with the critic role, surfacing issues
// and suggestions the coordinator's summary would gloss over.
type Critic struct {
	exec *agent.Executor
}

// NewCritic creates a Critic backed by the given executor.
func NewCritic(exec *agent.Executor) *Critic {
	return &Critic{exec: exec}
}

// Review produces the critic's assessment of the task. A failed or
// unavailable critic call returns an empty review; criticism is advisory
// and never changes the task's outcome.
func (c *Critic) Review(ctx context.Context, task *models.Task) string {
	if c.exec == nil || ctx.Err() != nil || len(task.Subtasks) == 0 {
		return ""
	}

	st := &models.Subtask{
		ID:          task.ID,
		TaskID:      task.ID,
		Role:        models.AgentCritic,
		Description: reviewPrompt(task),
	}
	result, err := c.exec.Execute(ctx, st)
	if err != nil {
		log.Printf("[swarm] critic review call failed: %v", err)
		return ""
	}
	return result.Output
}

// reviewPrompt lists the task's outcomes for the critic role.
func reviewPrompt(task *models.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n\nStep outcomes:\n", task.Instruction)
	for _, st := range task.Subtasks {
		fmt.Fprintf(&sb, "- [%s] %s", st.Status, st.Description)
		if st.Result != nil {
			fmt.Fprintf(&sb, " -> %s", firstLine(st.Result.Output))
		}
		if st.Error != "" {
			fmt.Fprintf(&sb, " (error: %s)", st.Error)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nReview this work. List concrete issues with the outcomes and suggestions for what should be done differently. Be brief if the work is sound.")
	return sb.String()
}
