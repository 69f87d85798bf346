// Package plan decomposes natural-language instructions into subtask graphs.
package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelworks/hive/internal/api"
	"github.com/kestrelworks/hive/internal/graph"
	"github.com/kestrelworks/hive/pkg/models"
)

// ErrEmptyInstruction indicates the instruction was empty after trimming.
var ErrEmptyInstruction = errors.New("empty instruction")

// ErrInvalidPlan indicates the produced subtask graph was rejected.
var ErrInvalidPlan = errors.New("invalid plan")

// DefaultMaxRetries is the retry budget assigned to planned subtasks.
const DefaultMaxRetries = 3

// decompositionPrompt asks the model for a JSON subtask breakdown.
const decompositionPrompt = `Break the following instruction into 2-6 concrete steps.

Respond with ONLY a JSON array. Each element must have:
- "description": what the step accomplishes, one sentence
- "role": one of "executor", "verifier", "specialist"
- "depends_on": array of zero-based indices of steps that must finish first

Steps should be independently executable where possible. The final step
should verify the overall outcome.

Instruction: %s`

// plannedStep is the JSON structure returned by the model for one step.
type plannedStep struct {
	Description string `json:"description"`
	Role        string `json:"role"`
	DependsOn   []int  `json:"depends_on"`
}

// Planner turns instructions into tasks with dependency-ordered subtasks.
// With a Reasoner configured it asks the model first and falls back to the
// template chains; without one it plans from templates alone.
type Planner struct {
	reasoner   api.Reasoner
	maxRetries int
}

// Option configures a Planner.
type Option func(*Planner)

// WithReasoner enables model-backed decomposition.
func WithReasoner(r api.Reasoner) Option {
	return func(p *Planner) { p.reasoner = r }
}

// WithMaxRetries overrides the per-subtask retry budget.
func WithMaxRetries(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// New creates a Planner.
func New(opts ...Option) *Planner {
	p := &Planner{maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan decomposes an instruction into a task with an acyclic subtask graph.
// Subtasks carry uuid IDs, creation-order indices, and the default retry
// budget; dispatch order among ready subtasks follows the indices.
func (p *Planner) Plan(ctx context.Context, instruction string) (*models.Task, error) {
	trimmed := strings.TrimSpace(instruction)
	if trimmed == "" {
		return nil, ErrEmptyInstruction
	}

	task := &models.Task{
		ID:          uuid.New().String(),
		Instruction: trimmed,
		Status:      models.TaskStatusPlanning,
		CreatedAt:   time.Now(),
	}

	var steps []step
	if p.reasoner != nil {
		llmSteps, err := p.reasonedSteps(ctx, trimmed)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[plan] model decomposition failed, using template: %v", err)
		} else {
			steps = llmSteps
		}
	}
	if steps == nil {
		steps = templateSteps(trimmed)
	}

	subtasks, err := p.materialize(task.ID, steps)
	if err != nil {
		return nil, err
	}

	// Reject cycles and dangling references before the task leaves planning.
	g := graph.New()
	if err := g.Build(subtasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	task.Subtasks = subtasks
	return task, nil
}

// reasonedSteps asks the model for a decomposition and parses the JSON
// array out of its response.
func (p *Planner) reasonedSteps(ctx context.Context, instruction string) ([]step, error) {
	resp, err := p.reasoner.Complete(ctx, api.CompletionRequest{
		Prompt:    fmt.Sprintf(decompositionPrompt, instruction),
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("decomposition call: %w", err)
	}

	parsed, err := parseSteps(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("parse decomposition: %w", err)
	}
	return parsed, nil
}

// parseSteps extracts and validates the JSON step array from a model response.
func parseSteps(response string) ([]step, error) {
	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON array found in response (%d chars)", len(response))
	}

	var planned []plannedStep
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &planned); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if len(planned) == 0 {
		return nil, fmt.Errorf("empty step list returned")
	}
	if len(planned) > 6 {
		planned = planned[:6]
	}

	steps := make([]step, len(planned))
	for i, ps := range planned {
		if strings.TrimSpace(ps.Description) == "" {
			return nil, fmt.Errorf("step %d has no description", i)
		}
		role := models.AgentType(strings.ToLower(ps.Role))
		if !role.Valid() {
			role = models.AgentExecutor
		}
		for _, dep := range ps.DependsOn {
			if dep < 0 || dep >= len(planned) {
				return nil, fmt.Errorf("step %d depends on out-of-range step %d", i, dep)
			}
		}
		steps[i] = step{
			description: strings.TrimSpace(ps.Description),
			role:        role,
			deps:        ps.DependsOn,
		}
	}
	return steps, nil
}

// materialize assigns IDs and resolves index dependencies to subtask IDs.
func (p *Planner) materialize(taskID string, steps []step) ([]*models.Subtask, error) {
	subtasks := make([]*models.Subtask, len(steps))
	for i, s := range steps {
		subtasks[i] = &models.Subtask{
			ID:          uuid.New().String(),
			TaskID:      taskID,
			Index:       i,
			Description: s.description,
			Role:        s.role,
			Status:      models.SubtaskStatusPending,
			MaxRetries:  p.maxRetries,
		}
	}
	for i, s := range steps {
		for _, dep := range s.deps {
			if dep < 0 || dep >= len(subtasks) {
				return nil, fmt.Errorf("%w: step %d depends on out-of-range step %d", ErrInvalidPlan, i, dep)
			}
			subtasks[i].DependsOn = append(subtasks[i].DependsOn, subtasks[dep].ID)
		}
	}
	return subtasks, nil
}
