// Package agent provides role-bound executors for subtasks.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelworks/hive/internal/action"
	"github.com/kestrelworks/hive/internal/api"
	"github.com/kestrelworks/hive/internal/ratelimit"
	"github.com/kestrelworks/hive/pkg/models"
)

// expectedOutputTokens is the output-side estimate used for gate admission.
const expectedOutputTokens = 512

// Executor runs subtasks through the reasoning service. Every call is
// admitted by the shared rate gate first; actual usage is recorded after.
// Executors never mutate subtask state, that belongs to the scheduler.
type Executor struct {
	reasoner  api.Reasoner
	gate      *ratelimit.Gate
	estimator *ratelimit.Estimator
	maxTokens int64
	performer action.Performer
}

// NewExecutor creates an executor backed by the given reasoner and gate.
func NewExecutor(reasoner api.Reasoner, gate *ratelimit.Gate) *Executor {
	return &Executor{
		reasoner:  reasoner,
		gate:      gate,
		estimator: ratelimit.NewEstimator(),
		maxTokens: 4096,
	}
}

// WithPerformer enables local actions for executor-role subtasks. Returns
// the executor for chaining.
func (e *Executor) WithPerformer(p action.Performer) *Executor {
	e.performer = p
	return e
}

// Execute makes exactly one gate-admitted reasoning call for the subtask
// using its role's system prompt and accumulated context. The returned
// error, if any, is a classified *api.CallError or a context error.
func (e *Executor) Execute(ctx context.Context, st *models.Subtask) (*models.TaskResult, error) {
	system := SystemPrompt(st.Role)
	prompt := buildPrompt(st)

	actionable := e.performer != nil && st.Role == models.AgentExecutor
	if actionable {
		prompt += "\n\n" + actionAddendum
	}

	result, err := e.call(ctx, st.ID, st.Role, system, prompt)
	if err != nil || !actionable {
		return result, err
	}
	return e.performAction(ctx, result)
}

// performAction runs the action requested in the result, if any, and folds
// its output into the report. A failed action fails the attempt so the
// correction loop can engage.
func (e *Executor) performAction(ctx context.Context, result *models.TaskResult) (*models.TaskResult, error) {
	cmd, ok := parseAction(result.Output)
	if !ok {
		return result, nil
	}

	res, err := e.performer.Perform(ctx, action.Request{Kind: action.KindShell, Command: cmd})
	if err != nil {
		return nil, fmt.Errorf("performing action %q: %w", cmd, err)
	}
	if !res.Success {
		detail := res.Error
		if out := strings.TrimSpace(res.Output); out != "" {
			detail += ": " + out
		}
		return nil, fmt.Errorf("action %q failed: %s", cmd, detail)
	}

	if out := strings.TrimSpace(res.Output); out != "" {
		result.Output += "\n\nAction output:\n" + out
	}
	return result, nil
}

// Recover makes a recovery-role call for a failed subtask, following the
// given corrective directive. The output is meant to be merged into the
// subtask's context before the next attempt.
func (e *Executor) Recover(ctx context.Context, st *models.Subtask, directive string) (*models.TaskResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "A step failed and needs diagnosis before retrying.\n\n")
	fmt.Fprintf(&sb, "Step: %s\n", st.Description)
	if st.Error != "" {
		fmt.Fprintf(&sb, "Failure: %s\n", st.Error)
	}
	fmt.Fprintf(&sb, "\nDirective: %s\n", directive)

	return e.call(ctx, st.ID, models.AgentRecovery, SystemPrompt(models.AgentRecovery), sb.String())
}

// Verify makes a verifier-role call judging a completed attempt and parses
// the pass/fail verdict and confidence score out of the response.
func (e *Executor) Verify(ctx context.Context, st *models.Subtask, result *models.TaskResult) (*models.VerificationResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Step goal: %s\n\n", st.Description)
	fmt.Fprintf(&sb, "Reported outcome:\n%s\n", result.Output)

	res, err := e.call(ctx, st.ID, models.AgentVerifier, SystemPrompt(models.AgentVerifier), sb.String())
	if err != nil {
		return nil, err
	}
	return parseVerification(res.Output), nil
}

// call admits, executes, and records one reasoning call.
func (e *Executor) call(ctx context.Context, subtaskID string, role models.AgentType, system, prompt string) (*models.TaskResult, error) {
	estInput := e.estimator.Estimate(system) + e.estimator.Estimate(prompt)
	if err := e.gate.Admit(ctx, estInput, expectedOutputTokens); err != nil {
		return nil, err
	}

	resp, err := e.reasoner.Complete(ctx, api.CompletionRequest{
		System:    system,
		Prompt:    prompt,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		ce := api.Classify(err)
		if ce.Kind == api.ErrorRateLimited {
			e.gate.ReportLimited()
		}
		return nil, ce
	}

	e.gate.Record(resp.InputTokens, resp.OutputTokens)
	e.gate.ReportSuccess()

	return &models.TaskResult{
		SubtaskID:    subtaskID,
		Role:         role,
		Output:       resp.Text,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Duration:     resp.Duration,
	}, nil
}

// buildPrompt assembles the user-turn content for a subtask attempt.
func buildPrompt(st *models.Subtask) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Step to accomplish: %s\n", st.Description)

	if st.RetryCount > 0 {
		fmt.Fprintf(&sb, "\nThis is attempt %d; earlier attempts failed.\n", st.RetryCount+1)
	}
	if st.Error != "" {
		fmt.Fprintf(&sb, "Most recent failure: %s\n", st.Error)
	}
	if len(st.Context) > 0 {
		sb.WriteString("\nContext from earlier attempts and observations:\n")
		for _, note := range st.Context {
			fmt.Fprintf(&sb, "- %s\n", note)
		}
	}

	sb.WriteString("\nCarry out the step and report the outcome.")
	return sb.String()
}
