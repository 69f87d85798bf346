package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kestrelworks/hive/internal/api"
	"github.com/kestrelworks/hive/internal/ratelimit"
	"github.com/kestrelworks/hive/pkg/models"
)

// fakeReasoner records calls and returns canned completions.
type fakeReasoner struct {
	responses []string
	errs      []error
	calls     int
	requests  []api.CompletionRequest
}

func (f *fakeReasoner) Complete(ctx context.Context, req api.CompletionRequest) (*api.Completion, error) {
	f.requests = append(f.requests, req)
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := "done"
	if i < len(f.responses) {
		text = f.responses[i]
	}
	return &api.Completion{Text: text, InputTokens: 100, OutputTokens: 40}, nil
}

func (f *fakeReasoner) Model() string { return "fake" }

func newTestExecutor(fake *fakeReasoner) *Executor {
	return NewExecutor(fake, ratelimit.NewGate(ratelimit.Config{}))
}

func TestExecute_UsesRolePromptAndRecordsUsage(t *testing.T) {
	fake := &fakeReasoner{responses: []string{"opened the app"}}
	e := newTestExecutor(fake)
	st := &models.Subtask{
		ID:          "st-1",
		Description: "Launch application: Notes",
		Role:        models.AgentExecutor,
	}

	result, err := e.Execute(context.Background(), st)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Output != "opened the app" {
		t.Errorf("Output = %q", result.Output)
	}
	if result.SubtaskID != "st-1" || result.Role != models.AgentExecutor {
		t.Errorf("result identity = (%q, %v)", result.SubtaskID, result.Role)
	}
	if result.InputTokens != 100 || result.OutputTokens != 40 {
		t.Errorf("tokens = (%d, %d), want (100, 40)", result.InputTokens, result.OutputTokens)
	}

	req := fake.requests[0]
	if req.System != SystemPrompt(models.AgentExecutor) {
		t.Error("system prompt does not match the executor role")
	}
	if !strings.Contains(req.Prompt, "Launch application: Notes") {
		t.Errorf("prompt missing description: %q", req.Prompt)
	}

	input, output := e.gate.Usage()
	if input != 100 || output != 40 {
		t.Errorf("gate usage = (%d, %d), want (100, 40)", input, output)
	}
}

func TestExecute_PromptCarriesRetryContext(t *testing.T) {
	fake := &fakeReasoner{}
	e := newTestExecutor(fake)
	st := &models.Subtask{
		ID:          "st-1",
		Description: "Click the save button",
		Role:        models.AgentExecutor,
		RetryCount:  2,
		Error:       "button not found",
		Context:     []string{"the dialog was still loading", "button appears after scroll"},
	}

	if _, err := e.Execute(context.Background(), st); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	prompt := fake.requests[0].Prompt
	for _, want := range []string{"attempt 3", "button not found", "dialog was still loading", "appears after scroll"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestExecute_ClassifiesErrors(t *testing.T) {
	fake := &fakeReasoner{errs: []error{errors.New("connection refused")}}
	e := newTestExecutor(fake)
	st := &models.Subtask{ID: "st-1", Role: models.AgentExecutor, Description: "x"}

	_, err := e.Execute(context.Background(), st)
	var ce *api.CallError
	if !errors.As(err, &ce) {
		t.Fatalf("Execute() error = %v, want CallError", err)
	}
	if ce.Kind != api.ErrorTransient {
		t.Errorf("Kind = %v, want transient", ce.Kind)
	}
}

func TestExecute_RateLimitReportsToGate(t *testing.T) {
	fake := &fakeReasoner{errs: []error{&api.CallError{Kind: api.ErrorRateLimited, StatusCode: 429, Err: errors.New("limited")}}}
	e := newTestExecutor(fake)
	st := &models.Subtask{ID: "st-1", Role: models.AgentExecutor, Description: "x"}

	_, err := e.Execute(context.Background(), st)
	var ce *api.CallError
	if !errors.As(err, &ce) || ce.Kind != api.ErrorRateLimited {
		t.Fatalf("Execute() error = %v, want rate-limited CallError", err)
	}
	if e.gate.ConsecutiveLimited() != 1 {
		t.Errorf("gate ConsecutiveLimited = %d, want 1", e.gate.ConsecutiveLimited())
	}
}

func TestRecover_UsesRecoveryRole(t *testing.T) {
	fake := &fakeReasoner{responses: []string{"the element is behind a modal"}}
	e := newTestExecutor(fake)
	st := &models.Subtask{
		ID:          "st-1",
		Description: "Click the save button",
		Role:        models.AgentExecutor,
		Error:       "button not found",
	}

	result, err := e.Recover(context.Background(), st, "Scroll and report where the button is.")
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if result.Role != models.AgentRecovery {
		t.Errorf("Role = %v, want recovery", result.Role)
	}

	req := fake.requests[0]
	if req.System != SystemPrompt(models.AgentRecovery) {
		t.Error("system prompt does not match the recovery role")
	}
	for _, want := range []string{"Click the save button", "button not found", "Scroll and report"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("recovery prompt missing %q", want)
		}
	}
}

func TestVerify_ParsesVerdict(t *testing.T) {
	fake := &fakeReasoner{responses: []string{"PASS\nScore: 0.92\nThe app is open and frontmost."}}
	e := newTestExecutor(fake)
	st := &models.Subtask{ID: "st-1", Description: "Verify Notes is open", Role: models.AgentVerifier}
	attempt := &models.TaskResult{SubtaskID: "st-1", Output: "launched Notes"}

	v, err := e.Verify(context.Background(), st, attempt)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !v.Passed {
		t.Error("Passed = false, want true")
	}
	if v.Score != 0.92 {
		t.Errorf("Score = %v, want 0.92", v.Score)
	}
	if !strings.Contains(v.Feedback, "frontmost") {
		t.Errorf("Feedback = %q", v.Feedback)
	}
}

func TestParseVerification(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantPassed bool
		wantScore  float64
	}{
		{"pass with score", "PASS\nScore: 0.8", true, 0.8},
		{"fail with score", "FAIL\nScore: 0.3\nwrong window", false, 0.3},
		{"pass without score", "PASS\nall good", true, 1.0},
		{"fail without score", "FAIL", false, 0.0},
		{"no verdict", "everything looks okay", false, 0.0},
		{"score clamped high", "PASS\nScore: 1.7", true, 1.0},
		{"score clamped low", "FAIL\nScore: -0.2", false, 0.0},
		{"lowercase verdict", "pass\nscore: 0.75", true, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := parseVerification(tt.text)
			if v.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v", v.Passed, tt.wantPassed)
			}
			if v.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", v.Score, tt.wantScore)
			}
		})
	}
}

func TestSystemPrompt_AllRolesCovered(t *testing.T) {
	for _, role := range models.AllAgentTypes() {
		if SystemPrompt(role) == "" {
			t.Errorf("SystemPrompt(%v) is empty", role)
		}
	}
	if SystemPrompt(models.AgentType("nope")) != SystemPrompt(models.AgentExecutor) {
		t.Error("unknown role should fall back to the executor prompt")
	}
}
