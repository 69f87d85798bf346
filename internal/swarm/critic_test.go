package swarm

import (
	"context"
	"strings"
	"testing"

	"github.com/kestrelworks/hive/pkg/models"
)

func TestRun_CriticReviewRecorded(t *testing.T) {
	fake := &roleReasoner{}
	st := testSubtask("a", 0, models.AgentExecutor)
	task := plannedTask(st)
	sched, _ := newTestScheduler(task, fake, Config{MaxParallel: 1, CriticEnabled: true})

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := fake.callCount(models.AgentCritic); got != 1 {
		t.Errorf("critic calls = %d, want 1", got)
	}
	if task.Review == "" {
		t.Error("task has no critic review")
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %v, want completed (review is advisory)", task.Status)
	}

	prompts := fake.promptsFor(models.AgentCritic)
	if len(prompts) != 1 {
		t.Fatalf("critic prompts = %d, want 1", len(prompts))
	}
	if !strings.Contains(prompts[0], task.Instruction) {
		t.Errorf("critic prompt missing instruction:\n%s", prompts[0])
	}
	if !strings.Contains(prompts[0], "step a") {
		t.Errorf("critic prompt missing step outcome:\n%s", prompts[0])
	}
}

func TestRun_CriticDisabledSkipsReview(t *testing.T) {
	fake := &roleReasoner{}
	task := plannedTask(testSubtask("a", 0, models.AgentExecutor))
	sched, _ := newTestScheduler(task, fake, Config{MaxParallel: 1})

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := fake.callCount(models.AgentCritic); got != 0 {
		t.Errorf("critic calls = %d, want 0", got)
	}
	if task.Review != "" {
		t.Errorf("task review = %q, want empty", task.Review)
	}
}

func TestCritic_NoExecutorReturnsEmpty(t *testing.T) {
	c := NewCritic(nil)
	task := plannedTask(testSubtask("a", 0, models.AgentExecutor))

	if got := c.Review(context.Background(), task); got != "" {
		t.Errorf("Review() = %q, want empty without an executor", got)
	}
}

func TestReviewPrompt_ListsFailures(t *testing.T) {
	a := testSubtask("a", 0, models.AgentExecutor)
	a.Status = models.SubtaskStatusCompleted
	a.Result = &models.TaskResult{Output: "opened the window\nwith details"}
	b := testSubtask("b", 1, models.AgentExecutor, "a")
	b.Status = models.SubtaskStatusFailed
	b.Error = "element not found"
	task := plannedTask(a, b)

	prompt := reviewPrompt(task)
	if !strings.Contains(prompt, "opened the window") {
		t.Errorf("prompt missing first-line outcome:\n%s", prompt)
	}
	if strings.Contains(prompt, "with details") {
		t.Errorf("prompt carries more than the outcome's first line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "element not found") {
		t.Errorf("prompt missing failure reason:\n%s", prompt)
	}
}
