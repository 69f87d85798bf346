package swarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kestrelworks/hive/internal/plan"
	"github.com/kestrelworks/hive/pkg/models"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VerificationEnabled = false
	return cfg
}

// waitTerminal polls a task's status until it reaches a terminal state.
func waitTerminal(t *testing.T, s *Swarm, taskID string) *models.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := s.Status(taskID)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if task.Status.Terminal() {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return nil
}

func TestSwarm_SubmitEmptyInstruction(t *testing.T) {
	s := New(&roleReasoner{}, testConfig())
	defer s.Stop()

	if _, err := s.Submit("   "); !errors.Is(err, plan.ErrEmptyInstruction) {
		t.Errorf("Submit() error = %v, want ErrEmptyInstruction", err)
	}
}

func TestSwarm_SubmitRunsToCompletion(t *testing.T) {
	s := New(&roleReasoner{}, testConfig())
	defer s.Stop()

	id, err := s.Submit("open Notes")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id == "" {
		t.Fatal("Submit() returned empty task ID")
	}

	task := waitTerminal(t, s, id)
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("task status = %v, want completed (error: %s)", task.Status, task.Error)
	}
	if task.ID != id {
		t.Errorf("task ID = %q, want %q", task.ID, id)
	}
	for _, st := range task.Subtasks {
		if st.TaskID != id {
			t.Errorf("subtask %s TaskID = %q, want %q", st.ID, st.TaskID, id)
		}
	}

	// The shared gate saw the recorded usage.
	input, output := s.Gate().Usage()
	if input == 0 || output == 0 {
		t.Errorf("gate usage = (%d, %d), want recorded tokens", input, output)
	}
}

func TestSwarm_ReapEvictsTerminalTasks(t *testing.T) {
	s := New(&roleReasoner{}, testConfig())
	defer s.Stop()

	id, err := s.Submit("open Notes")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitTerminal(t, s, id)

	reaped := s.Reap()
	if len(reaped) != 1 || reaped[0].ID != id {
		t.Fatalf("Reap() = %v tasks, want the finished task", len(reaped))
	}
	if _, err := s.Status(id); err == nil {
		t.Error("Status() after Reap should fail for evicted task")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestSwarm_CancelUnknownTask(t *testing.T) {
	s := New(&roleReasoner{}, testConfig())
	defer s.Stop()

	if err := s.Cancel("nope"); err == nil {
		t.Error("Cancel() of unknown task should fail")
	}
	if _, err := s.Status("nope"); err == nil {
		t.Error("Status() of unknown task should fail")
	}
}

func TestSwarm_CancelRunningTask(t *testing.T) {
	fake := &roleReasoner{}
	fake.hold = func(ctx context.Context, role models.AgentType) error {
		if role != models.AgentExecutor {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}
	s := New(fake, testConfig())
	defer s.Stop()

	id, err := s.Submit("open Notes")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Give the scheduler a moment to dispatch, then cancel.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, _ := s.Status(id)
		if task != nil && task.Status == models.TaskStatusExecuting {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Cancel(id); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	task := waitTerminal(t, s, id)
	if task.Status != models.TaskStatusFailed {
		t.Errorf("task status = %v, want failed", task.Status)
	}
	if task.Error != "task cancelled" {
		t.Errorf("task error = %q, want cancellation reason", task.Error)
	}
}

func TestSwarm_StopClosesEventStream(t *testing.T) {
	s := New(&roleReasoner{}, testConfig())

	id, err := s.Submit("open Notes")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitTerminal(t, s, id)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// Drain until the channel closes; Stop must have closed it.
	for {
		select {
		case _, ok := <-s.Events():
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("event stream not closed after Stop")
		}
	}
}

func TestSwarm_TasksShareOneGate(t *testing.T) {
	s := New(&roleReasoner{}, testConfig())
	defer s.Stop()

	id1, err := s.Submit("open Notes")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	id2, err := s.Submit("open Slack")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitTerminal(t, s, id1)
	waitTerminal(t, s, id2)

	stats := s.Gate().Snapshot()
	// Each task makes at least an executor call and a coordinator call.
	if stats.WindowInput < 4*50 {
		t.Errorf("gate window input = %d, want usage from both tasks", stats.WindowInput)
	}
}
