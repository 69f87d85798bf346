package swarm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelworks/hive/internal/agent"
	"github.com/kestrelworks/hive/internal/api"
	"github.com/kestrelworks/hive/internal/plan"
	"github.com/kestrelworks/hive/internal/ratelimit"
	"github.com/kestrelworks/hive/pkg/models"
)

// Swarm runs multiple tasks concurrently, each with its own scheduler.
// Every dispatch across every task funnels through one shared rate gate.
type Swarm struct {
	cfg     Config
	planner *plan.Planner
	exec    *agent.Executor
	gate    *ratelimit.Gate
	emitter *EventEmitter

	mu         sync.RWMutex
	schedulers map[string]*Scheduler

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
}

// New creates a Swarm backed by the given reasoner.
func New(reasoner api.Reasoner, cfg Config) *Swarm {
	cfg = cfg.withDefaults()

	gate := ratelimit.NewGate(ratelimit.Config{
		InputTPM:  cfg.InputTPM,
		OutputTPM: cfg.OutputTPM,
	})

	planOpts := []plan.Option{plan.WithMaxRetries(cfg.MaxRetries)}
	var exec *agent.Executor
	if reasoner != nil {
		planOpts = append(planOpts, plan.WithReasoner(reasoner))
		exec = agent.NewExecutor(reasoner, gate)
		if cfg.Performer != nil {
			exec.WithPerformer(cfg.Performer)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Swarm{
		cfg:        cfg,
		planner:    plan.New(planOpts...),
		exec:       exec,
		gate:       gate,
		emitter:    NewEventEmitter(100),
		schedulers: make(map[string]*Scheduler),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Submit accepts an instruction and starts a scheduler for it.
// Returns the new task's ID.
func (s *Swarm) Submit(instruction string) (string, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", plan.ErrEmptyInstruction
	}
	if s.exec == nil {
		return "", fmt.Errorf("no reasoner configured")
	}

	task := &models.Task{
		ID:          uuid.New().String(),
		Instruction: strings.TrimSpace(instruction),
		Status:      models.TaskStatusPending,
		CreatedAt:   time.Now(),
	}
	sched := NewScheduler(SchedulerConfig{
		Task:     task,
		Planner:  s.planner,
		Executor: s.exec,
		Gate:     s.gate,
		Emitter:  s.emitter,
		Config:   s.cfg,
	})

	s.mu.Lock()
	s.schedulers[task.ID] = sched
	s.mu.Unlock()

	s.group.Go(func() error {
		if err := sched.Run(s.ctx); err != nil {
			log.Printf("[swarm] task %s failed: %v", task.ID, err)
		}
		return nil
	})

	return task.ID, nil
}

// Cancel stops a running task. Terminal tasks are left untouched.
func (s *Swarm) Cancel(taskID string) error {
	s.mu.RLock()
	sched := s.schedulers[taskID]
	s.mu.RUnlock()

	if sched == nil {
		return fmt.Errorf("unknown task %s", taskID)
	}
	sched.Cancel()
	return nil
}

// Pause holds back new subtask dispatches for a task. In-flight attempts
// finish normally.
func (s *Swarm) Pause(taskID string) error {
	s.mu.RLock()
	sched := s.schedulers[taskID]
	s.mu.RUnlock()

	if sched == nil {
		return fmt.Errorf("unknown task %s", taskID)
	}
	sched.Pause()
	return nil
}

// Resume lifts a pause on a task.
func (s *Swarm) Resume(taskID string) error {
	s.mu.RLock()
	sched := s.schedulers[taskID]
	s.mu.RUnlock()

	if sched == nil {
		return fmt.Errorf("unknown task %s", taskID)
	}
	sched.Resume()
	return nil
}

// Status returns a snapshot of the task's current state.
func (s *Swarm) Status(taskID string) (*models.Task, error) {
	s.mu.RLock()
	sched := s.schedulers[taskID]
	s.mu.RUnlock()

	if sched == nil {
		return nil, fmt.Errorf("unknown task %s", taskID)
	}
	return sched.Snapshot(), nil
}

// Reap evicts terminal tasks and returns their final snapshots. Live
// tasks are unaffected.
func (s *Swarm) Reap() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reaped []*models.Task
	for id, sched := range s.schedulers {
		snap := sched.Snapshot()
		if snap.Status.Terminal() {
			reaped = append(reaped, snap)
			delete(s.schedulers, id)
		}
	}
	return reaped
}

// Count returns the number of tasks not yet in a terminal state.
func (s *Swarm) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := 0
	for _, sched := range s.schedulers {
		if !sched.Snapshot().Status.Terminal() {
			active++
		}
	}
	return active
}

// Events returns the channel carrying events from every task.
func (s *Swarm) Events() <-chan SwarmEvent {
	return s.emitter.Events()
}

// Gate exposes the shared rate gate for status reporting.
func (s *Swarm) Gate() *ratelimit.Gate {
	return s.gate
}

// Stop cancels every running task, waits for schedulers to finish, and
// closes the event stream.
func (s *Swarm) Stop() error {
	s.cancel()

	s.mu.RLock()
	for _, sched := range s.schedulers {
		sched.Cancel()
	}
	s.mu.RUnlock()

	_ = s.group.Wait()
	s.emitter.Close()
	return nil
}
