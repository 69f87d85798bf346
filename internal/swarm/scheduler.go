package swarm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kestrelworks/hive/internal/agent"
	"github.com/kestrelworks/hive/internal/correct"
	"github.com/kestrelworks/hive/internal/graph"
	"github.com/kestrelworks/hive/internal/plan"
	"github.com/kestrelworks/hive/internal/ratelimit"
	"github.com/kestrelworks/hive/pkg/models"
)

// SchedulerConfig contains everything a Scheduler needs to run one task.
type SchedulerConfig struct {
	// Task is the task to execute. If it already carries subtasks the
	// planning step is skipped and the existing graph is used.
	Task *models.Task
	// Planner decomposes the instruction when the task has no subtasks.
	Planner *plan.Planner
	// Executor makes the rate-gated reasoning calls.
	Executor *agent.Executor
	// Gate is the shared rate gate, consulted for consecutive-limit caps.
	Gate *ratelimit.Gate
	// Emitter receives one event per state transition.
	Emitter *EventEmitter
	// Config holds the scheduling tunables.
	Config Config
}

// Scheduler drives a single task through planning, dispatch, verification,
// correction, and final synthesis. It is the sole writer of task and
// subtask state; executors and correctors only return values.
type Scheduler struct {
	cfg         Config
	planner     *plan.Planner
	exec        *agent.Executor
	gate        *ratelimit.Gate
	emitter     *EventEmitter
	corrector   *correct.Corrector
	coordinator *Coordinator
	critic      *Critic

	mu        sync.Mutex
	task      *models.Task
	graph     *graph.DependencyGraph
	inFlight  map[string]bool
	cancelled bool
	paused    bool
	cancelRun context.CancelFunc

	sem      *semaphore.Weighted
	outcomes chan outcome
	wake     chan struct{}

	debugLog func(format string, args ...interface{})
}

// outcome is what a worker goroutine reports back to the run loop.
type outcome struct {
	st           *models.Subtask
	result       *models.TaskResult
	verification *models.VerificationResult
	err          error
	// recovery marks the result of a corrective observation rather than
	// a regular attempt.
	recovery bool
	strategy string
}

// NewScheduler creates a scheduler for one task.
func NewScheduler(sc SchedulerConfig) *Scheduler {
	cfg := sc.Config.withDefaults()
	return &Scheduler{
		cfg:         cfg,
		planner:     sc.Planner,
		exec:        sc.Executor,
		gate:        sc.Gate,
		emitter:     sc.Emitter,
		corrector:   correct.New(),
		coordinator: NewCoordinator(sc.Executor),
		critic:      NewCritic(sc.Executor),
		task:        sc.Task,
		graph:       graph.New(),
		inFlight:    make(map[string]bool),
		sem:         semaphore.NewWeighted(int64(cfg.MaxParallel)),
		outcomes:    make(chan outcome),
		wake:        make(chan struct{}, 1),
		debugLog:    func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function for scheduler tracing.
func (s *Scheduler) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.debugLog = fn
		s.graph.SetDebugLog(fn)
	}
}

// Run executes the task to a terminal state. It returns nil when the task
// completed and an error describing the root cause otherwise.
func (s *Scheduler) Run(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.TaskTimeout)
	defer cancel()

	s.mu.Lock()
	s.cancelRun = cancel
	if s.cancelled {
		cancel()
	}
	s.mu.Unlock()

	s.emit(SwarmEvent{Type: EventTaskStarted, Description: s.task.Instruction})

	if err := s.prepare(runCtx); err != nil {
		return s.finishFailed(fmt.Sprintf("planning failed: %v", err))
	}

	s.setTaskStatus(models.TaskStatusExecuting)
	s.loop(runCtx)
	return s.finish(runCtx)
}

// Cancel stops the task. In-flight calls are abandoned and their results
// discarded; the task reaches Failed with a cancellation reason.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task.Status.Terminal() {
		return
	}
	s.cancelled = true
	if s.cancelRun != nil {
		s.cancelRun()
	}
}

// Pause holds back new dispatches. In-flight attempts run to completion
// and their outcomes still apply; nothing new starts until Resume.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	if s.task.Status.Terminal() || s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = true
	s.mu.Unlock()
	s.poke()
}

// Resume lifts a pause and wakes the run loop to dispatch again.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	s.mu.Unlock()
	s.poke()
}

// Paused reports whether new dispatches are currently held back.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the task's current state.
func (s *Scheduler) Snapshot() *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := *s.task
	snap.Subtasks = make([]*models.Subtask, len(s.task.Subtasks))
	for i, st := range s.task.Subtasks {
		c := *st
		snap.Subtasks[i] = &c
	}
	return &snap
}

// prepare plans the task if needed and builds the dependency graph.
func (s *Scheduler) prepare(ctx context.Context) error {
	s.mu.Lock()
	planned := len(s.task.Subtasks) > 0
	s.mu.Unlock()

	if !planned {
		s.setTaskStatus(models.TaskStatusPlanning)
		result, err := s.planner.Plan(ctx, s.task.Instruction)
		if err != nil {
			return err
		}
		s.mu.Lock()
		for _, st := range result.Subtasks {
			st.TaskID = s.task.ID
			if s.cfg.MaxRetries > 0 {
				st.MaxRetries = s.cfg.MaxRetries
			}
		}
		s.task.Subtasks = result.Subtasks
		s.mu.Unlock()
	}

	return s.graph.Build(s.task.Subtasks)
}

// loop dispatches ready subtasks and applies outcomes until the graph is
// exhausted or the context ends.
func (s *Scheduler) loop(ctx context.Context) {
	for {
		if s.graph.Done() {
			return
		}

		if !s.Paused() {
			dispatched := s.dispatchReady(ctx)
			if dispatched == 0 && s.inFlightCount() == 0 {
				// Nothing running and nothing dispatchable: remaining nodes
				// are unreachable.
				s.debugLog("[swarm.loop] no progress possible, %d nodes unresolved", s.graph.Size())
				return
			}
		}

		select {
		case <-ctx.Done():
			s.abandon(ctx)
			return
		case <-s.wake:
		case out := <-s.outcomes:
			if ctx.Err() != nil {
				// Cancellation wins over any in-progress retry logic.
				s.abandon(ctx)
				return
			}
			s.handleOutcome(ctx, out)
		}
	}
}

// dispatchReady moves ready subtasks into execution in ascending creation
// order, up to the concurrency bound. Returns the number dispatched.
func (s *Scheduler) dispatchReady(ctx context.Context) int {
	dispatched := 0
	for _, st := range s.graph.Ready() {
		s.mu.Lock()
		if s.inFlight[st.ID] || st.Status.Terminal() {
			s.mu.Unlock()
			continue
		}
		if st.Status == models.SubtaskStatusPending {
			st.Status = models.SubtaskStatusReady
		}
		if !s.sem.TryAcquire(1) {
			s.mu.Unlock()
			break
		}
		if st.Status == models.SubtaskStatusNeedsRetry {
			st.RetryCount++
		}
		st.Status = models.SubtaskStatusExecuting
		if st.StartedAt == nil {
			now := time.Now()
			st.StartedAt = &now
		}
		s.inFlight[st.ID] = true
		// Workers read a copy taken under the lock; the scheduler may
		// rewrite the live subtask (cancellation, abandonment) while the
		// attempt is in flight.
		attempt := cloneSubtask(st)
		s.mu.Unlock()

		s.debugLog("[swarm.dispatch] subtask %s (%s) attempt %d", st.ID, st.Role, st.RetryCount+1)
		s.emit(SwarmEvent{Type: EventSubtaskStarted, SubtaskID: st.ID, AgentType: st.Role})
		dispatched++
		go s.runSubtask(ctx, st, attempt)
	}
	return dispatched
}

// runSubtask performs one attempt, optionally routes it through the
// verifier, and reports the outcome. Runs in its own goroutine; reads only
// the dispatch-time copy, never the live subtask.
func (s *Scheduler) runSubtask(ctx context.Context, st, attempt *models.Subtask) {
	defer s.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.SubtaskTimeout)
	defer cancel()

	result, err := s.exec.Execute(callCtx, attempt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("subtask timed out after %s", s.cfg.SubtaskTimeout)
		}
		s.send(ctx, outcome{st: st, err: err})
		return
	}

	var verification *models.VerificationResult
	if s.cfg.VerificationEnabled && attempt.Role != models.AgentVerifier {
		s.setSubtaskStatus(st, models.SubtaskStatusVerifying)
		v, verr := s.exec.Verify(callCtx, attempt, result)
		if verr != nil {
			// A broken verifier should not fail work that succeeded.
			log.Printf("[swarm] verification call for subtask %s failed: %v", st.ID, verr)
		} else {
			verification = v
		}
	}

	s.send(ctx, outcome{st: st, result: result, verification: verification})
}

// runRecovery dispatches a corrective observation for a failed attempt.
// Runs in its own goroutine and counts against the concurrency bound; like
// runSubtask it reads only the snapshot taken when the failure was handled.
func (s *Scheduler) runRecovery(ctx context.Context, st, attempt *models.Subtask, action *correct.CorrectiveAction) {
	out := outcome{st: st, recovery: true, strategy: action.Strategy}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		out.err = err
		s.send(ctx, out)
		return
	}
	defer s.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.SubtaskTimeout)
	defer cancel()

	out.result, out.err = s.exec.Recover(callCtx, attempt, action.Directive)
	s.send(ctx, out)
}

// send delivers an outcome to the run loop unless the context has ended,
// in which case the result is discarded.
func (s *Scheduler) send(ctx context.Context, out outcome) {
	select {
	case s.outcomes <- out:
	case <-ctx.Done():
	}
}

// handleOutcome applies one worker result to the state machine.
func (s *Scheduler) handleOutcome(ctx context.Context, out outcome) {
	st := out.st

	if out.recovery {
		s.mu.Lock()
		delete(s.inFlight, st.ID)
		if out.err != nil {
			log.Printf("[swarm] recovery observation for subtask %s failed: %v", st.ID, out.err)
		} else {
			st.AddContext(fmt.Sprintf("[recovery:%s] %s", out.strategy, out.result.Output))
		}
		st.Status = models.SubtaskStatusNeedsRetry
		s.mu.Unlock()
		return
	}

	if out.err != nil {
		s.handleFailure(ctx, st, out.err)
		return
	}

	if out.verification != nil {
		s.emit(SwarmEvent{
			Type:      EventVerification,
			SubtaskID: st.ID,
			Passed:    out.verification.Passed,
			Score:     out.verification.Score,
		})
		if !out.verification.Passed || out.verification.Score < s.cfg.VerificationThreshold {
			s.mu.Lock()
			st.AddContext("verifier feedback: " + out.verification.Feedback)
			s.mu.Unlock()
			s.handleFailure(ctx, st, fmt.Errorf("verification failed with score %.2f: %s",
				out.verification.Score, out.verification.Feedback))
			return
		}
	}

	s.mu.Lock()
	delete(s.inFlight, st.ID)
	st.Status = models.SubtaskStatusCompleted
	st.Result = out.result
	st.Error = ""
	now := time.Now()
	st.CompletedAt = &now
	s.mu.Unlock()

	s.graph.MarkComplete(st.ID)
	s.corrector.Forget(st.ID)
	s.emit(SwarmEvent{Type: EventSubtaskCompleted, SubtaskID: st.ID, Success: true})
}

// handleFailure routes a failed attempt through the corrector.
func (s *Scheduler) handleFailure(ctx context.Context, st *models.Subtask, err error) {
	kind := correct.Classify(err)
	s.debugLog("[swarm.failure] subtask %s: kind=%s err=%v", st.ID, kind, err)

	s.mu.Lock()
	st.Error = err.Error()
	s.mu.Unlock()

	decision, action := s.corrector.Next(st, kind)
	switch decision {
	case correct.DecisionDefer:
		// Rate-limited calls retry unchanged; the gate's backoff delays
		// the next admission and no retry budget is consumed.
		if s.gate.ConsecutiveLimited() >= ratelimit.MaxLimitedRetries {
			s.failSubtask(st, fmt.Errorf("rate limited %d consecutive times: %w",
				s.gate.ConsecutiveLimited(), err))
			return
		}
		s.mu.Lock()
		delete(s.inFlight, st.ID)
		st.Status = models.SubtaskStatusReady
		s.mu.Unlock()

	case correct.DecisionCorrect:
		s.emit(SwarmEvent{Type: EventRecovery, SubtaskID: st.ID, Strategy: action.Strategy})
		// Stays in flight until the observation lands so the subtask is
		// not re-dispatched with stale context.
		s.mu.Lock()
		st.Status = models.SubtaskStatusNeedsRetry
		attempt := cloneSubtask(st)
		s.mu.Unlock()
		go s.runRecovery(ctx, st, attempt, action)

	default:
		s.failSubtask(st, err)
	}
}

// failSubtask moves a subtask to Failed and blocks its dependents.
func (s *Scheduler) failSubtask(st *models.Subtask, err error) {
	s.mu.Lock()
	if st.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	delete(s.inFlight, st.ID)
	st.Status = models.SubtaskStatusFailed
	st.Error = err.Error()
	now := time.Now()
	st.CompletedAt = &now
	s.mu.Unlock()

	s.graph.MarkResolved(st.ID)
	s.corrector.Forget(st.ID)
	s.emit(SwarmEvent{Type: EventSubtaskFailed, SubtaskID: st.ID, Error: err.Error()})
	s.blockDependents(st)
}

// blockDependents marks every transitive dependent of a failed subtask as
// Blocked. Blocked is terminal; the nodes never dispatch.
func (s *Scheduler) blockDependents(failed *models.Subtask) {
	for _, id := range s.graph.TransitiveDependents(failed.ID) {
		dep := s.graph.Get(id)
		if dep == nil {
			continue
		}
		s.mu.Lock()
		if dep.Status.Terminal() {
			s.mu.Unlock()
			continue
		}
		dep.Status = models.SubtaskStatusBlocked
		dep.BlockedReason = fmt.Sprintf("dependency %s failed", failed.ID)
		now := time.Now()
		dep.CompletedAt = &now
		reason := dep.BlockedReason
		s.mu.Unlock()

		s.graph.MarkResolved(id)
		s.emit(SwarmEvent{Type: EventSubtaskFailed, SubtaskID: id, Error: "blocked: " + reason})
	}
}

// abandon handles cancellation and timeout: in-flight subtasks fail with
// the cancellation reason so the event stream carries a root cause.
func (s *Scheduler) abandon(ctx context.Context) {
	reason := "task cancelled"
	s.mu.Lock()
	if !s.cancelled && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = fmt.Sprintf("task timed out after %s", s.cfg.TaskTimeout)
	}
	s.task.Error = reason

	var abandoned []*models.Subtask
	for _, st := range s.task.Subtasks {
		if s.inFlight[st.ID] {
			abandoned = append(abandoned, st)
		}
	}
	if len(abandoned) == 0 {
		// Ensure at least one subtask_failed event explains the failure.
		for _, st := range s.task.Subtasks {
			if !st.Status.Terminal() {
				abandoned = append(abandoned, st)
				break
			}
		}
	}
	s.mu.Unlock()

	for _, st := range abandoned {
		s.failSubtask(st, errors.New(reason))
	}
}

// finish synthesizes the summary and moves the task to its terminal state.
func (s *Scheduler) finish(ctx context.Context) error {
	s.mu.Lock()
	allCompleted := len(s.task.Subtasks) > 0
	rootErr := s.task.Error
	for _, st := range s.task.Subtasks {
		if st.Status != models.SubtaskStatusCompleted {
			allCompleted = false
			if rootErr == "" && st.Error != "" {
				rootErr = st.Error
			}
		}
	}
	s.task.Status = models.TaskStatusVerifying
	s.mu.Unlock()

	snap := s.Snapshot()
	summary := s.coordinator.Summarize(ctx, snap)
	var review string
	if s.cfg.CriticEnabled {
		review = s.critic.Review(ctx, snap)
	}

	now := time.Now()
	s.mu.Lock()
	s.task.Summary = summary
	s.task.Review = review
	s.task.CompletedAt = &now
	if allCompleted {
		s.task.Status = models.TaskStatusCompleted
	} else {
		if rootErr == "" {
			rootErr = "one or more subtasks did not complete"
		}
		s.task.Status = models.TaskStatusFailed
		s.task.Error = rootErr
	}
	s.mu.Unlock()

	s.emit(SwarmEvent{Type: EventTaskCompleted, Success: allCompleted})
	if !allCompleted {
		return errors.New(rootErr)
	}
	return nil
}

// finishFailed terminates a task that never built a graph.
func (s *Scheduler) finishFailed(reason string) error {
	now := time.Now()
	s.mu.Lock()
	s.task.Status = models.TaskStatusFailed
	s.task.Error = reason
	s.task.CompletedAt = &now
	s.mu.Unlock()

	s.emit(SwarmEvent{Type: EventTaskCompleted, Success: false})
	return errors.New(reason)
}

func (s *Scheduler) setTaskStatus(status models.TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.task.Status.Terminal() {
		s.task.Status = status
	}
}

func (s *Scheduler) setSubtaskStatus(st *models.Subtask, status models.SubtaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !st.Status.Terminal() {
		st.Status = status
	}
}

func (s *Scheduler) inFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// cloneSubtask copies a subtask for a worker goroutine. Callers must hold
// s.mu.
func cloneSubtask(st *models.Subtask) *models.Subtask {
	c := *st
	c.Context = append([]string(nil), st.Context...)
	return &c
}

// emit stamps and sends one event. All emissions for a subtask happen on
// the run loop goroutine, which keeps per-subtask ordering strict.
func (s *Scheduler) emit(ev SwarmEvent) {
	ev.TaskID = s.task.ID
	ev.Timestamp = time.Now()
	s.emitter.Emit(ev)
}
