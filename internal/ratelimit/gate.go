// Package ratelimit provides the shared token gate for reasoning calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default per-minute token budgets, matching Anthropic build-tier limits.
const (
	DefaultInputTPM  = 80_000
	DefaultOutputTPM = 16_000
)

// throttleThreshold is the window fraction above which calls are delayed.
const throttleThreshold = 0.80

// window is the sliding usage window length.
const window = 60 * time.Second

// MaxLimitedRetries bounds consecutive retries of a rate-limited call.
// These retries never count against a subtask's retry budget.
const MaxLimitedRetries = 5

// Status describes the gate's current disposition toward new calls.
type Status string

const (
	// StatusSafe means calls proceed immediately.
	StatusSafe Status = "safe"
	// StatusThrottle means usage is in the throttle band and calls wait
	// for window capacity to free.
	StatusThrottle Status = "throttle"
	// StatusLimited means the service reported a rate limit and calls
	// wait out the backoff delay.
	StatusLimited Status = "limited"
)

// entry is one recorded call in the sliding window.
type entry struct {
	at     time.Time
	input  int64
	output int64
}

// Config sets the gate's per-minute token budgets.
type Config struct {
	// InputTPM is the input-token budget per minute. Zero uses the default.
	InputTPM int64
	// OutputTPM is the output-token budget per minute. Zero uses the default.
	OutputTPM int64
}

// Gate admits reasoning calls against a sliding 60-second token window
// shared by every task in the pool. Admission never holds the lock across
// a wait, and a call whose estimate would push the window past the full
// budget is held back until capacity frees.
type Gate struct {
	mu          sync.Mutex
	history     []entry
	inputLimit  int64
	outputLimit int64

	// limitedUntil is the end of the current service-imposed backoff.
	limitedUntil time.Time
	// consecutiveLimited counts 429 responses since the last success.
	consecutiveLimited int

	totalInput  int64
	totalOutput int64

	backoff *limitedBackoff
	now     func() time.Time
}

// NewGate creates a gate with the given budgets.
func NewGate(cfg Config) *Gate {
	inputTPM := cfg.InputTPM
	if inputTPM == 0 {
		inputTPM = DefaultInputTPM
	}
	outputTPM := cfg.OutputTPM
	if outputTPM == 0 {
		outputTPM = DefaultOutputTPM
	}
	return &Gate{
		inputLimit:  inputTPM,
		outputLimit: outputTPM,
		backoff:     newLimitedBackoff(),
		now:         time.Now,
	}
}

// Admit blocks until the gate allows a call with the given token estimate,
// or the context is cancelled. It never admits a call that would push the
// window over the full budget while capacity can still free up.
func (g *Gate) Admit(ctx context.Context, estInput, estOutput int64) error {
	for {
		wait := g.admitWait(estInput, estOutput)
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// admitWait returns how long the caller must wait before the call may
// proceed, or zero to admit now.
func (g *Gate) admitWait(estInput, estOutput int64) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.pruneLocked(now)

	if g.limitedUntil.After(now) {
		return g.limitedUntil.Sub(now)
	}

	input, output := g.usageLocked()

	if input+estInput > g.inputLimit || output+estOutput > g.outputLimit {
		// An estimate larger than the whole budget can never be admitted
		// by waiting; let it through against an empty window and let the
		// service be the judge.
		if len(g.history) == 0 {
			return 0
		}
		return g.waitLocked(now)
	}

	inputRatio := float64(input) / float64(g.inputLimit)
	outputRatio := float64(output) / float64(g.outputLimit)
	if inputRatio >= throttleThreshold || outputRatio >= throttleThreshold {
		return g.waitLocked(now)
	}

	return 0
}

// Record adds an API call's actual token usage to the window.
func (g *Gate) Record(input, output int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.history = append(g.history, entry{at: now, input: input, output: output})
	g.totalInput += input
	g.totalOutput += output
	g.pruneLocked(now)
}

// ReportLimited notes a 429 from the service and returns the backoff delay
// that admission will enforce before the next call.
func (g *Gate) ReportLimited() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutiveLimited++
	delay := g.backoff.next()
	g.limitedUntil = g.now().Add(delay)
	return delay
}

// ReportSuccess resets the consecutive rate-limit counter and backoff.
func (g *Gate) ReportSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutiveLimited = 0
	g.limitedUntil = time.Time{}
	g.backoff.reset()
}

// ConsecutiveLimited returns the number of 429s since the last success.
func (g *Gate) ConsecutiveLimited() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consecutiveLimited
}

// Status returns the gate's current disposition.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.pruneLocked(now)

	if g.limitedUntil.After(now) {
		return StatusLimited
	}

	input, output := g.usageLocked()
	if input >= g.inputLimit || output >= g.outputLimit {
		return StatusLimited
	}
	inputRatio := float64(input) / float64(g.inputLimit)
	outputRatio := float64(output) / float64(g.outputLimit)
	if inputRatio >= throttleThreshold || outputRatio >= throttleThreshold {
		return StatusThrottle
	}
	return StatusSafe
}

// Usage returns the input and output tokens currently in the window.
func (g *Gate) Usage() (input, output int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pruneLocked(g.now())
	return g.usageLocked()
}

// Stats is a snapshot of the gate for reporting.
type Stats struct {
	WindowInput  int64  `json:"window_input"`
	WindowOutput int64  `json:"window_output"`
	InputLimit   int64  `json:"input_limit"`
	OutputLimit  int64  `json:"output_limit"`
	TotalInput   int64  `json:"total_input"`
	TotalOutput  int64  `json:"total_output"`
	Status       Status `json:"status"`
}

// Snapshot returns current gate statistics.
func (g *Gate) Snapshot() Stats {
	status := g.Status()

	g.mu.Lock()
	defer g.mu.Unlock()
	input, output := g.usageLocked()
	return Stats{
		WindowInput:  input,
		WindowOutput: output,
		InputLimit:   g.inputLimit,
		OutputLimit:  g.outputLimit,
		TotalInput:   g.totalInput,
		TotalOutput:  g.totalOutput,
		Status:       status,
	}
}

// usageLocked sums the window. Assumes the lock is held and the window pruned.
func (g *Gate) usageLocked() (input, output int64) {
	for _, e := range g.history {
		input += e.input
		output += e.output
	}
	return input, output
}

// waitLocked returns the time until the oldest window entry expires.
func (g *Gate) waitLocked(now time.Time) time.Duration {
	if len(g.history) == 0 {
		return 0
	}
	expiresAt := g.history[0].at.Add(window)
	if expiresAt.After(now) {
		return expiresAt.Sub(now)
	}
	return 0
}

// pruneLocked drops entries older than the window. Assumes the lock is held.
func (g *Gate) pruneLocked(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(g.history) && g.history[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		g.history = g.history[i:]
	}
}
