package correct

import (
	"sync"

	"github.com/kestrelworks/hive/pkg/models"
)

// Decision is the corrector's verdict on a failed attempt.
type Decision string

const (
	// DecisionCorrect means dispatch the returned corrective action, then
	// retry the subtask.
	DecisionCorrect Decision = "correct"
	// DecisionDefer means the failure belongs to the rate gate; retry
	// without consuming the subtask's retry budget.
	DecisionDefer Decision = "defer"
	// DecisionGiveUp means no further attempt should be made.
	DecisionGiveUp Decision = "give_up"
)

// CorrectiveAction is a dispatchable recovery step. The scheduler runs it
// as a recovery-role observation and merges the output into the subtask's
// context before the next attempt.
type CorrectiveAction struct {
	// Strategy names the correction strategy for events and logs.
	Strategy string
	// Directive is what the recovery agent should observe or do.
	Directive string
}

// strategy is one row of a per-kind correction table.
type strategy struct {
	name      string
	directive string
}

// strategyTables holds the ordered correction strategies per failure kind.
// Each strategy is tried at most once per subtask.
var strategyTables = map[FailureKind][]strategy{
	KindElementNotFound: {
		{"wait_and_reobserve", "Wait briefly, then describe the current state of the target and report whether the element is now present."},
		{"scroll_to_find", "Scroll through the target looking for the element and report where it appears, if anywhere."},
		{"alternative_target", "Identify an alternative element or control that accomplishes the same goal and describe how to reach it."},
		{"alternative_approach", "Propose a different way to accomplish the step that does not depend on the missing element."},
	},
	KindActionMissed: {
		{"reobserve_and_retarget", "Describe the current state of the target and identify exactly where the action should be aimed."},
		{"refresh_state", "Re-examine the target from scratch and report any differences from the expected state."},
		{"alternative_target", "Identify an alternative element or control that accomplishes the same goal and describe how to reach it."},
	},
	KindTimeout: {
		{"wait_longer", "Wait for the operation to settle, then report whether the expected outcome eventually appeared."},
		{"check_target_state", "Inspect the target and report whether it is still making progress or stuck."},
		{"restart_target", "Restart the target of this step and report its state once it is back up."},
	},
	KindTargetNotResponding: {
		{"wait_for_recovery", "Give the target time to recover, then report whether it responds again."},
		{"restart_target", "Restart the target of this step and report its state once it is back up."},
	},
	KindServiceTransient: {
		{"wait_for_service", "Pause briefly before retrying; note anything about the step that could be simplified to reduce load."},
	},
	KindUnknown: {
		{"reobserve", "Describe the current state of the target in detail so the next attempt starts from accurate context."},
		{"wait_and_retry", "Wait briefly for conditions to settle, then report anything that changed."},
		{"alternative_approach", "Propose a different way to accomplish the step given the failure so far."},
	},
}

// Corrector decides how to respond to failed subtask attempts. It tracks
// which strategies each subtask has already consumed so no strategy runs
// twice for the same subtask.
type Corrector struct {
	mu    sync.Mutex
	tried map[string]map[string]bool // subtask ID -> strategy name -> used
}

// New creates a Corrector.
func New() *Corrector {
	return &Corrector{
		tried: make(map[string]map[string]bool),
	}
}

// Next returns the verdict for a failed attempt of the given kind. When the
// verdict is DecisionCorrect, the returned action must be dispatched before
// the retry.
//
// Fatal service errors give up immediately. Rate-limited calls defer to the
// gate and never consume the retry budget. Everything else walks the
// ordered strategy table for the kind until the table or the subtask's
// retry budget is exhausted.
func (c *Corrector) Next(subtask *models.Subtask, kind FailureKind) (Decision, *CorrectiveAction) {
	switch kind {
	case KindServiceFatal:
		return DecisionGiveUp, nil
	case KindServiceRateLimited:
		return DecisionDefer, nil
	}

	if subtask.RetryCount >= subtask.MaxRetries {
		return DecisionGiveUp, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	table, ok := strategyTables[kind]
	if !ok {
		table = strategyTables[KindUnknown]
	}

	used := c.tried[subtask.ID]
	if used == nil {
		used = make(map[string]bool)
		c.tried[subtask.ID] = used
	}

	for _, s := range table {
		if used[s.name] {
			continue
		}
		used[s.name] = true
		return DecisionCorrect, &CorrectiveAction{
			Strategy:  s.name,
			Directive: s.directive,
		}
	}

	return DecisionGiveUp, nil
}

// Forget clears per-subtask strategy tracking once the subtask reaches a
// terminal state.
func (c *Corrector) Forget(subtaskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tried, subtaskID)
}

// TriedStrategies returns the strategy names consumed by a subtask so far.
func (c *Corrector) TriedStrategies(subtaskID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	used := c.tried[subtaskID]
	var names []string
	for name := range used {
		names = append(names, name)
	}
	return names
}
