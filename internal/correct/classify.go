// Package correct provides failure classification and the self-correction
// policy for subtask retries.
package correct

import (
	"errors"
	"strings"

	"github.com/kestrelworks/hive/internal/api"
)

// FailureKind classifies why a subtask attempt failed.
type FailureKind string

const (
	// KindElementNotFound means the target of an action could not be located.
	KindElementNotFound FailureKind = "element_not_found"
	// KindTimeout means the attempt exceeded its time budget.
	KindTimeout FailureKind = "timeout"
	// KindActionMissed means the action ran but had no visible effect.
	KindActionMissed FailureKind = "action_missed"
	// KindTargetNotResponding means the target application hung or froze.
	KindTargetNotResponding FailureKind = "target_not_responding"
	// KindServiceRateLimited means the reasoning service returned a 429.
	KindServiceRateLimited FailureKind = "service_rate_limited"
	// KindServiceTransient means a service failure likely to pass.
	KindServiceTransient FailureKind = "service_transient"
	// KindServiceFatal means a service failure retries cannot fix.
	KindServiceFatal FailureKind = "service_fatal"
	// KindUnknown covers everything else.
	KindUnknown FailureKind = "unknown"
)

// Classify maps an execution error to a failure kind. Service call errors
// take precedence; everything else falls back to message matching.
func Classify(err error) FailureKind {
	if err == nil {
		return KindUnknown
	}

	var ce *api.CallError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case api.ErrorRateLimited:
			return KindServiceRateLimited
		case api.ErrorTransient:
			return KindServiceTransient
		default:
			return KindServiceFatal
		}
	}

	return classifyMessage(err.Error())
}

func classifyMessage(msg string) FailureKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "doesn't exist"),
		strings.Contains(lower, "cannot find"):
		return KindElementNotFound
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "timed out"):
		return KindTimeout
	case strings.Contains(lower, "not responding"),
		strings.Contains(lower, "hang"),
		strings.Contains(lower, "freeze"),
		strings.Contains(lower, "frozen"):
		return KindTargetNotResponding
	case strings.Contains(lower, "missed"),
		strings.Contains(lower, "no effect"),
		strings.Contains(lower, "nothing happened"),
		strings.Contains(lower, "wrong target"):
		return KindActionMissed
	default:
		return KindUnknown
	}
}
