package ratelimit

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	backoffBase       = 2 * time.Second
	backoffCap        = 60 * time.Second
	backoffMultiplier = 2.0
	backoffJitter     = 0.25
)

// limitedBackoff produces the delay sequence for consecutive 429 responses:
// base 2s, doubled each time, jittered, capped at 60s.
type limitedBackoff struct {
	inner *backoff.ExponentialBackOff
}

func newLimitedBackoff() *limitedBackoff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffBase
	b.MaxInterval = backoffCap
	b.Multiplier = backoffMultiplier
	b.RandomizationFactor = backoffJitter
	b.MaxElapsedTime = 0 // the retry count bound lives in the scheduler
	b.Reset()
	return &limitedBackoff{inner: b}
}

// next returns the next delay in the sequence.
func (l *limitedBackoff) next() time.Duration {
	return l.inner.NextBackOff()
}

// reset restarts the sequence at the base delay.
func (l *limitedBackoff) reset() {
	l.inner.Reset()
}
