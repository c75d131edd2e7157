package worker

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig holds the C7 retry scheduler's tunables: base delay,
// cap, and uniform jitter width, plus the attempt ceiling before a task
// escalates to terminal failure.
type BackoffConfig struct {
	Base        time.Duration
	Max         time.Duration
	Jitter      time.Duration
	MaxAttempts int
}

// Delay computes the backoff for the given attempt count (1-indexed):
// min(base*2^(attempt-1), max) + uniform(0, jitter). It is a pure
// function of its inputs; the worker is responsible for persisting the
// resulting next_retry_at so the schedule survives a restart.
func (c BackoffConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exp := math.Pow(2, float64(attempt-1))
	d := time.Duration(float64(c.Base) * exp)
	if d > c.Max {
		d = c.Max
	}
	if c.Jitter > 0 {
		d += time.Duration(rng.Int63n(int64(c.Jitter) + 1))
	}
	return d
}
