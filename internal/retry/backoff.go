package retry

import "time"

// MaxDelay caps every backoff returned by ExponentialBackoff.
const MaxDelay = 5 * time.Minute

// ExponentialBackoff returns base * 2^attempt, capped at MaxDelay.
// Negative attempts are treated as zero.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return MaxDelay
	}
	d := base * (1 << attempt)
	if d > MaxDelay || d < 0 {
		return MaxDelay
	}
	return d
}
