// Package retry provides the exponential backoff used when re-establishing a
// broker session after a failed connect or a dropped connection.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Strategy configures reconnect backoff.
//
// The schedule follows: delay = min(BaseDelay * ExponentialBase^attempt, MaxDelay)
//
// Example with defaults (1s base, 2.0 exponential, 1m max):
//
//	Attempt 0: 1s
//	Attempt 1: 2s
//	Attempt 2: 4s
//	...
//	Attempt 6: 1m (capped)
type Strategy struct {
	MaxAttempts     int           // Attempts before giving up; 0 retries forever
	BaseDelay       time.Duration // Delay before the first retry
	MaxDelay        time.Duration // Maximum delay cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the reconnect strategy used by the relay server:
// unlimited attempts, 1s→1m exponential backoff.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     0,
		BaseDelay:       1 * time.Second,
		MaxDelay:        1 * time.Minute,
		ExponentialBase: 2.0,
	}
}

// CalculateRetryDelay returns the delay before retry number attemptNumber (0-based).
func (s Strategy) CalculateRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber <= 0 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attemptNumber))

	// Cap at max delay
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}

	return time.Duration(delay)
}

// IsRetryable checks if another attempt is allowed.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return s.MaxAttempts <= 0 || attemptCount < s.MaxAttempts
}

// Wait sleeps for the delay of attemptNumber or until ctx is done, whichever
// comes first. It returns ctx.Err() when interrupted.
func (s Strategy) Wait(ctx context.Context, attemptNumber int) error {
	timer := time.NewTimer(s.CalculateRetryDelay(attemptNumber))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetRetrySchedule returns a human-readable description of the first n delays.
//
// Example output:
//
//	Reconnect Schedule:
//	  Attempt 1: after 1s
//	  Attempt 2: after 2s
func (s Strategy) GetRetrySchedule(n int) string {
	if s.MaxAttempts > 0 && n > s.MaxAttempts {
		n = s.MaxAttempts
	}
	schedule := "Reconnect Schedule:\n"
	for i := 0; i < n; i++ {
		schedule += fmt.Sprintf("  Attempt %d: after %v\n", i+1, s.CalculateRetryDelay(i))
	}
	if s.MaxAttempts > 0 {
		schedule += "  → Give up\n"
	}
	return schedule
}
