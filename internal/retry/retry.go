package retry

import (
	"context"
	"time"
)

// Policy bounds how often and how fast a failing call is repeated.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Retryable filters which errors are worth another attempt. Nil retries every error.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the policy gives up or ctx is done. The delay
// doubles after every failed attempt.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error) error {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := policy.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
