package pricing

import (
	"context"
	"time"
)

// Policy is a reusable retry-with-backoff policy. Timeout bounds the whole
// sequence of attempts including their delays.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Factor       float64
	Timeout      time.Duration
}

// OnRetry is invoked before each backoff sleep so callers can surface
// "retrying" state. attempt is the 1-based attempt that just failed.
type OnRetry func(attempt int, err error, delay time.Duration)

// DoWithRetry runs op up to p.MaxAttempts times with exponential backoff.
// A caller awaiting it observes exactly one terminal outcome: nil on
// eventual success, the last operation error on exhaustion, or the context
// error on cancellation/timeout.
func DoWithRetry(ctx context.Context, p Policy, onRetry OnRetry, op func(ctx context.Context) error) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	delay := p.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, lastErr, delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.Factor)
	}
	return lastErr
}
