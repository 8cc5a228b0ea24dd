package ingestion_engine

import (
	"context"
	"time"
)

// RetryPolicy bounds attempts of a model call. Backoff doubles after each failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// retry runs op until it succeeds, attempts run out or ctx ends; it returns the last error.
func retry(ctx context.Context, p RetryPolicy, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	delay := p.Backoff
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil || attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
