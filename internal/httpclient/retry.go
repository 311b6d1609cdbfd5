package httpclient

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// permanentError stops RetryWithBackoff immediately.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// retryDelay doubles base per attempt and spreads it over [0.75d, 1.25d).
func retryDelay(attempt int, base time.Duration) time.Duration {
	d := base << min(attempt, 16)
	if d <= 0 {
		return 0
	}
	return d - d/4 + rand.N(d/2+1)
}

// RetryWithBackoff calls fn up to maxRetries+1 times, sleeping between
// failures (about 500ms, 1s, 2s for a 500ms base). A Permanent error is
// returned at once, unwrapped.
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if perm, ok := errors.AsType[*permanentError](err); ok {
			return perm.err
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(retryDelay(attempt, initialDelay))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
