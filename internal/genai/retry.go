package genai

import (
	"context"
	"math/rand/v2"
	"time"
)

// CalculateBackoff returns a full-jitter delay for retry number attempt:
// uniform in [0, min(maxDelay, initial<<(attempt-1))).
func CalculateBackoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initial <= 0 || maxDelay <= 0 {
		return 0
	}
	ceiling := initial
	for i := 1; i < attempt && ceiling < maxDelay; i++ {
		ceiling *= 2
	}
	return rand.N(min(ceiling, maxDelay))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HasSufficientBudget reports whether ctx leaves at least required before
// its deadline. Kakao turns carry a short one.
func HasSufficientBudget(ctx context.Context, required time.Duration) bool {
	deadline, ok := ctx.Deadline()
	return !ok || time.Until(deadline) >= required
}
