package suggester

import (
	"context"
	"time"

	"github.com/LiorShrago/BudgetBuddy/internal/research"
)

// Backoff computes the wait before a retry.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
	// RateLimitMultiplier stretches the wait after a 429.
	RateLimitMultiplier int
}

// Delay returns the wait after the given zero-based attempt failed with kind.
// Rate-limited calls wait max(retryAfter, delay*RateLimitMultiplier).
func (b Backoff) Delay(attempt int, kind research.Kind, retryAfter time.Duration) time.Duration {
	delay := b.Base
	for i := 0; i < attempt && delay < b.Max; i++ {
		delay *= 2
	}
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}

	if kind == research.KindRateLimited {
		mult := b.RateLimitMultiplier
		if mult < 1 {
			mult = 1
		}
		delay *= time.Duration(mult)
		if retryAfter > delay {
			delay = retryAfter
		}
	}
	return delay
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
