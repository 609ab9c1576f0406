package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/rsi-trader/internal/utils"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryObserver is told about every backoff before it is taken.
type RetryObserver func(attempt int, delay time.Duration)

// maxBackoff caps a single backoff wait.
const maxBackoff = time.Hour

// backoffDelay returns initial * 2^attempt, capped at maxBackoff.
func backoffDelay(initial time.Duration, attempt int) time.Duration {
	d := initial
	for i := 0; i < attempt; i++ {
		if d >= maxBackoff/2 {
			return maxBackoff
		}
		d *= 2
	}
	return min(d, maxBackoff)
}

// retryRateLimited runs fn up to attempts times. Only errors wrapping
// ErrRateLimited are retried, after an exponential backoff; anything else is
// returned as is. When the final attempt is rate limited the result wraps
// both ErrMaxRetriesExceeded and ErrRateLimited.
func retryRateLimited(ctx context.Context, name string, attempts int, initial time.Duration, sleep SleepFunc, observe RetryObserver, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := backoffDelay(initial, attempt)
		utils.GetLogger().Printf("Exchange | %s Rate limit hit. Retrying in %v (attempt %d/%d)", name, delay, attempt+1, attempts)
		if observe != nil {
			observe(attempt, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return &FetchError{Source: name, Err: fmt.Errorf("backoff interrupted: %w", err)}
		}
	}

	return &FetchError{
		Source: name,
		Status: statusOf(lastErr),
		Err:    fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempts, ErrRateLimited),
	}
}

func statusOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}
