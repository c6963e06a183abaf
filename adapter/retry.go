package adapter

import (
	"context"
	"fmt"
	"time"
)

// DefaultBackoff is the delay before the first retry. It doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// Permanent marks an error that must not be retried.
type Permanent struct {
	Err error
}

func (e *Permanent) Error() string { return e.Err.Error() }

func (e *Permanent) Unwrap() error { return e.Err }

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts. It stops early on success, on a *Permanent error, or when ctx
// is done. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, backoff time.Duration, fn func(ctx context.Context) error) error {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	attempts := 1 + max(retries, 0)

	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			delay := time.Duration(1<<uint(i-1)) * backoff
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if perm, ok := lastErr.(*Permanent); ok {
			return fmt.Errorf("%s: non-retriable error: %w", name, perm.Err)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
