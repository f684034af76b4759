package service

import (
	"context"
	"time"

	"github.com/andina-erp/be-procurement/internal/apperrors"
)

const (
	conflictRetryAttempts = 3
	conflictRetryBackoff  = 50 * time.Millisecond
)

// RetryOnConflict re-runs fn when it fails with ConcurrentModification.
// Operations passed here must re-read current state on every attempt; the
// retry then either succeeds against the new state or surfaces the real
// conflict (duplicate signature, invalid transition) as a terminal error.
// Every other error kind is returned immediately.
func RetryOnConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	backoff := conflictRetryBackoff
	for attempt := 0; attempt < conflictRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		err = fn(ctx)
		if err == nil || !apperrors.IsRetryable(err) {
			return err
		}
	}
	return err
}
