package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/konveksi/admin-gateway/pkg/logger"
)

// ErrNotConfirmed means a write was accepted but the change never became
// visible within the polling budget.
var ErrNotConfirmed = errors.New("change not confirmed by backend")

// pollUntil calls check until it reports true, at most attempts times, waiting
// backoff*attempt between tries. Read errors count as a failed attempt.
func pollUntil(ctx context.Context, what string, attempts int, backoff time.Duration, check func(context.Context) (bool, error)) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := check(ctx)
		if err == nil && ok {
			if attempt > 1 {
				logger.Debug("Change confirmed on retry", map[string]interface{}{
					"what":    what,
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		wait := backoff * time.Duration(attempt)
		logger.Debug("Change not visible yet, polling again", map[string]interface{}{
			"what":    what,
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %s after %d attempts: %v", ErrNotConfirmed, what, attempts, lastErr)
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrNotConfirmed, what, attempts)
}
