// Package retry is a caller-side backoff helper. The storage adapters
// themselves never retry; restart policy belongs to whoever owns the
// operation.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"cloudgate/internal/api"
)

// Do runs fn up to maxAttempts times with exponential backoff and
// jitter, stopping early when the error is not transient or the context
// ends.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !Transient(err) || attempt == maxAttempts {
			return err
		}

		delay := baseDelay * (1 << (attempt - 1))
		delay += time.Duration(rand.Int63n(int64(delay/2) + 1)) // jitter
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Transient reports whether an error is worth retrying: server-side
// failures and rate limiting. Credential and not-supported failures
// never are.
func Transient(err error) bool {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
}
