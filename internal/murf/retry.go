package murf

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 1 * time.Second
	defaultBackoffMulti   = 2
	defaultMaxBackoff     = 10 * time.Second
)

// RetryableError signals a throttled, overloaded, or dropped request.
type RetryableError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	if e.StatusCode == 0 {
		return e.Body
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Backoff controls Retry. The zero value uses the package defaults.
type Backoff struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

func (b Backoff) withDefaults() Backoff {
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = defaultMaxAttempts
	}
	if b.Initial <= 0 {
		b.Initial = defaultInitialBackoff
	}
	if b.Max <= 0 {
		b.Max = defaultMaxBackoff
	}
	return b
}

// Retry executes fn, retrying only on RetryableError. A server Retry-After
// hint replaces the computed delay when it is longer.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	b = b.withDefaults()
	var lastErr error
	backoff := b.Initial

	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		lastErr = err

		if attempt < b.MaxAttempts {
			wait := backoff
			if re.RetryAfter > wait {
				wait = re.RetryAfter
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			backoff *= time.Duration(defaultBackoffMulti)
			if backoff > b.Max {
				backoff = b.Max
			}
		}
	}

	return lastErr
}
