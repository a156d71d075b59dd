// Package retry provides a generic retry wrapper with exponential backoff.
//
// This is the policy used around whole transfer operations (an upload or
// download including its local file work). Retry of individual REST requests
// is handled separately by the API client, which only retries 5xx responses.
package retry

import (
	"context"
	"time"

	"github.com/onscale/onscale-go/internal/constants"
	"github.com/onscale/onscale-go/internal/logging"
)

// Policy bounds how long an operation keeps being retried. Zero values mean
// unbounded for that dimension; a Policy with both fields zero retries
// forever.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt. An
	// operation wrapped with MaxRetries=3 runs at most 4 times.
	MaxRetries int

	// Timeout is the total wall-clock budget measured from the first
	// attempt. Once exceeded the last error is returned.
	Timeout time.Duration
}

// Do runs op, retrying on error with exponential backoff: the wait before
// retry n is min(2^n, 128) seconds. It returns nil on the first success, the
// last error once a bound is exceeded, or ctx.Err() if the context is
// cancelled while waiting.
func (p Policy) Do(ctx context.Context, op func() error) error {
	start := time.Now()
	attempt := 1

	for {
		err := op()
		if err == nil {
			return nil
		}

		if p.MaxRetries > 0 && attempt > p.MaxRetries {
			logging.Global().Debug().
				Err(err).
				Int("attempts", attempt).
				Msg("retry budget exhausted")
			return err
		}
		if p.Timeout > 0 && time.Since(start) > p.Timeout {
			logging.Global().Debug().
				Err(err).
				Dur("elapsed", time.Since(start)).
				Msg("retry timed out")
			return err
		}

		wait := backoff(attempt)
		logging.Global().Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("retrying after error")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		attempt++
	}
}

// waitUnit scales the backoff; overridden in tests to avoid real sleeps.
var waitUnit = time.Second

// backoff returns min(2^attempt, RetryWaitCapSeconds) wait units.
func backoff(attempt int) time.Duration {
	secs := 1
	for i := 0; i < attempt && secs < constants.RetryWaitCapSeconds; i++ {
		secs *= 2
	}
	if secs > constants.RetryWaitCapSeconds {
		secs = constants.RetryWaitCapSeconds
	}
	return time.Duration(secs) * waitUnit
}
