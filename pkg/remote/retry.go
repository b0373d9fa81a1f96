package remote

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
)

// doWithRetry runs a single HTTP call through the classified retry loop.
//
// Retryable failures (connection/timeout, 429, 5xx) back off exponentially
// with bounded jitter; a server Retry-After hint overrides the computed
// delay for the next attempt. Permanent failures return immediately. The
// attempt budget counts calls, so MaxAttempts=3 means at most 2 retries.
func (c *Client) doWithRetry(ctx context.Context, op string, call func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.25
	bo.MaxInterval = c.maxDelay
	bo.MaxElapsedTime = 0 // the attempt budget bounds the loop, not wall time
	bo.Reset()

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.NetworkError(op+" cancelled", err)
		}

		body, err := call(ctx)
		if err == nil {
			if attempt > 0 {
				c.counters.successful.Add(1)
			}
			return body, nil
		}
		lastErr = err

		if !errors.IsRetryable(err) {
			return nil, err
		}
		if attempt == c.maxAttempts-1 {
			break
		}

		delay := bo.NextBackOff()
		if hint := errors.RetryAfterHint(err); hint > 0 {
			delay = hint
		}

		c.counters.total.Add(1)
		c.log.Warn("retrying "+op,
			observability.Int("attempt", attempt+1),
			observability.Dur("delay", delay),
			observability.Err(err))

		select {
		case <-ctx.Done():
			return nil, errors.NetworkError(op+" cancelled during backoff", ctx.Err())
		case <-time.After(delay):
		}
	}

	c.counters.failedAfter.Add(1)
	return nil, lastErr
}
