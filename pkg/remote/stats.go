package remote

import "sync/atomic"

// RetryStats is a snapshot of the client's aggregate retry counters.
type RetryStats struct {
	TotalRetries       int64 `json:"total_retries"`
	SuccessfulRetries  int64 `json:"successful_retries"`
	FailedAfterRetries int64 `json:"failed_after_retries"`
}

// retryCounters is mutated only by the retry wrapper; readers take
// snapshots via RetryStats().
type retryCounters struct {
	total       atomic.Int64
	successful  atomic.Int64
	failedAfter atomic.Int64
}

func (c *retryCounters) snapshot() RetryStats {
	return RetryStats{
		TotalRetries:       c.total.Load(),
		SuccessfulRetries:  c.successful.Load(),
		FailedAfterRetries: c.failedAfter.Load(),
	}
}
