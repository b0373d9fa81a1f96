package remote

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxAttempts  = 3
	defaultBaseDelay    = 2 * time.Second
	defaultMaxDelay     = 60 * time.Second
	defaultMaxBody      = 10 << 20 // 10MB response ceiling
	defaultPollInterval = 2 * time.Second
	defaultPollBudget   = 5 * time.Minute

	// errorBodyLimit caps how much of a non-2xx body is read for messages
	errorBodyLimit = 4 << 10
)

// Options configures the analysis service client.
type Options struct {
	BaseURL string

	// Timeout applies to each individual HTTP call.
	Timeout time.Duration
	// MaxAttempts is the per-call attempt budget (default 3).
	MaxAttempts int
	// BaseDelay seeds the exponential backoff sequence (default 2s).
	BaseDelay time.Duration
	// MaxDelay caps a single backoff delay.
	MaxDelay time.Duration
	// MaxResponseBytes is the response-size ceiling (default 10MB).
	MaxResponseBytes int64
	// PollInterval is the pause between status polls.
	PollInterval time.Duration
	// PollBudget bounds the total time spent polling one analysis.
	PollBudget time.Duration
}

// Client talks to the remote security-analysis service. It is stateless
// per call apart from the aggregate retry counters and safe for
// concurrent use by orchestrator workers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        observability.Logger

	maxAttempts  int
	baseDelay    time.Duration
	maxDelay     time.Duration
	maxBody      int64
	pollInterval time.Duration
	pollBudget   time.Duration

	counters retryCounters
}

// NewClient creates a client for the analysis service.
func NewClient(opts Options, log observability.Logger) *Client {
	if log == nil {
		log = observability.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = defaultMaxBody
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PollBudget <= 0 {
		opts.PollBudget = defaultPollBudget
	}

	return &Client{
		baseURL:      opts.BaseURL,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		log:          log,
		maxAttempts:  opts.MaxAttempts,
		baseDelay:    opts.BaseDelay,
		maxDelay:     opts.MaxDelay,
		maxBody:      opts.MaxResponseBytes,
		pollInterval: opts.PollInterval,
		pollBudget:   opts.PollBudget,
	}
}

// RetryStats returns a snapshot of the aggregate retry counters.
func (c *Client) RetryStats() RetryStats {
	return c.counters.snapshot()
}

// Scan runs the three-step workflow for one extension: submit the
// analysis, poll it to a terminal state, fetch the results.
//
// Known limitation: only individual HTTP calls retry, not the workflow as
// a whole. A call that exhausts its attempt budget fails the entire scan
// even if a fresh submit moments later would succeed.
func (c *Client) Scan(ctx context.Context, publisher, name string) Outcome {
	id, err := c.submit(ctx, publisher, name)
	if err != nil {
		return outcomeFromError("submit", err)
	}

	if err := c.pollUntilTerminal(ctx, id); err != nil {
		return outcomeFromError("poll", err)
	}

	result, err := c.fetchResults(ctx, id)
	if err != nil {
		return outcomeFromError("fetch", err)
	}
	return Outcome{Kind: OutcomeSuccess, Result: result}
}

func (c *Client) submit(ctx context.Context, publisher, name string) (string, error) {
	payload, err := json.Marshal(submitRequest{Publisher: publisher, Name: name})
	if err != nil {
		return "", errors.ValidationError("failed to encode submit request", err)
	}

	body, err := c.doWithRetry(ctx, "submit analysis", func(ctx context.Context) ([]byte, error) {
		return c.doCall(ctx, http.MethodPost, "/api/v1/analyses", payload)
	})
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.ServerError("malformed submit response", err)
	}
	if resp.AnalysisID == "" {
		return "", errors.ServerError("submit response missing analysis id", nil)
	}
	return resp.AnalysisID, nil
}

func (c *Client) pollUntilTerminal(ctx context.Context, id string) error {
	deadline := time.Now().Add(c.pollBudget)

	for {
		body, err := c.doWithRetry(ctx, "poll analysis", func(ctx context.Context) ([]byte, error) {
			return c.doCall(ctx, http.MethodGet, "/api/v1/analyses/"+id, nil)
		})
		if err != nil {
			return err
		}

		var resp statusResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return errors.ServerError("malformed status response", err)
		}

		switch resp.Status {
		case statusComplete:
			return nil
		case statusFailed:
			msg := resp.Message
			if msg == "" {
				msg = "analysis failed"
			}
			return errors.ServerError(msg, nil).WithContext("analysis_id", id)
		case statusQueued, statusRunning:
			// keep polling
		default:
			return errors.ServerError(fmt.Sprintf("unknown analysis status %q", resp.Status), nil)
		}

		if time.Now().After(deadline) {
			return errors.NetworkError("analysis did not reach a terminal state in time", nil).
				WithContext("analysis_id", id)
		}

		select {
		case <-ctx.Done():
			return errors.NetworkError("poll cancelled", ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) fetchResults(ctx context.Context, id string) (*ScanResult, error) {
	body, err := c.doWithRetry(ctx, "fetch results", func(ctx context.Context) ([]byte, error) {
		return c.doCall(ctx, http.MethodGet, "/api/v1/analyses/"+id+"/results", nil)
	})
	if err != nil {
		return nil, err
	}

	var result ScanResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.ServerError("malformed results response", err)
	}
	return &result, nil
}

// doCall performs one HTTP request and classifies the response.
func (c *Client) doCall(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.ValidationError("failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "extscan-runner/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError(method+" "+path+" failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return c.readBounded(resp.Body)
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return nil, classifyStatus(resp, string(msg))
}

// readBounded reads a response body enforcing the size ceiling.
// Exceeding the ceiling is permanent, not retryable.
func (c *Client) readBounded(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, errors.NetworkError("failed to read response body", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, errors.ResponseTooLargeError(
			fmt.Sprintf("response exceeds %d byte limit", c.maxBody), nil)
	}
	return body, nil
}

// classifyStatus maps a non-2xx response to the error taxonomy.
func classifyStatus(resp *http.Response, body string) error {
	status := resp.StatusCode
	switch {
	case status == http.StatusTooManyRequests:
		err := errors.RateLimitedError("analysis service rate limit", nil).
			WithContext("status", status)
		if hint := parseRetryAfter(resp.Header.Get("Retry-After")); hint > 0 {
			err = err.WithRetryAfter(hint)
		}
		return err
	case status >= 500:
		return errors.ServerError(fmt.Sprintf("server error (status %d): %s", status, body), nil).
			WithContext("status", status)
	default:
		return errors.ClientError(fmt.Sprintf("request rejected (status %d): %s", status, body), nil).
			WithContext("status", status)
	}
}

// parseRetryAfter parses the delay-seconds form of a Retry-After header.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// outcomeFromError maps a workflow step failure to an outcome. A 404
// means the service does not know the extension at all.
func outcomeFromError(step string, err error) Outcome {
	if isNotFound(err) {
		return Outcome{Kind: OutcomeNotFound, Reason: "extension not known to analysis service"}
	}
	return Outcome{Kind: OutcomeError, Reason: step + ": " + err.Error()}
}

func isNotFound(err error) bool {
	var scanErr *errors.ScanError
	if !stderrors.As(err, &scanErr) {
		return false
	}
	status, _ := scanErr.Context["status"].(int)
	return scanErr.Type == errors.ErrClient && status == http.StatusNotFound
}
