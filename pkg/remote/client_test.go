// Package remote tests
package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
)

// fastOptions keeps backoff and polling delays test-sized.
func fastOptions(baseURL string) Options {
	return Options{
		BaseURL:      baseURL,
		MaxAttempts:  3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		PollInterval: time.Millisecond,
		PollBudget:   time.Second,
	}
}

// analysisServer simulates the three-step remote workflow.
type analysisServer struct {
	submitFailures atomic.Int32 // 500s to serve before accepting a submit
	result         ScanResult
	failAnalysis   bool
	pollsToRunning int32
	polls          atomic.Int32
}

func (s *analysisServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/analyses", func(w http.ResponseWriter, r *http.Request) {
		if s.submitFailures.Add(-1) >= 0 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(submitResponse{AnalysisID: "an-1"})
	})
	mux.HandleFunc("GET /api/v1/analyses/an-1", func(w http.ResponseWriter, r *http.Request) {
		status := statusComplete
		if s.polls.Add(1) <= s.pollsToRunning {
			status = statusRunning
		}
		if s.failAnalysis {
			status = statusFailed
		}
		_ = json.NewEncoder(w).Encode(statusResponse{AnalysisID: "an-1", Status: status})
	})
	mux.HandleFunc("GET /api/v1/analyses/an-1/results", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(s.result)
	})
	return mux
}

func TestScanSuccess(t *testing.T) {
	backend := &analysisServer{
		result:         ScanResult{ExtensionID: "example.tool", RiskLevel: RiskLow, SecurityScore: 87},
		pollsToRunning: 2,
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := NewClient(fastOptions(srv.URL), observability.Nop())
	outcome := client.Scan(context.Background(), "example", "tool")

	require.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "example.tool", outcome.Result.ExtensionID)
	assert.Equal(t, RiskLow, outcome.Result.RiskLevel)
	assert.GreaterOrEqual(t, backend.polls.Load(), int32(3), "should poll through non-terminal states")
}

func TestRetryAccounting(t *testing.T) {
	backend := &analysisServer{result: ScanResult{ExtensionID: "example.tool"}}
	backend.submitFailures.Store(2) // fail twice, succeed on the third attempt
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := NewClient(fastOptions(srv.URL), observability.Nop())
	outcome := client.Scan(context.Background(), "example", "tool")

	require.Equal(t, OutcomeSuccess, outcome.Kind, "caller receives the result, not an error")

	stats := client.RetryStats()
	assert.Equal(t, int64(2), stats.TotalRetries)
	assert.Equal(t, int64(1), stats.SuccessfulRetries)
	assert.Equal(t, int64(0), stats.FailedAfterRetries)
}

func TestRetryExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "still broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(fastOptions(srv.URL), observability.Nop())
	outcome := client.Scan(context.Background(), "example", "tool")

	require.Equal(t, OutcomeError, outcome.Kind)
	assert.Contains(t, outcome.Reason, "submit")

	stats := client.RetryStats()
	assert.Equal(t, int64(2), stats.TotalRetries)
	assert.Equal(t, int64(1), stats.FailedAfterRetries)
}

func TestNotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such extension", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(fastOptions(srv.URL), observability.Nop())
	outcome := client.Scan(context.Background(), "example", "ghost")

	assert.Equal(t, OutcomeNotFound, outcome.Kind)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not retry")
	assert.Equal(t, int64(0), client.RetryStats().TotalRetries)
}

func TestAnalysisFailedState(t *testing.T) {
	backend := &analysisServer{failAnalysis: true}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := NewClient(fastOptions(srv.URL), observability.Nop())
	outcome := client.Scan(context.Background(), "example", "tool")

	require.Equal(t, OutcomeError, outcome.Kind)
	assert.Contains(t, outcome.Reason, "poll")
}

func TestResponseSizeCeiling(t *testing.T) {
	backend := &analysisServer{}
	mux := http.NewServeMux()
	mux.Handle("/", backend.handler())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/results") {
			_, _ = w.Write([]byte(strings.Repeat("x", 512)))
			return
		}
		mux.ServeHTTP(w, r)
	}))
	defer srv.Close()

	opts := fastOptions(srv.URL)
	opts.MaxResponseBytes = 128
	client := NewClient(opts, observability.Nop())

	outcome := client.Scan(context.Background(), "example", "tool")
	require.Equal(t, OutcomeError, outcome.Kind)
	assert.Contains(t, outcome.Reason, "128 byte limit")
	assert.Equal(t, int64(0), client.RetryStats().TotalRetries, "oversized response must not retry")
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		wantType   errors.ErrorType
		wantHint   time.Duration
	}{
		{"rate limited with hint", 429, "7", errors.ErrRateLimited, 7 * time.Second},
		{"rate limited without hint", 429, "", errors.ErrRateLimited, 0},
		{"rate limited with bad hint", 429, "soon", errors.ErrRateLimited, 0},
		{"server error", 503, "", errors.ErrServer, 0},
		{"client error", 403, "", errors.ErrClient, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			if tt.retryAfter != "" {
				resp.Header.Set("Retry-After", tt.retryAfter)
			}

			err := classifyStatus(resp, "body")
			assert.True(t, errors.IsType(err, tt.wantType))
			assert.Equal(t, tt.wantHint, errors.RetryAfterHint(err))
		})
	}
}

func TestRetryAfterOverridesBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(submitResponse{AnalysisID: "an-1"})
	}))
	defer srv.Close()

	client := NewClient(fastOptions(srv.URL), observability.Nop())

	start := time.Now()
	_, err := client.submit(context.Background(), "example", "tool")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), time.Second,
		"Retry-After hint should override the millisecond backoff")
}

func TestConnectionFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening

	opts := fastOptions(srv.URL)
	opts.MaxAttempts = 2
	client := NewClient(opts, observability.Nop())

	outcome := client.Scan(context.Background(), "example", "tool")
	assert.Equal(t, OutcomeError, outcome.Kind)
	assert.Equal(t, int64(1), client.RetryStats().TotalRetries)
}
