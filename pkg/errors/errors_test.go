// Package errors tests
package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormat(t *testing.T) {
	err := ServerError("poll failed", fmt.Errorf("status 503"))
	assert.Equal(t, "[SERVER] poll failed: status 503", err.Error())

	bare := ClientError("analysis not found", nil)
	assert.Equal(t, "[CLIENT] analysis not found", bare.Error())
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NetworkError("submit failed", cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", NetworkError("timeout", nil), true},
		{"rate limited", RateLimitedError("throttled", nil), true},
		{"server", ServerError("internal error", nil), true},
		{"client", ClientError("not found", nil), false},
		{"integrity", IntegrityError("bad signature", nil), false},
		{"too large", ResponseTooLargeError("body exceeds limit", nil), false},
		{"store", StoreError("unopenable", nil), false},
		{"plain error", fmt.Errorf("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsType(t *testing.T) {
	err := RateLimitedError("throttled", nil)
	assert.True(t, IsType(err, ErrRateLimited))
	assert.False(t, IsType(err, ErrServer))
	assert.False(t, IsType(nil, ErrServer))

	// Wrapped errors still classify
	wrapped := fmt.Errorf("call failed: %w", err)
	assert.True(t, IsType(wrapped, ErrRateLimited))
}

func TestRetryAfterHint(t *testing.T) {
	err := RateLimitedError("throttled", nil).WithRetryAfter(7 * time.Second)
	assert.Equal(t, 7*time.Second, RetryAfterHint(err))
	assert.Equal(t, time.Duration(0), RetryAfterHint(ServerError("boom", nil)))
	assert.Equal(t, time.Duration(0), RetryAfterHint(fmt.Errorf("plain")))
}

func TestWithContext(t *testing.T) {
	err := ServerError("fetch failed", nil).
		WithContext("publisher", "example").
		WithContext("attempt", 2)
	assert.Equal(t, "example", err.Context["publisher"])
	assert.Equal(t, 2, err.Context["attempt"])
}
