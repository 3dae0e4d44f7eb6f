package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindServiceUnavailable},
		{http.StatusBadGateway, KindServiceUnavailable},
		{http.StatusRequestTimeout, KindServiceUnavailable},
		{http.StatusBadRequest, KindMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := FromStatus("test", tt.status, 0, errors.New("boom"))
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("call failed: %w", &AuthError{Provider: "test", Err: ErrMissingAPIKey})
	assert.Equal(t, KindAuth, KindOf(err))
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	assert.Equal(t, KindServiceUnavailable, KindOf(errors.New("connection reset")))
	assert.True(t, KindRateLimited.Retryable())
	assert.False(t, KindMalformedResponse.Retryable())
	assert.False(t, KindAuth.Retryable())
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 7*time.Second, ParseRetryAfter("7", now))
	assert.Equal(t, 30*time.Second, ParseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, ParseRetryAfter("", now))
	assert.Zero(t, ParseRetryAfter("-3", now))
	assert.Zero(t, ParseRetryAfter("soon", now))

	err := FromStatus("test", http.StatusTooManyRequests, 2*time.Second, nil)
	assert.Equal(t, 2*time.Second, RetryAfterOf(fmt.Errorf("wrapped: %w", err)))
	assert.Zero(t, RetryAfterOf(errors.New("plain")))
}

func TestFromTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, FromTransport(ctx, "test", context.Canceled), context.Canceled)

	err := FromTransport(context.Background(), "test", context.DeadlineExceeded)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindServiceUnavailable, rerr.Kind)
	assert.Contains(t, err.Error(), "ServiceUnavailable")
}
