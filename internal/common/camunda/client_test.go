package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "loan-funnel/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetryClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	}}
}

func TestExecuteWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantCode  apperrors.ErrorCode
	}{
		{
			name:      "succeeds first time",
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:      "recovers after transient failure",
			errs:      []error{errors.New("rpc error: code = Unavailable"), nil},
			wantCalls: 2,
		},
		{
			name:      "non retryable fails fast",
			errs:      []error{errors.New("rpc error: code = NotFound desc = process not found")},
			wantCalls: 1,
			wantCode:  apperrors.ErrCodeExternalService,
		},
		{
			name: "exhausts retries on timeout",
			errs: []error{
				errors.New("deadline exceeded"),
				errors.New("deadline exceeded"),
				errors.New("deadline exceeded"),
			},
			wantCalls: 3,
			wantCode:  apperrors.ErrCodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRetryClient(2)
			calls := 0

			result, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
				err := tt.errs[calls]
				calls++
				if err != nil {
					return nil, err
				}
				return "ok", nil
			}, "test-op")

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "ok", result)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), err.Error())
		})
	}
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	c := &Client{config: &ClientConfig{RetryConfig: &RetryConfig{
		MaxRetries: 5,
		BaseDelay:  time.Hour,
		MaxDelay:   time.Hour,
	}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
		return nil, errors.New("connection refused")
	}, "test-op")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryableZeebeError(errors.New("code = RESOURCE_EXHAUSTED")))
	assert.False(t, isRetryableZeebeError(errors.New("invalid argument")))
}
