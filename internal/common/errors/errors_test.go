package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	errors []string
	warns  []string
}

func (l *captureLogger) Error(msg string, _ map[string]interface{}) { l.errors = append(l.errors, msg) }
func (l *captureLogger) Warn(msg string, _ map[string]interface{})  { l.warns = append(l.warns, msg) }

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeApplicationBlocked, http.StatusConflict},
		{ErrCodeInvalidVerificationCode, http.StatusBadRequest},
		{ErrCodeVerificationCodeExpired, http.StatusGone},
		{ErrCodeStoreUnavailable, http.StatusServiceUnavailable},
		{ErrCodeSchedulerDisabled, http.StatusNotFound},
		{ErrCodeSMSRateLimited, http.StatusTooManyRequests},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestNewSMSRateLimitedError(t *testing.T) {
	err := NewSMSRateLimitedError(1500 * time.Millisecond)
	assert.Equal(t, ErrCodeSMSRateLimited, err.Code)
	assert.True(t, err.Retryable)
	assert.Equal(t, 2, err.Metadata["retryAfterSeconds"])
	assert.Equal(t, "VERIFICATION", GetErrorCategory(err.Code))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "GATE", GetErrorCategory(ErrCodeApplicationBlocked))
	assert.Equal(t, "GATE", GetErrorCategory(ErrCodeResetNotConfirmed))
	assert.Equal(t, "VERIFICATION", GetErrorCategory(ErrCodeVerificationCodeMismatch))
	assert.Equal(t, "VERIFICATION", GetErrorCategory(ErrCodeSMSSendFailed))
	assert.Equal(t, "SCHEDULING", GetErrorCategory(ErrCodeScheduleInvalid))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeStoreUnavailable))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestAsAndHasCode_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewApplicationBlockedError(12))

	stdErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeApplicationBlocked, stdErr.Code)
	assert.Equal(t, 12, stdErr.Metadata["daysRemaining"])
	assert.True(t, HasCode(wrapped, ErrCodeApplicationBlocked))
	assert.False(t, HasCode(wrapped, ErrCodeInternal))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, Normalize(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrCodeInternal, Normalize(fmt.Errorf("plain")).Code)

	blocked := NewApplicationBlockedError(3)
	assert.Same(t, blocked, Normalize(blocked))
}

func TestErrorHandler_Respond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantError  bool
	}{
		{
			name:       "client error logged as warning",
			err:        NewInvalidVerificationCodeError("12a456"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_VERIFICATION_CODE",
		},
		{
			name:       "server error logged as error",
			err:        fmt.Errorf("redis: %w", NewStoreUnavailableError(fmt.Errorf("dial tcp"))),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "STORE_UNAVAILABLE",
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &captureLogger{}
			h := NewErrorHandler(log)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.Respond(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.True(t, c.IsAborted())

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)

			if tt.wantError {
				assert.Len(t, log.errors, 1)
			} else {
				assert.Len(t, log.warns, 1)
			}
		})
	}
}
