// internal/common/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeApplicationBlocked  ErrorCode = "APPLICATION_BLOCKED"
	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"

	ErrCodeVerificationNotPending   ErrorCode = "VERIFICATION_NOT_PENDING"
	ErrCodeInvalidVerificationCode  ErrorCode = "INVALID_VERIFICATION_CODE"
	ErrCodeVerificationCodeExpired  ErrorCode = "VERIFICATION_CODE_EXPIRED"
	ErrCodeVerificationCodeMismatch ErrorCode = "VERIFICATION_CODE_MISMATCH"

	ErrCodeScheduleInvalid   ErrorCode = "SCHEDULE_INVALID"
	ErrCodeSchedulerDisabled ErrorCode = "SCHEDULER_DISABLED"

	ErrCodeResetNotConfirmed ErrorCode = "RESET_NOT_CONFIRMED"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeSMSSendFailed    ErrorCode = "SMS_SEND_FAILED"
	ErrCodeSMSRateLimited   ErrorCode = "SMS_RATE_LIMITED"
	ErrCodeExternalService  ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewApplicationBlockedError(daysRemaining int) *StandardError {
	return newError(ErrCodeApplicationBlocked,
		"A previous application is still active",
		fmt.Sprintf("daysRemaining: %d", daysRemaining),
		false,
	).WithMetadata("daysRemaining", daysRemaining)
}

func NewApplicationNotFoundError() *StandardError {
	return newError(ErrCodeApplicationNotFound, "No application in progress", "", false)
}

func NewVerificationNotPendingError() *StandardError {
	return newError(ErrCodeVerificationNotPending, "Phone verification is not pending", "", false)
}

func NewInvalidVerificationCodeError(details string) *StandardError {
	return newError(ErrCodeInvalidVerificationCode, "Verification code must be exactly 6 digits", details, false)
}

func NewVerificationCodeExpiredError() *StandardError {
	return newError(ErrCodeVerificationCodeExpired, "Verification code has expired", "request a new code", false)
}

func NewVerificationCodeMismatchError(attempts int) *StandardError {
	return newError(ErrCodeVerificationCodeMismatch,
		"Verification code is incorrect",
		fmt.Sprintf("attempts: %d", attempts),
		false,
	).WithMetadata("verificationAttempts", attempts)
}

func NewScheduleInvalidError(details string) *StandardError {
	return newError(ErrCodeScheduleInvalid, "Scheduled time is not valid", details, false)
}

func NewSchedulerDisabledError() *StandardError {
	return newError(ErrCodeSchedulerDisabled, "Call scheduling is not available", "", false)
}

func NewResetNotConfirmedError(details string) *StandardError {
	return newError(ErrCodeResetNotConfirmed, "Reset requires confirmation", details, false)
}

func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Submitted data failed validation", details, false)
}

func NewStoreUnavailableError(err error) *StandardError {
	return newError(ErrCodeStoreUnavailable, "Application state store unavailable", err.Error(), true)
}

func NewSMSSendFailedError(err error) *StandardError {
	return newError(ErrCodeSMSSendFailed, "Verification SMS delivery failed", err.Error(), true)
}

func NewSMSRateLimitedError(retryAfter time.Duration) *StandardError {
	seconds := int((retryAfter + time.Second - 1) / time.Second)
	return newError(ErrCodeSMSRateLimited, "A verification code was sent recently",
		fmt.Sprintf("try again in %d seconds", seconds), true).
		WithMetadata("retryAfterSeconds", seconds)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// As extracts a *StandardError from err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

var httpStatusMapping = map[ErrorCode]int{
	ErrCodeApplicationBlocked:       http.StatusConflict,
	ErrCodeApplicationNotFound:      http.StatusNotFound,
	ErrCodeVerificationNotPending:   http.StatusConflict,
	ErrCodeInvalidVerificationCode:  http.StatusBadRequest,
	ErrCodeVerificationCodeExpired:  http.StatusGone,
	ErrCodeVerificationCodeMismatch: http.StatusUnprocessableEntity,
	ErrCodeScheduleInvalid:          http.StatusBadRequest,
	ErrCodeSchedulerDisabled:        http.StatusNotFound,
	ErrCodeResetNotConfirmed:        http.StatusPreconditionFailed,
	ErrCodeValidationFailed:         http.StatusBadRequest,
	ErrCodeStoreUnavailable:         http.StatusServiceUnavailable,
	ErrCodeSMSSendFailed:            http.StatusBadGateway,
	ErrCodeSMSRateLimited:           http.StatusTooManyRequests,
	ErrCodeExternalService:          http.StatusBadGateway,
	ErrCodeTimeout:                  http.StatusGatewayTimeout,
}

// HTTPStatus maps an error code to the response status of the funnel API.
func HTTPStatus(code ErrorCode) int {
	if status, ok := httpStatusMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "APPLICATION") || strings.Contains(codeStr, "RESET"):
		return "GATE"
	case strings.Contains(codeStr, "VERIFICATION") || strings.Contains(codeStr, "SMS"):
		return "VERIFICATION"
	case strings.Contains(codeStr, "SCHEDULE"):
		return "SCHEDULING"
	case strings.Contains(codeStr, "STORE"):
		return "STORAGE"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
