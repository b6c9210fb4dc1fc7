// internal/models/application.go
package models

import "time"

// ApplicationStatus is the lifecycle state of a loan application.
type ApplicationStatus string

const (
	StatusPending      ApplicationStatus = "pending"
	StatusSuccessful   ApplicationStatus = "successful"
	StatusUnsuccessful ApplicationStatus = "unsuccessful"
)

// Valid reports whether s is one of the known statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSuccessful, StatusUnsuccessful:
		return true
	}
	return false
}

// DefaultBlockWindow is the re-application block applied after a decision.
const DefaultBlockWindow = 30 * 24 * time.Hour

const day = 24 * time.Hour

// FormData holds the fields collected by the multi-step form.
type FormData struct {
	LoanAmount       float64 `json:"loanAmount"`
	LoanPurpose      string  `json:"loanPurpose"`
	EmploymentStatus string  `json:"employmentStatus,omitempty"`
	PropertyStatus   string  `json:"propertyStatus,omitempty"`
	EducationLevel   string  `json:"educationLevel,omitempty"`
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	BirthDate        string  `json:"birthDate"` // YYYY-MM-DD
	SMSCode          string  `json:"smsCode,omitempty"`
	PromoSMSConsent  bool    `json:"promoSmsConsent"`
	TCPAConsent      bool    `json:"tcpaConsent"`
}

// ApplicationRecord is the single per-session record read by the gate.
type ApplicationRecord struct {
	ApplicationID          string            `json:"applicationId"`
	Timestamp              int64             `json:"timestamp"` // epoch milliseconds
	Status                 ApplicationStatus `json:"status"`
	FormData               FormData          `json:"formData"`
	ScheduledTime          *int64            `json:"scheduledTime,omitempty"` // epoch milliseconds
	SMSVerificationPending bool              `json:"smsVerificationPending"`
	VerificationAttempts   int               `json:"verificationAttempts"`
	ManualVerification     bool              `json:"manualVerification"`
}

// NewApplicationRecord starts a pending record awaiting phone verification.
func NewApplicationRecord(id string, form FormData, now time.Time) *ApplicationRecord {
	return &ApplicationRecord{
		ApplicationID:          id,
		Timestamp:              now.UnixMilli(),
		Status:                 StatusPending,
		FormData:               form,
		SMSVerificationPending: true,
	}
}

// Valid reports whether a decoded record is usable. Anything else is treated
// as no application.
func (r *ApplicationRecord) Valid() bool {
	return r != nil && r.Timestamp > 0 && r.Status.Valid()
}

func (r *ApplicationRecord) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// BlockExpiresAt is the end of the block window that started at Timestamp.
func (r *ApplicationRecord) BlockExpiresAt(window time.Duration) time.Time {
	return r.CreatedAt().Add(window)
}

// DaysRemaining is ceil((Timestamp+window-now)/1 day), floored at 0.
func (r *ApplicationRecord) DaysRemaining(now time.Time, window time.Duration) int {
	remaining := r.Timestamp + window.Milliseconds() - now.UnixMilli()
	if remaining <= 0 {
		return 0
	}
	dayMs := day.Milliseconds()
	return int((remaining + dayMs - 1) / dayMs)
}

// Blocked reports whether a decided application still refuses new submissions.
func (r *ApplicationRecord) Blocked(now time.Time, window time.Duration) bool {
	return r.Status != StatusPending && r.DaysRemaining(now, window) > 0
}

// ScheduledAt returns the callback appointment, if any.
func (r *ApplicationRecord) ScheduledAt() (time.Time, bool) {
	if r.ScheduledTime == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*r.ScheduledTime), true
}
