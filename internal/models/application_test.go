package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysRemaining(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &ApplicationRecord{Timestamp: created.UnixMilli(), Status: StatusUnsuccessful}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"at creation", created, 30},
		{"one ms later rounds up", created.Add(time.Millisecond), 30},
		{"exactly one day later", created.Add(24 * time.Hour), 29},
		{"one ms before expiry", created.Add(DefaultBlockWindow - time.Millisecond), 1},
		{"at expiry", created.Add(DefaultBlockWindow), 0},
		{"long after expiry", created.Add(90 * 24 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rec.DaysRemaining(tt.now, DefaultBlockWindow))
		})
	}
}

func TestDaysRemaining_MonotonicNonIncreasing(t *testing.T) {
	created := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	rec := &ApplicationRecord{Timestamp: created.UnixMilli(), Status: StatusUnsuccessful}

	prev := rec.DaysRemaining(created, DefaultBlockWindow)
	for now := created; now.Before(created.Add(32 * 24 * time.Hour)); now = now.Add(7 * time.Hour) {
		got := rec.DaysRemaining(now, DefaultBlockWindow)
		assert.LessOrEqual(t, got, prev)
		if now.Before(created.Add(DefaultBlockWindow)) {
			assert.Positive(t, got)
		} else {
			assert.Zero(t, got)
		}
		prev = got
	}
}

func TestBlocked(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-5 * 24 * time.Hour).UnixMilli()
	old := now.Add(-31 * 24 * time.Hour).UnixMilli()

	assert.True(t, (&ApplicationRecord{Timestamp: recent, Status: StatusUnsuccessful}).Blocked(now, DefaultBlockWindow))
	assert.True(t, (&ApplicationRecord{Timestamp: recent, Status: StatusSuccessful}).Blocked(now, DefaultBlockWindow))
	assert.False(t, (&ApplicationRecord{Timestamp: recent, Status: StatusPending}).Blocked(now, DefaultBlockWindow))
	assert.False(t, (&ApplicationRecord{Timestamp: old, Status: StatusUnsuccessful}).Blocked(now, DefaultBlockWindow))
}

func TestValid(t *testing.T) {
	var nilRec *ApplicationRecord
	assert.False(t, nilRec.Valid())
	assert.False(t, (&ApplicationRecord{Status: StatusPending}).Valid())
	assert.False(t, (&ApplicationRecord{Timestamp: 1, Status: "archived"}).Valid())
	assert.True(t, (&ApplicationRecord{Timestamp: 1, Status: StatusSuccessful}).Valid())
}

func TestNewApplicationRecord_JSONShape(t *testing.T) {
	now := time.UnixMilli(1709294400000)
	rec := NewApplicationRecord("app-1", FormData{LoanAmount: 25000, LoanPurpose: "emergency", PromoSMSConsent: true}, now)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "pending", decoded["status"])
	assert.Equal(t, float64(1709294400000), decoded["timestamp"])
	assert.Equal(t, true, decoded["smsVerificationPending"])
	assert.NotContains(t, decoded, "scheduledTime")

	form := decoded["formData"].(map[string]interface{})
	assert.Equal(t, true, form["promoSmsConsent"])
	assert.Equal(t, float64(25000), form["loanAmount"])

	_, ok := rec.ScheduledAt()
	assert.False(t, ok)
}
