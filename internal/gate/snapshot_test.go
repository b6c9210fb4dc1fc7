package gate

import (
	"testing"
	"time"

	"loan-funnel/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * 24 * time.Hour).UnixMilli()
	expired := now.Add(-40 * 24 * time.Hour).UnixMilli()
	scheduled := now.Add(24 * time.Hour).UnixMilli()

	tests := []struct {
		name      string
		rec       *models.ApplicationRecord
		wantRoute Route
		wantDays  int
	}{
		{
			name:      "no record",
			rec:       nil,
			wantRoute: RouteStart,
		},
		{
			name:      "awaiting sms",
			rec:       &models.ApplicationRecord{Timestamp: recent, Status: models.StatusPending, SMSVerificationPending: true},
			wantRoute: RouteVerify,
			wantDays:  28,
		},
		{
			name:      "manual verification",
			rec:       &models.ApplicationRecord{Timestamp: recent, Status: models.StatusPending, ManualVerification: true},
			wantRoute: RouteManual,
			wantDays:  28,
		},
		{
			name:      "unsuccessful inside window",
			rec:       &models.ApplicationRecord{Timestamp: recent, Status: models.StatusUnsuccessful},
			wantRoute: RouteBlocked,
			wantDays:  28,
		},
		{
			name:      "successful inside window",
			rec:       &models.ApplicationRecord{Timestamp: recent, Status: models.StatusSuccessful, ScheduledTime: &scheduled},
			wantRoute: RouteBlocked,
			wantDays:  28,
		},
		{
			name:      "unsuccessful after window",
			rec:       &models.ApplicationRecord{Timestamp: expired, Status: models.StatusUnsuccessful},
			wantRoute: RouteStart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Derive(tt.rec, now, models.DefaultBlockWindow)
			assert.Equal(t, tt.wantRoute, snap.Route)
			assert.Equal(t, tt.wantDays, snap.DaysRemaining)
			assert.Equal(t, tt.wantRoute == RouteBlocked, snap.Blocked)
			assert.True(t, now.Equal(snap.At))
		})
	}
}

func TestDerive_ScheduledTime(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	scheduled := now.Add(3 * time.Hour).UnixMilli()
	rec := &models.ApplicationRecord{Timestamp: now.UnixMilli(), Status: models.StatusSuccessful, ScheduledTime: &scheduled}

	snap := Derive(rec, now, models.DefaultBlockWindow)
	if assert.NotNil(t, snap.ScheduledTime) {
		assert.True(t, snap.ScheduledTime.Equal(now.Add(3*time.Hour)))
	}
	assert.True(t, snap.Successful)
	assert.False(t, snap.SMSPending)
}
