package gate

import (
	"context"
	"time"

	"loan-funnel/internal/models"
)

// Snapshot is everything the funnel UI derives from the record in one read.
type Snapshot struct {
	Record        *models.ApplicationRecord `json:"record"`
	Route         Route                     `json:"route"`
	Blocked       bool                      `json:"blocked"`
	DaysRemaining int                       `json:"daysRemaining"`
	Successful    bool                      `json:"successful"`
	SMSPending    bool                      `json:"smsPending"`
	ScheduledTime *time.Time                `json:"scheduledTime,omitempty"`

	// At is the gate clock reading the snapshot was derived at.
	At time.Time `json:"-"`
}

func (g *Gate) Snapshot(ctx context.Context) (*Snapshot, error) {
	rec, err := g.GetApplicationData(ctx)
	if err != nil {
		return nil, err
	}
	return Derive(rec, g.now(), g.window()), nil
}

// Derive computes a Snapshot without touching the store.
func Derive(rec *models.ApplicationRecord, now time.Time, window time.Duration) *Snapshot {
	snap := &Snapshot{Record: rec, Route: RouteStart, At: now}
	if rec == nil {
		return snap
	}

	snap.DaysRemaining = rec.DaysRemaining(now, window)
	snap.Blocked = rec.Blocked(now, window)
	snap.Successful = rec.Status == models.StatusSuccessful
	snap.SMSPending = rec.Status == models.StatusPending && rec.SMSVerificationPending
	if t, ok := rec.ScheduledAt(); ok {
		snap.ScheduledTime = &t
	}

	switch {
	case snap.Blocked:
		snap.Route = RouteBlocked
	case snap.SMSPending:
		snap.Route = RouteVerify
	case rec.Status == models.StatusPending && rec.ManualVerification:
		snap.Route = RouteManual
	}
	return snap
}
