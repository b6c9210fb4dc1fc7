// Package gate derives what step of the funnel a session may access from its
// stored application record.
package gate

import (
	"context"
	"fmt"
	"time"

	apperrors "loan-funnel/internal/common/errors"
	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/common/observability"
	"loan-funnel/internal/models"
	"loan-funnel/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

// Route names the funnel step a session should be sent to.
type Route string

const (
	RouteStart   Route = "start"
	RouteVerify  Route = "verify"
	RouteManual  Route = "manual"
	RouteBlocked Route = "blocked"
)

type Options struct {
	BlockWindow   time.Duration
	ResetTokenTTL time.Duration
	Keys          store.Keys
	Clock         func() time.Time
	Tracer        *observability.Tracer
	Logger        logger.Logger

	// OnOperation, when set, is called after every traced gate operation.
	OnOperation func(ctx context.Context, op string, err error)
}

// Factory hands out session-bound gates over a shared store.
type Factory struct {
	store  store.Store
	tokens store.TokenStore
	opts   Options
	log    logger.Logger
}

func NewFactory(st store.Store, tokens store.TokenStore, opts Options) *Factory {
	if opts.BlockWindow <= 0 {
		opts.BlockWindow = models.DefaultBlockWindow
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 5 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Factory{
		store:  st,
		tokens: tokens,
		opts:   opts,
		log:    logger.ForComponent(opts.Logger, "gate"),
	}
}

func (f *Factory) ForSession(sessionID string) *Gate {
	return &Gate{
		factory:   f,
		sessionID: sessionID,
		log:       f.log.WithFields(map[string]interface{}{"sessionId": sessionID}),
	}
}

// Gate is the Application State Gate for one session.
type Gate struct {
	factory   *Factory
	sessionID string
	log       logger.Logger
}

func (g *Gate) now() time.Time {
	return g.factory.opts.Clock()
}

func (g *Gate) window() time.Duration {
	return g.factory.opts.BlockWindow
}

func (g *Gate) trace(ctx context.Context, op string, fn func(context.Context) error) error {
	err := g.factory.opts.Tracer.Trace(ctx, "gate."+op, fn, attribute.String("session.id", g.sessionID))
	if hook := g.factory.opts.OnOperation; hook != nil {
		hook(ctx, op, err)
	}
	return err
}

// GetApplicationData returns the current record, or nil when there is none.
func (g *Gate) GetApplicationData(ctx context.Context) (*models.ApplicationRecord, error) {
	var rec *models.ApplicationRecord
	err := g.trace(ctx, "GetApplicationData", func(ctx context.Context) error {
		var err error
		rec, err = g.factory.store.Load(ctx, g.sessionID)
		return err
	})
	return rec, err
}

// GetBlockTimeRemaining returns whole days left in the block window, 0 without a record.
func (g *Gate) GetBlockTimeRemaining(ctx context.Context) (int, error) {
	rec, err := g.GetApplicationData(ctx)
	if err != nil || rec == nil {
		return 0, err
	}
	return rec.DaysRemaining(g.now(), g.window()), nil
}

func (g *Gate) IsApplicationSuccessful(ctx context.Context) (bool, error) {
	rec, err := g.GetApplicationData(ctx)
	if err != nil || rec == nil {
		return false, err
	}
	return rec.Status == models.StatusSuccessful, nil
}

// IsApplicationSmsCode reports whether phone verification is outstanding.
func (g *Gate) IsApplicationSmsCode(ctx context.Context) (bool, error) {
	rec, err := g.GetApplicationData(ctx)
	if err != nil || rec == nil {
		return false, err
	}
	return rec.Status == models.StatusPending && rec.SMSVerificationPending, nil
}

// SetScheduledTime stores a callback appointment. The record keeps epoch
// milliseconds, so t must be a whole millisecond; it must also be strictly
// after the application timestamp.
func (g *Gate) SetScheduledTime(ctx context.Context, t time.Time) error {
	if t.Nanosecond()%int(time.Millisecond) != 0 {
		return apperrors.NewScheduleInvalidError(
			fmt.Sprintf("scheduled time %s has sub-millisecond precision", t.UTC().Format(time.RFC3339Nano)))
	}
	_, err := g.Update(ctx, "SetScheduledTime", func(rec *models.ApplicationRecord) error {
		ms := t.UnixMilli()
		if ms <= rec.Timestamp {
			return apperrors.NewScheduleInvalidError(
				fmt.Sprintf("scheduled time %s is not after application time %s",
					t.UTC().Format(time.RFC3339), rec.CreatedAt().UTC().Format(time.RFC3339)))
		}
		rec.ScheduledTime = &ms
		return nil
	})
	return err
}

// GetScheduledTime returns the stored appointment; ok is false when none is set.
func (g *Gate) GetScheduledTime(ctx context.Context) (time.Time, bool, error) {
	rec, err := g.GetApplicationData(ctx)
	if err != nil || rec == nil {
		return time.Time{}, false, err
	}
	t, ok := rec.ScheduledAt()
	return t, ok, nil
}

// ClearAll wipes the session's record. Callers reach it through ConfirmReset.
func (g *Gate) ClearAll(ctx context.Context) error {
	err := g.trace(ctx, "ClearAll", func(ctx context.Context) error {
		return g.factory.store.Delete(ctx, g.sessionID)
	})
	if err == nil {
		g.log.Info("application state cleared", nil)
	}
	return err
}

// Start records a new submission. It is refused while a decided application
// is inside its block window; an undecided or expired record is replaced.
func (g *Gate) Start(ctx context.Context, applicationID string, form models.FormData) (*models.ApplicationRecord, error) {
	existing, err := g.GetApplicationData(ctx)
	if err != nil {
		return nil, err
	}

	now := g.now()
	if existing != nil && existing.Blocked(now, g.window()) {
		days := existing.DaysRemaining(now, g.window())
		g.log.Warn("submission refused inside block window", map[string]interface{}{
			"status":        string(existing.Status),
			"daysRemaining": days,
		})
		return nil, apperrors.NewApplicationBlockedError(days)
	}

	rec := models.NewApplicationRecord(applicationID, form, now)
	err = g.trace(ctx, "Start", func(ctx context.Context) error {
		return g.factory.store.Save(ctx, g.sessionID, rec)
	})
	if err != nil {
		return nil, err
	}

	g.log.Info("application started", map[string]interface{}{
		"applicationId": applicationID,
		"replaced":      existing != nil,
	})
	return rec, nil
}

// Update applies fn to the stored record and saves it when fn succeeds.
func (g *Gate) Update(ctx context.Context, op string, fn func(rec *models.ApplicationRecord) error) (*models.ApplicationRecord, error) {
	var rec *models.ApplicationRecord
	err := g.trace(ctx, op, func(ctx context.Context) error {
		var err error
		rec, err = g.factory.store.Load(ctx, g.sessionID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperrors.NewApplicationNotFoundError()
		}
		if err := fn(rec); err != nil {
			return err
		}
		return g.factory.store.Save(ctx, g.sessionID, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
