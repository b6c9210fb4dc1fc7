package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "loan-funnel/internal/common/errors"
	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/models"
	"loan-funnel/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Helpers
// ==========================

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGate(t *testing.T) (*Gate, *store.MemoryStore, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore()
	f := NewFactory(st, store.NewMemoryTokenStore(clk.Now), Options{
		Clock:  clk.Now,
		Logger: logger.NewTestLogger(t),
	})
	return f.ForSession("sess-1"), st, clk
}

func sampleForm() models.FormData {
	return models.FormData{
		LoanAmount:  25000,
		LoanPurpose: "debt_consolidation",
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		Phone:       "5551234567",
		BirthDate:   "1990-05-17",
		TCPAConsent: true,
	}
}

func decide(t *testing.T, g *Gate, status models.ApplicationStatus) {
	t.Helper()
	_, err := g.Update(context.Background(), "decide", func(rec *models.ApplicationRecord) error {
		rec.Status = status
		rec.SMSVerificationPending = false
		return nil
	})
	require.NoError(t, err)
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (*models.ApplicationRecord, error) {
	return nil, apperrors.NewStoreUnavailableError(errors.New("dial tcp: connection refused"))
}

func (failingStore) Save(context.Context, string, *models.ApplicationRecord) error {
	return apperrors.NewStoreUnavailableError(errors.New("dial tcp: connection refused"))
}

func (failingStore) Delete(context.Context, string) error {
	return apperrors.NewStoreUnavailableError(errors.New("dial tcp: connection refused"))
}

// ==========================
// Empty state
// ==========================

func TestGate_NoApplication(t *testing.T) {
	g, _, _ := newTestGate(t)
	ctx := context.Background()

	rec, err := g.GetApplicationData(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	days, err := g.GetBlockTimeRemaining(ctx)
	require.NoError(t, err)
	assert.Zero(t, days)

	ok, err := g.IsApplicationSuccessful(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.IsApplicationSmsCode(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = g.GetScheduledTime(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	err = g.SetScheduledTime(ctx, time.Now().Truncate(time.Millisecond))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeApplicationNotFound))
}

// ==========================
// Block window
// ==========================

func TestGate_BlockTimeRemaining_Unsuccessful(t *testing.T) {
	g, _, clk := newTestGate(t)
	ctx := context.Background()

	_, err := g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)
	decide(t, g, models.StatusUnsuccessful)

	prev := 31
	for i := 0; i < 40; i++ {
		days, err := g.GetBlockTimeRemaining(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, days, prev)
		if i < 30 {
			assert.Positive(t, days, "day %d", i)
		} else {
			assert.Zero(t, days, "day %d", i)
		}
		prev = days
		clk.Advance(24 * time.Hour)
	}
}

func TestGate_Start_RefusedWhileBlocked(t *testing.T) {
	g, _, clk := newTestGate(t)
	ctx := context.Background()

	_, err := g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)
	decide(t, g, models.StatusUnsuccessful)

	clk.Advance(10 * 24 * time.Hour)
	_, err = g.Start(ctx, "app-2", sampleForm())
	require.Error(t, err)
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeApplicationBlocked, stdErr.Code)
	assert.Equal(t, 20, stdErr.Metadata["daysRemaining"])

	rec, err := g.GetApplicationData(ctx)
	require.NoError(t, err)
	assert.Equal(t, "app-1", rec.ApplicationID)

	clk.Advance(20 * 24 * time.Hour)
	rec, err = g.Start(ctx, "app-3", sampleForm())
	require.NoError(t, err)
	assert.Equal(t, "app-3", rec.ApplicationID)
	assert.Equal(t, models.StatusPending, rec.Status)
}

func TestGate_Start_ReplacesPending(t *testing.T) {
	g, _, _ := newTestGate(t)
	ctx := context.Background()

	_, err := g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)

	form := sampleForm()
	form.LoanAmount = 5000
	rec, err := g.Start(ctx, "app-2", form)
	require.NoError(t, err)
	assert.Equal(t, float64(5000), rec.FormData.LoanAmount)
}

// ==========================
// Verification flags
// ==========================

func TestGate_SmsCodeAndSuccess(t *testing.T) {
	g, _, _ := newTestGate(t)
	ctx := context.Background()

	_, err := g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)

	pending, err := g.IsApplicationSmsCode(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	decide(t, g, models.StatusSuccessful)

	pending, err = g.IsApplicationSmsCode(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	ok, err := g.IsApplicationSuccessful(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

// ==========================
// Scheduling
// ==========================

func TestGate_ScheduledTime_RoundTrip(t *testing.T) {
	g, _, clk := newTestGate(t)
	ctx := context.Background()

	_, err := g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)

	want := clk.now.Add(26*time.Hour + 15*time.Minute + 250*time.Millisecond)
	require.NoError(t, g.SetScheduledTime(ctx, want))

	got, ok, err := g.GetScheduledTime(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, want.Equal(got), "want %s got %s", want, got)
}

func TestGate_ScheduledTime_SubMillisecondRejected(t *testing.T) {
	g, _, clk := newTestGate(t)
	ctx := context.Background()

	_, err := g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)

	at := clk.now.Add(26*time.Hour + 123456789*time.Nanosecond)
	err = g.SetScheduledTime(ctx, at)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeScheduleInvalid))

	_, ok, err := g.GetScheduledTime(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// whole milliseconds round-trip exactly
	at = at.Truncate(time.Millisecond)
	require.NoError(t, g.SetScheduledTime(ctx, at))
	got, ok, err := g.GetScheduledTime(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(got), "want %s got %s", at, got)
}

func TestGate_ScheduledTime_MustFollowTimestamp(t *testing.T) {
	g, _, clk := newTestGate(t)
	ctx := context.Background()

	_, err := g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)

	for _, at := range []time.Time{clk.now, clk.now.Add(-time.Hour)} {
		err := g.SetScheduledTime(ctx, at)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeScheduleInvalid))
	}

	_, ok, err := g.GetScheduledTime(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ==========================
// ClearAll and reset
// ==========================

func TestGate_ClearAll(t *testing.T) {
	g, _, _ := newTestGate(t)
	ctx := context.Background()

	_, err := g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)

	require.NoError(t, g.ClearAll(ctx))

	pending, err := g.IsApplicationSmsCode(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	rec, err := g.GetApplicationData(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGate_TwoStepReset(t *testing.T) {
	g, _, clk := newTestGate(t)
	ctx := context.Background()

	_, err := g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)
	decide(t, g, models.StatusSuccessful)

	err = g.ConfirmReset(ctx, "anything")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResetNotConfirmed))

	token, err := g.BeginReset(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	rec, err := g.GetApplicationData(ctx)
	require.NoError(t, err)
	assert.NotNil(t, rec, "first step must not clear")

	err = g.ConfirmReset(ctx, "wrong-token")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResetNotConfirmed))

	require.NoError(t, g.ConfirmReset(ctx, token))
	rec, err = g.GetApplicationData(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	err = g.ConfirmReset(ctx, token)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResetNotConfirmed), "token is single use")

	_, err = g.Start(ctx, "app-2", sampleForm())
	require.NoError(t, err)
	token, err = g.BeginReset(ctx)
	require.NoError(t, err)
	clk.Advance(6 * time.Minute)
	err = g.ConfirmReset(ctx, token)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResetNotConfirmed), "token expires")
}

// ==========================
// Store failures and isolation
// ==========================

func TestGate_StoreFailuresSurface(t *testing.T) {
	f := NewFactory(failingStore{}, store.NewMemoryTokenStore(nil), Options{Logger: logger.NewNoOpLogger()})
	g := f.ForSession("sess-1")
	ctx := context.Background()

	_, err := g.GetApplicationData(ctx)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))

	_, err = g.GetBlockTimeRemaining(ctx)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))

	_, err = g.Start(ctx, "app-1", sampleForm())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))

	assert.Error(t, g.ClearAll(ctx))
}

func TestGate_RedisBackedSessionsAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	keys := store.Keys{Prefix: "funnel"}
	f := NewFactory(
		store.NewRedisStore(client, keys, models.DefaultBlockWindow, logger.NewNoOpLogger()),
		store.NewRedisTokenStore(client),
		Options{Keys: keys, Logger: logger.NewNoOpLogger()},
	)
	ctx := context.Background()

	a := f.ForSession("a")
	b := f.ForSession("b")

	_, err := a.Start(ctx, "app-a", sampleForm())
	require.NoError(t, err)

	rec, err := b.GetApplicationData(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, mr.Set("funnel:application:b", "corrupt"))
	rec, err = b.GetApplicationData(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, a.ClearAll(ctx))
	assert.False(t, mr.Exists("funnel:application:a"))
	assert.True(t, mr.Exists("funnel:application:b"))
}

func TestGate_OnOperationHook(t *testing.T) {
	var ops []string
	var failures int
	f := NewFactory(store.NewMemoryStore(), store.NewMemoryTokenStore(nil), Options{
		Logger: logger.NewNoOpLogger(),
		OnOperation: func(_ context.Context, op string, err error) {
			ops = append(ops, op)
			if err != nil {
				failures++
			}
		},
	})
	g := f.ForSession("sess-1")
	ctx := context.Background()

	_, err := g.Update(ctx, "SetScheduledTime", func(*models.ApplicationRecord) error { return nil })
	require.Error(t, err)

	_, err = g.Start(ctx, "app-1", sampleForm())
	require.NoError(t, err)

	assert.Equal(t, []string{"SetScheduledTime", "GetApplicationData", "Start"}, ops)
	assert.Equal(t, 1, failures)
}
