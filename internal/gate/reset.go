package gate

import (
	"context"
	"crypto/subtle"

	apperrors "loan-funnel/internal/common/errors"

	"github.com/google/uuid"
)

// ResetWarning is shown between the two reset steps.
const ResetWarning = "Starting a new application before the waiting period expires may result in " +
	"delays or complications with your existing application. Are you sure you want to proceed?"

// BeginReset is the first reset step. It issues a one-time token that
// ConfirmReset must present.
func (g *Gate) BeginReset(ctx context.Context) (string, error) {
	token := uuid.NewString()
	key := g.factory.opts.Keys.ResetToken(g.sessionID)

	if err := g.factory.tokens.Put(ctx, key, token, g.factory.opts.ResetTokenTTL); err != nil {
		return "", err
	}

	g.log.Info("reset requested", nil)
	return token, nil
}

// ConfirmReset is the second reset step: it consumes the token and clears the record.
func (g *Gate) ConfirmReset(ctx context.Context, token string) error {
	key := g.factory.opts.Keys.ResetToken(g.sessionID)

	stored, err := g.factory.tokens.Get(ctx, key)
	if err != nil {
		return err
	}
	if stored == "" {
		return apperrors.NewResetNotConfirmedError("no reset in progress or token expired")
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return apperrors.NewResetNotConfirmedError("confirmation token does not match")
	}

	if err := g.factory.tokens.Delete(ctx, key); err != nil {
		return err
	}
	return g.ClearAll(ctx)
}
