// Package store persists per-session funnel state.
package store

import (
	"context"
	"fmt"
	"time"

	"loan-funnel/internal/models"
)

// Store holds at most one ApplicationRecord per session.
//
// Load returns (nil, nil) when no record exists or the stored value cannot be
// decoded. Transport failures are returned as errors.
type Store interface {
	Load(ctx context.Context, sessionID string) (*models.ApplicationRecord, error)
	Save(ctx context.Context, sessionID string, rec *models.ApplicationRecord) error
	Delete(ctx context.Context, sessionID string) error
}

// TokenStore keeps short-lived secrets such as hashed SMS codes and reset tokens.
// Get returns ("", nil) for a missing or expired key.
//
// Incr adds one to a counter and returns the new value. The TTL starts when
// the counter is created and is not extended by later increments.
type TokenStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Keys builds namespaced Redis keys.
type Keys struct {
	Prefix string
}

func (k Keys) Application(sessionID string) string {
	return fmt.Sprintf("%s:application:%s", k.prefix(), sessionID)
}

func (k Keys) SMSCode(sessionID string) string {
	return fmt.Sprintf("%s:sms:%s", k.prefix(), sessionID)
}

func (k Keys) SMSAttempts(sessionID string) string {
	return fmt.Sprintf("%s:sms-attempts:%s", k.prefix(), sessionID)
}

func (k Keys) SMSCooldown(sessionID string) string {
	return fmt.Sprintf("%s:sms-cooldown:%s", k.prefix(), sessionID)
}

func (k Keys) ResetToken(sessionID string) string {
	return fmt.Sprintf("%s:reset:%s", k.prefix(), sessionID)
}

func (k Keys) prefix() string {
	if k.Prefix == "" {
		return "funnel"
	}
	return k.Prefix
}
