// Package verification issues one-time SMS codes and delivers them.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	apperrors "loan-funnel/internal/common/errors"
	"loan-funnel/internal/store"
)

const (
	DefaultCodeTTL     = 10 * time.Minute
	DefaultMaxAttempts = 5
)

// CheckResult is the outcome of comparing a submitted code.
type CheckResult int

const (
	CodeMatched CheckResult = iota
	CodeMismatch
	CodeExpired
	// CodeExhausted means the mismatch used up the last guess; the code is gone.
	CodeExhausted
)

func (r CheckResult) String() string {
	switch r {
	case CodeMatched:
		return "matched"
	case CodeMismatch:
		return "mismatch"
	case CodeExhausted:
		return "exhausted"
	default:
		return "expired"
	}
}

// Limits bound guessing and sending. A zero ResendCooldown disables the cooldown.
type Limits struct {
	MaxAttempts    int
	ResendCooldown time.Duration
}

// Codes stores hashed verification codes per session.
type Codes struct {
	tokens   store.TokenStore
	keys     store.Keys
	ttl      time.Duration
	limits   Limits
	now      func() time.Time
	generate func() (string, error)
}

func NewCodes(tokens store.TokenStore, keys store.Keys, ttl time.Duration) *Codes {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &Codes{
		tokens:   tokens,
		keys:     keys,
		ttl:      ttl,
		limits:   Limits{MaxAttempts: DefaultMaxAttempts},
		now:      time.Now,
		generate: GenerateCode,
	}
}

func (c *Codes) WithLimits(l Limits) *Codes {
	if l.MaxAttempts <= 0 {
		l.MaxAttempts = DefaultMaxAttempts
	}
	if l.ResendCooldown < 0 {
		l.ResendCooldown = 0
	}
	c.limits = l
	return c
}

// WithClock sets the clock used for cooldown arithmetic. It should match the
// token store's clock.
func (c *Codes) WithClock(now func() time.Time) *Codes {
	if now != nil {
		c.now = now
	}
	return c
}

// Issue creates a fresh code for the session, replacing any earlier one and
// resetting its guess counter. Inside the resend cooldown it returns an
// SMS_RATE_LIMITED error and leaves the current code in place.
func (c *Codes) Issue(ctx context.Context, sessionID string) (string, error) {
	if err := c.checkCooldown(ctx, sessionID); err != nil {
		return "", err
	}

	code, err := c.generate()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	if err := c.tokens.Put(ctx, c.keys.SMSCode(sessionID), HashCode(sessionID, code), c.ttl); err != nil {
		return "", err
	}
	if err := c.tokens.Delete(ctx, c.keys.SMSAttempts(sessionID)); err != nil {
		return "", err
	}
	if c.limits.ResendCooldown > 0 {
		issuedAt := strconv.FormatInt(c.now().UnixMilli(), 10)
		if err := c.tokens.Put(ctx, c.keys.SMSCooldown(sessionID), issuedAt, c.limits.ResendCooldown); err != nil {
			return "", err
		}
	}
	return code, nil
}

func (c *Codes) checkCooldown(ctx context.Context, sessionID string) error {
	if c.limits.ResendCooldown <= 0 {
		return nil
	}
	raw, err := c.tokens.Get(ctx, c.keys.SMSCooldown(sessionID))
	if err != nil || raw == "" {
		return err
	}
	remaining := c.limits.ResendCooldown
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		remaining = time.UnixMilli(ms).Add(c.limits.ResendCooldown).Sub(c.now())
	}
	if remaining <= 0 {
		return nil
	}
	return apperrors.NewSMSRateLimitedError(remaining)
}

// Check compares code with the issued one. Every mismatch counts against the
// issued code; the mismatch that reaches MaxAttempts deletes it.
func (c *Codes) Check(ctx context.Context, sessionID, code string) (CheckResult, error) {
	stored, err := c.tokens.Get(ctx, c.keys.SMSCode(sessionID))
	if err != nil {
		return CodeExpired, err
	}
	if stored == "" {
		return CodeExpired, nil
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(HashCode(sessionID, code))) == 1 {
		return CodeMatched, nil
	}

	misses, err := c.tokens.Incr(ctx, c.keys.SMSAttempts(sessionID), c.ttl)
	if err != nil {
		return CodeMismatch, err
	}
	if misses >= int64(c.limits.MaxAttempts) {
		if err := c.Clear(ctx, sessionID); err != nil {
			return CodeExhausted, err
		}
		return CodeExhausted, nil
	}
	return CodeMismatch, nil
}

// Clear removes the code and its guess counter. The resend cooldown stays.
func (c *Codes) Clear(ctx context.Context, sessionID string) error {
	if err := c.tokens.Delete(ctx, c.keys.SMSCode(sessionID)); err != nil {
		return err
	}
	return c.tokens.Delete(ctx, c.keys.SMSAttempts(sessionID))
}

// GenerateCode returns six random decimal digits.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashCode binds a code to its session so stored values are useless elsewhere.
func HashCode(sessionID, code string) string {
	sum := sha256.Sum256([]byte(sessionID + ":" + code))
	return hex.EncodeToString(sum[:])
}
