package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "loan-funnel/internal/common/errors"
	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the application record as JSON under one key per session.
type RedisStore struct {
	client    redis.Cmdable
	keys      Keys
	retention time.Duration
	logger    logger.Logger
}

// NewRedisStore stores records with the given retention TTL (0 keeps them forever).
func NewRedisStore(client redis.Cmdable, keys Keys, retention time.Duration, log logger.Logger) *RedisStore {
	return &RedisStore{
		client:    client,
		keys:      keys,
		retention: retention,
		logger:    logger.ForComponent(log, "store"),
	}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*models.ApplicationRecord, error) {
	key := s.keys.Application(sessionID)

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load application: %w", apperrors.NewStoreUnavailableError(err))
	}

	var rec models.ApplicationRecord
	if err := json.Unmarshal(raw, &rec); err != nil || !rec.Valid() {
		s.logger.Warn("discarding unreadable application record", map[string]interface{}{
			"key":   key,
			"error": err,
		})
		return nil, nil
	}

	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, rec *models.ApplicationRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode application: %w", err)
	}

	if err := s.client.Set(ctx, s.keys.Application(sessionID), raw, s.retention).Err(); err != nil {
		return fmt.Errorf("save application: %w", apperrors.NewStoreUnavailableError(err))
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.keys.Application(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete application: %w", apperrors.NewStoreUnavailableError(err))
	}
	return nil
}

// RedisTokenStore implements TokenStore on plain Redis strings with TTL.
type RedisTokenStore struct {
	client redis.Cmdable
}

func NewRedisTokenStore(client redis.Cmdable) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("put token: %w", apperrors.NewStoreUnavailableError(err))
	}
	return nil
}

func (s *RedisTokenStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get token: %w", apperrors.NewStoreUnavailableError(err))
	}
	return val, nil
}

func (s *RedisTokenStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr token: %w", apperrors.NewStoreUnavailableError(err))
	}
	if n == 1 && ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("expire token: %w", apperrors.NewStoreUnavailableError(err))
		}
	}
	return n, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete token: %w", apperrors.NewStoreUnavailableError(err))
	}
	return nil
}
