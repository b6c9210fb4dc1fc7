package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"loan-funnel/internal/models"
)

// MemoryStore is an in-process Store used by tests and local runs without Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.ApplicationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.ApplicationRecord)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*models.ApplicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, rec *models.ApplicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[sessionID] = *copyRecord(*rec)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, sessionID)
	return nil
}

func copyRecord(rec models.ApplicationRecord) *models.ApplicationRecord {
	if rec.ScheduledTime != nil {
		ts := *rec.ScheduledTime
		rec.ScheduledTime = &ts
	}
	return &rec
}

type memoryToken struct {
	value     string
	expiresAt time.Time
}

// MemoryTokenStore is an in-process TokenStore with a pluggable clock.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

func NewMemoryTokenStore(now func() time.Time) *MemoryTokenStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenStore{tokens: make(map[string]memoryToken), now: now}
}

func (s *MemoryTokenStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := memoryToken{value: value}
	if ttl > 0 {
		tok.expiresAt = s.now().Add(ttl)
	}
	s.tokens[key] = tok
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.live(key)
	if !ok {
		return "", nil
	}
	return tok.value, nil
}

func (s *MemoryTokenStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.live(key)
	if !ok {
		tok = memoryToken{value: "0"}
		if ttl > 0 {
			tok.expiresAt = s.now().Add(ttl)
		}
	}
	n, err := strconv.ParseInt(tok.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	tok.value = strconv.FormatInt(n, 10)
	s.tokens[key] = tok
	return n, nil
}

// live returns an unexpired token, dropping it once expired. Callers hold mu.
func (s *MemoryTokenStore) live(key string) (memoryToken, bool) {
	tok, ok := s.tokens[key]
	if !ok {
		return memoryToken{}, false
	}
	if !tok.expiresAt.IsZero() && !s.now().Before(tok.expiresAt) {
		delete(s.tokens, key)
		return memoryToken{}, false
	}
	return tok, true
}

func (s *MemoryTokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, key)
	return nil
}
