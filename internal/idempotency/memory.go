package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Guard for single instance deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]IdempotencyRecord
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{records: map[string]IdempotencyRecord{}, ttl: ttl, nowFunc: time.Now}
}

func (s *MemoryStore) CreateIfNotExists(_ context.Context, key, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	if rec, ok := s.records[key]; ok && rec.ExpiresAt > now.Unix() {
		return false, nil
	}
	s.records[key] = IdempotencyRecord{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttl).Unix(),
	}
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok || rec.ExpiresAt <= s.nowFunc().Unix() {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) MarkDone(_ context.Context, key, responseBody string, responseStatus int) error {
	return s.update(key, func(rec *IdempotencyRecord) bool {
		rec.Status = StatusDone
		rec.ResponseBody = responseBody
		rec.ResponseStatus = responseStatus
		return true
	})
}

func (s *MemoryStore) MarkFailed(_ context.Context, key, note string) error {
	return s.update(key, func(rec *IdempotencyRecord) bool {
		rec.Status = StatusFailed
		rec.Note = note
		return true
	})
}

func (s *MemoryStore) Reclaim(_ context.Context, key string) (bool, error) {
	won := false
	err := s.update(key, func(rec *IdempotencyRecord) bool {
		if rec.Status != StatusFailed {
			return false
		}
		rec.Status = StatusInProgress
		rec.ExpiresAt = s.nowFunc().Add(s.ttl).Unix()
		won = true
		return true
	})
	if err == ErrNotFound {
		return false, nil
	}
	return won, err
}

func (s *MemoryStore) update(key string, fn func(*IdempotencyRecord) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return ErrNotFound
	}
	if fn(&rec) {
		rec.UpdatedAt = s.nowFunc()
		s.records[key] = rec
	}
	return nil
}
