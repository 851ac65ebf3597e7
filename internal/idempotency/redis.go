package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// errNotFailed aborts a Reclaim transaction on a record in any other state.
var errNotFailed = errors.New("record is not failed")

// RedisStore keeps idempotency records as JSON strings under "idemp:<key>".
type RedisStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, nowFunc: time.Now}
}

func redisKey(key string) string { return "idemp:" + key }

func (s *RedisStore) CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error) {
	now := s.nowFunc()
	rec := IdempotencyRecord{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttl).Unix(),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, redisKey(key), b, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	return s.get(ctx, s.rdb, key)
}

func (s *RedisStore) get(ctx context.Context, cmd redis.Cmdable, key string) (*IdempotencyRecord, error) {
	raw, err := cmd.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error {
	return s.update(ctx, key, func(rec *IdempotencyRecord) error {
		rec.Status = StatusDone
		rec.ResponseBody = responseBody
		rec.ResponseStatus = responseStatus
		return nil
	})
}

func (s *RedisStore) MarkFailed(ctx context.Context, key, note string) error {
	return s.update(ctx, key, func(rec *IdempotencyRecord) error {
		rec.Status = StatusFailed
		rec.Note = note
		return nil
	})
}

func (s *RedisStore) Reclaim(ctx context.Context, key string) (bool, error) {
	err := s.update(ctx, key, func(rec *IdempotencyRecord) error {
		if rec.Status != StatusFailed {
			return errNotFailed
		}
		rec.Status = StatusInProgress
		rec.ExpiresAt = s.nowFunc().Add(s.ttl).Unix()
		return nil
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotFailed), errors.Is(err, ErrNotFound), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, err
	}
}

// update applies fn under WATCH so concurrent writers to the same key
// cannot interleave between the read and the write.
func (s *RedisStore) update(ctx context.Context, key string, fn func(*IdempotencyRecord) error) error {
	rk := redisKey(key)
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNotFound
		}
		if err := fn(rec); err != nil {
			return err
		}
		rec.UpdatedAt = s.nowFunc()
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, rk, b, redis.KeepTTL)
			if rec.Status == StatusInProgress {
				p.Expire(ctx, rk, s.ttl)
			}
			return nil
		})
		return err
	}, rk)
}
