package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	repo "market/internal/repository"

	"github.com/redis/go-redis/v9"
)

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

type IdempotencyRedisStore struct {
	rdb redis.Cmdable
}

func NewIdempotencyRedisStore(rdb redis.Cmdable) *IdempotencyRedisStore {
	return &IdempotencyRedisStore{rdb: rdb}
}

func key(userID int64, k string) string {
	return fmt.Sprintf(KeyIdemOrderCheckout, userID, k)
}

func (s *IdempotencyRedisStore) Reserve(ctx context.Context, userID int64, k string) (int64, bool, error) {
	rk := key(userID, k)

	ok, err := s.rdb.SetNX(ctx, rk, pendingValue, TTLPending).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis setnx: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	v, err := s.rdb.Get(ctx, rk).Result()
	if errors.Is(err, redis.Nil) {
		// SETNXとGETの間で期限切れになった
		return 0, false, repo.ErrIdempotencyInProgress
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get: %w", err)
	}
	if v == pendingValue {
		return 0, false, repo.ErrIdempotencyInProgress
	}

	orderID, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("broken idempotency value %q: %w", v, err)
	}
	return orderID, false, nil
}

func (s *IdempotencyRedisStore) Complete(ctx context.Context, userID int64, k string, orderID int64) error {
	return s.rdb.Set(ctx, key(userID, k), orderID, TTLIdempotency).Err()
}

func (s *IdempotencyRedisStore) Release(ctx context.Context, userID int64, k string) error {
	return s.rdb.Del(ctx, key(userID, k)).Err()
}

// REDIS_ADDR未設定のとき。常に初回扱い
type NopIdempotencyStore struct{}

func (NopIdempotencyStore) Reserve(context.Context, int64, string) (int64, bool, error) {
	return 0, true, nil
}

func (NopIdempotencyStore) Complete(context.Context, int64, string, int64) error { return nil }

func (NopIdempotencyStore) Release(context.Context, int64, string) error { return nil }

var (
	_ repo.IdempotencyStore = (*IdempotencyRedisStore)(nil)
	_ repo.IdempotencyStore = NopIdempotencyStore{}
)
