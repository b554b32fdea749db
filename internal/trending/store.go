package trending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "trending:winners"

// Store keeps the latest winners snapshot. ok is false until the first Save.
type Store interface {
	Save(ctx context.Context, winners []Winner) error
	Load(ctx context.Context) (winners []Winner, ok bool, err error)
}

type MemoryStore struct {
	mu      sync.RWMutex
	winners []Winner
	set     bool
}

func (m *MemoryStore) Save(_ context.Context, winners []Winner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.winners = append([]Winner(nil), winners...)
	m.set = true
	return nil
}

func (m *MemoryStore) Load(_ context.Context) ([]Winner, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return nil, false, nil
	}
	return append([]Winner(nil), m.winners...), true, nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore shares one snapshot between every API replica.
type RedisStore struct {
	rdb redisKV
	ttl time.Duration
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func NewRedisStore(rdb redisKV, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, winners []Winner) error {
	data, err := json.Marshal(winners)
	if err != nil {
		return fmt.Errorf("trending: marshal snapshot: %w", err)
	}
	return s.rdb.Set(ctx, redisKey, data, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context) ([]Winner, bool, error) {
	data, err := s.rdb.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var winners []Winner
	if err := json.Unmarshal(data, &winners); err != nil {
		return nil, false, fmt.Errorf("trending: decode snapshot: %w", err)
	}
	return winners, true, nil
}
