package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// WatermarkStore remembers the last instant each named job fired. A job
// that never fired reads the zero time.
type WatermarkStore interface {
	LastFired(ctx context.Context, name string) (time.Time, error)
	SetLastFired(ctx context.Context, name string, at time.Time) error
}

type MemoryWatermarks struct {
	mu    sync.Mutex
	marks map[string]time.Time
}

func NewMemoryWatermarks() *MemoryWatermarks {
	return &MemoryWatermarks{marks: map[string]time.Time{}}
}

func (m *MemoryWatermarks) LastFired(_ context.Context, name string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks[name], nil
}

func (m *MemoryWatermarks) SetLastFired(_ context.Context, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[name] = at
	return nil
}

type RedisWatermarks struct {
	rdb *redis.Client
}

func NewRedisWatermarks(rdb *redis.Client) *RedisWatermarks {
	return &RedisWatermarks{rdb: rdb}
}

func watermarkKey(name string) string {
	return "schedule:watermark:" + name
}

func (r *RedisWatermarks) LastFired(ctx context.Context, name string) (time.Time, error) {
	val, err := r.rdb.Get(ctx, watermarkKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, val)
}

func (r *RedisWatermarks) SetLastFired(ctx context.Context, name string, at time.Time) error {
	return r.rdb.Set(ctx, watermarkKey(name), at.UTC().Format(time.RFC3339Nano), 0).Err()
}
