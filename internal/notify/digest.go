package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

// DigestStore queues daily-mode notifications per user until the next
// digest flush. Ack drops the first n queued notifications of a user, so
// anything appended while a digest was being sent stays queued.
type DigestStore interface {
	Append(ctx context.Context, n models.Notification) error
	Pending(ctx context.Context) (map[int64][]models.Notification, error)
	Ack(ctx context.Context, userID int64, n int) error
}

type MemoryDigestStore struct {
	mu     sync.Mutex
	queues map[int64][]models.Notification
}

func NewMemoryDigestStore() *MemoryDigestStore {
	return &MemoryDigestStore{queues: map[int64][]models.Notification{}}
}

func (m *MemoryDigestStore) Append(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[n.UserID] = append(m.queues[n.UserID], n)
	return nil
}

func (m *MemoryDigestStore) Pending(_ context.Context) (map[int64][]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64][]models.Notification, len(m.queues))
	for user, q := range m.queues {
		out[user] = append([]models.Notification(nil), q...)
	}
	return out, nil
}

func (m *MemoryDigestStore) Ack(_ context.Context, userID int64, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queues[userID]
	if n >= len(q) {
		delete(m.queues, userID)
		return nil
	}
	m.queues[userID] = append([]models.Notification(nil), q[n:]...)
	return nil
}

const digestKeyPrefix = "notify:digest:user:"

// RedisDigestStore keeps one JSON list per user under notify:digest:user:<id>.
type RedisDigestStore struct {
	rdb *redis.Client
}

func NewRedisDigestStore(rdb *redis.Client) *RedisDigestStore {
	return &RedisDigestStore{rdb: rdb}
}

func digestKey(userID int64) string {
	return digestKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisDigestStore) Append(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return r.rdb.RPush(ctx, digestKey(n.UserID), body).Err()
}

func (r *RedisDigestStore) Pending(ctx context.Context) (map[int64][]models.Notification, error) {
	out := map[int64][]models.Notification{}

	iter := r.rdb.Scan(ctx, 0, digestKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		userID, err := strconv.ParseInt(strings.TrimPrefix(key, digestKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		raw, err := r.rdb.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, err
		}
		notes := make([]models.Notification, 0, len(raw))
		for _, item := range raw {
			var n models.Notification
			if err := json.Unmarshal([]byte(item), &n); err != nil {
				return nil, fmt.Errorf("corrupt digest entry for user %d: %w", userID, err)
			}
			notes = append(notes, n)
		}
		if len(notes) > 0 {
			out[userID] = notes
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Ack trims the acknowledged prefix; Redis drops the key once it is empty.
func (r *RedisDigestStore) Ack(ctx context.Context, userID int64, n int) error {
	return r.rdb.LTrim(ctx, digestKey(userID), int64(n), -1).Err()
}
