package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"dbtcheck/internal/check"
	"dbtcheck/pkg/platform/sentinel"
)

var redisOpDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dbtcheck_check_store_redis_duration_ms",
	Help:    "Latency of Redis check store operations in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
}, []string{"op"})

const checkKeyPrefix = "dbtcheck:check:"

// RedisStore keeps each session as a JSON value with a TTL so several
// instances can serve the same check.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, c *check.Check) error {
	defer observe("save", time.Now())
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode check %s: %w", c.ID, err)
	}
	if err := s.client.Set(ctx, key(c.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save check %s: %w", c.ID, err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id uuid.UUID) (*check.Check, error) {
	defer observe("find", time.Now())
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("check %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load check %s: %w", id, err)
	}
	var c check.Check
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode check %s: %w", id, err)
	}
	return &c, nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	defer observe("delete", time.Now())
	n, err := s.client.Del(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete check %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("check %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func key(id uuid.UUID) string {
	return checkKeyPrefix + id.String()
}

func observe(op string, start time.Time) {
	redisOpDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
