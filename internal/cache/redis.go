package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

const (
	redisKeyPrefix = "prayer:timings:"
	// Schedules are only useful around their own date.
	redisTTL = 48 * time.Hour
)

// RedisStore shares resolved schedules between processes.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.rdb.Close() }

// Load reads the schedule stored for q.
func (s *RedisStore) Load(ctx context.Context, q prayer.Query) (prayer.Day, bool, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+q.Key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return prayer.Day{}, false, nil
	}
	if err != nil {
		return prayer.Day{}, false, err
	}

	var day prayer.Day
	if err := json.Unmarshal(raw, &day); err != nil {
		return prayer.Day{}, false, fmt.Errorf("corrupt redis entry: %w", err)
	}
	timings, err := prayer.NewDailyTimings(day.Timings)
	if err != nil {
		return prayer.Day{}, false, fmt.Errorf("corrupt redis entry: %w", err)
	}
	day.Timings = timings
	return day, true, nil
}

// Save stores the schedule for q with a 48 hour expiry.
func (s *RedisStore) Save(ctx context.Context, q prayer.Query, day prayer.Day) error {
	raw, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	return s.rdb.Set(ctx, redisKeyPrefix+q.Key(), raw, redisTTL).Err()
}
