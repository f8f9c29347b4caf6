package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"weather-server/entities"
)

const redisPrefix = "weather:"

// ConnectRedis parses a redis:// URL and pings the server.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps public projections as JSON strings with a TTL.
// Hit and miss counters are per process.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key Key) (entities.PublicView, bool, error) {
	raw, err := s.client.Get(ctx, redisPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		s.misses.Add(1)
		return entities.PublicView{}, false, nil
	}
	if err != nil {
		return entities.PublicView{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var view entities.PublicView
	if err := json.Unmarshal(raw, &view); err != nil {
		return entities.PublicView{}, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	s.hits.Add(1)
	return view, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key Key, view entities.PublicView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, redisPrefix+key.String(), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, redisPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	entries := 0
	iter := s.client.Scan(ctx, 0, redisPrefix+"public:*", 100).Iterator()
	for iter.Next(ctx) {
		entries++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("redis scan: %w", err)
	}
	return Stats{
		Driver:  "redis",
		Entries: entries,
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		TTL:     s.ttl.String(),
	}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
