package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps the token under a single Redis key, optionally with a TTL.
type RedisStore struct {
	redis  *redis.Client
	key    string
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL, key string, ttl time.Duration, logger *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, key, ttl, logger), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, key string, ttl time.Duration, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		redis:  client,
		key:    key,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Set stores token; a zero TTL keeps it until cleared.
func (s *RedisStore) Set(token string) {
	if token == "" {
		s.Clear()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	if err := s.redis.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("key", s.key).Error("Failed to persist session token")
	}
}

// Get returns the stored token, dropping it if already expired.
func (s *RedisStore) Get() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	token, err := s.redis.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		s.logger.WithError(err).WithField("key", s.key).Error("Failed to read session token")
		return "", false
	}

	if expiredToken(token, s.now()) {
		s.Clear()
		return "", false
	}
	return token, token != ""
}

// Clear deletes the key; deleting a missing key is a no-op in Redis.
func (s *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		s.logger.WithError(err).WithField("key", s.key).Error("Failed to clear session token")
	}
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
