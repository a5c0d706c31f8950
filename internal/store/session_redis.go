package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisSessionTimeout = 3 * time.Second

// RedisSessionStore keeps opaque session tokens in Redis with a TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore builds a Redis-backed session store.
func NewRedisSessionStore(addr, password string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// NewSession writes a token -> userID mapping with TTL.
func (s *RedisSessionStore) NewSession(userID string) (string, error) {
	token := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), redisSessionTimeout)
	defer cancel()
	if err := s.client.Set(ctx, sessionKey(token), userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// ResolveToken resolves a token to its user ID.
func (s *RedisSessionStore) ResolveToken(token string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisSessionTimeout)
	defer cancel()
	val, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func sessionKey(token string) string {
	return "filevault:session:" + token
}
