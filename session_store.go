package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "picloud:session:"

var _ SessionStore = (*RedisSessionStore)(nil)

// RedisSessionStore keeps one record per live session, keyed by token id,
// so logout can revoke a signed token before it expires on its own. Redis
// TTLs garbage collect abandoned sessions.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore wraps an existing client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// DialSessionStore connects to redis and verifies the connection.
func DialSessionStore(ctx context.Context, addr, password string, db int) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to connect to session store")
	}

	return NewRedisSessionStore(client), nil
}

func (s *RedisSessionStore) Put(ctx context.Context, tokenID, accountID string, ttl time.Duration) error {
	if tokenID == "" {
		return goerrors.New("session token id must not be empty", goerrors.CategoryBadInput)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+tokenID, accountID, ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record session")
	}
	return nil
}

func (s *RedisSessionStore) Alive(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, sessionKeyPrefix+tokenID).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up session")
	}
	return true, nil
}

// Delete is idempotent: removing an absent session is not an error.
func (s *RedisSessionStore) Delete(ctx context.Context, tokenID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+tokenID).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to destroy session")
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
