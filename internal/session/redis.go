package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"storecopy-api/internal/model"
)

// redisKeyPrefix namespaces session keys in Redis.
const redisKeyPrefix = "storecopy:session:"

// RedisStore implements Store on Redis. Sessions are offline credentials, so
// they are stored without a TTL and live until explicitly deleted.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Save stores a session as a JSON blob.
func (s *RedisStore) Save(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		return fmt.Errorf("missing session id")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+session.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Load returns the session stored under id.
func (s *RedisStore) Load(ctx context.Context, id string) (*model.Session, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}
	return &session, nil
}

// Delete removes a session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKeyPrefix+id).Err()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
