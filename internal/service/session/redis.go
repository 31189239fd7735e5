package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kasaops/kasa-backend/internal/model/ussd"
)

// DefaultTTL bounds how long an abandoned wizard survives. USSD gateways
// time sessions out well before this.
const DefaultTTL = 5 * time.Minute

// RedisStore implements Store on Redis so session state survives process
// restarts. Entries carry a TTL; expiry is equivalent to Clear.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing Redis client. A non-positive ttl falls
// back to DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("ussd_session:%s", sessionID)
}

// Get retrieves the stored state for a session, if any.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (ussd.SessionState, bool, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return ussd.SessionState{}, false, nil
	}
	if err != nil {
		return ussd.SessionState{}, false, fmt.Errorf("session get: %w", err)
	}

	var state ussd.SessionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return ussd.SessionState{}, false, fmt.Errorf("session decode: %w", err)
	}
	return state, true, nil
}

// Set stores state for a session, refreshing its TTL.
func (s *RedisStore) Set(ctx context.Context, sessionID string, state ussd.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

// Clear removes a session.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}
