package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/piwi3910/gqlflux/session"
)

// ErrNoSession is returned by a SessionCache when nothing is stored.
var ErrNoSession = errors.New("no session stored")

// SessionCache persists a session across process restarts so a host
// does not have to re-authenticate on every start.
type SessionCache interface {
	Load(ctx context.Context) (session.Session, error)
	Save(ctx context.Context, s session.Session) error
	Clear(ctx context.Context) error
}

const sessionKeyPrefix = "gqlflux:session:"

// RedisSessionCache stores the session as JSON under a per-principal
// key with a TTL derived from the session's own expiry.
type RedisSessionCache struct {
	client redis.UniversalClient
	key    string
	logger *zap.Logger
}

// NewRedisSessionCache creates a cache keyed by name (typically the
// application or principal identifier).
func NewRedisSessionCache(client redis.UniversalClient, name string, logger *zap.Logger) (*RedisSessionCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if name == "" {
		return nil, fmt.Errorf("cache name cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSessionCache{
		client: client,
		key:    sessionKeyPrefix + name,
		logger: logger.Named("session-cache"),
	}, nil
}

// Load reads the stored session. Returns ErrNoSession when the key is
// missing or expired.
func (c *RedisSessionCache) Load(ctx context.Context) (session.Session, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.Session{}, ErrNoSession
		}
		return session.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return session.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if !s.Valid() {
		return session.Session{}, ErrNoSession
	}
	return s, nil
}

// Save writes the session with a TTL matching its remaining lifetime,
// so Redis drops it at the same moment the token dies.
func (c *RedisSessionCache) Save(ctx context.Context, s session.Session) error {
	if !s.Valid() {
		return fmt.Errorf("refusing to persist invalid session")
	}

	ttl := time.Until(s.ExpiresAt())
	if ttl <= 0 {
		return fmt.Errorf("refusing to persist expired session")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.logger.Debug("session persisted",
		zap.String("user", s.Username),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// Clear removes the stored session. Clearing an absent session is not
// an error.
func (c *RedisSessionCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Restore loads a persisted session from the cache into the store.
// A missing cached session is not an error; the store is simply left
// signed out.
func Restore(ctx context.Context, m *Memory, cache SessionCache) error {
	s, err := cache.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}
	m.SetSession(s)
	return nil
}
