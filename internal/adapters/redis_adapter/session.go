// internal/adapters/redis_adapter/session.go
package redis_a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/sweetshop/internal/core/domain"
	"github.com/ammerola/sweetshop/internal/core/ports"
)

// KeyPrefix namespaces keys written by this adapter.
type KeyPrefix string

const (
	PrefixSession KeyPrefix = "session"
)

// SessionStore keeps the signed-in session in Redis so it survives restarts
// of the dashboard. One store holds one profile's session.
type SessionStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// Statically assert that *SessionStore implements the SessionStore interface.
var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a store for profile under namespace. A zero ttl
// keeps the session until it is cleared.
func NewSessionStore(client *redis.Client, namespace, profile string, ttl time.Duration, logger *slog.Logger) *SessionStore {
	parts := []string{profile}
	if namespace != "" {
		parts = append([]string{namespace}, parts...)
	}
	return &SessionStore{
		client: client,
		key:    BuildKey(PrefixSession, parts...),
		ttl:    ttl,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Key returns the Redis key holding the session.
func (s *SessionStore) Key() string {
	return s.key
}

// Load reads the session. It returns domain.ErrNoSession when none is stored.
func (s *SessionStore) Load(ctx context.Context) (domain.Session, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.logger.DebugContext(ctx, "session miss", slog.String("key", s.key))
			return domain.Session{}, domain.ErrNoSession
		}
		s.logger.ErrorContext(ctx, "failed to get session",
			slog.String("key", s.key),
			slog.String("error", err.Error()))
		return domain.Session{}, &StoreError{Op: "get", Key: s.key, Err: err}
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, &StoreError{Op: "decode", Key: s.key, Err: err}
	}
	if session.Token == "" {
		return domain.Session{}, domain.ErrNoSession
	}
	return session, nil
}

// Save writes the session. The key expires with the token when the token
// carries an expiry earlier than the configured TTL.
func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return &StoreError{Op: "encode", Key: s.key, Err: err}
	}

	ttl := s.ttl
	if !session.ExpiresAt.IsZero() {
		remaining := time.Until(session.ExpiresAt)
		if remaining <= 0 {
			return fmt.Errorf("refusing to persist expired session")
		}
		if ttl == 0 || remaining < ttl {
			ttl = remaining
		}
	}

	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		s.logger.ErrorContext(ctx, "failed to set session",
			slog.String("key", s.key),
			slog.String("error", err.Error()))
		return &StoreError{Op: "set", Key: s.key, Err: err}
	}

	s.logger.DebugContext(ctx, "session saved",
		slog.String("key", s.key),
		slog.Duration("ttl", ttl))
	return nil
}

// Clear deletes the session. Clearing an empty store is not an error.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete session",
			slog.String("key", s.key),
			slog.String("error", err.Error()))
		return &StoreError{Op: "del", Key: s.key, Err: err}
	}
	return nil
}

// Ping checks if Redis is accessible.
func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping error: %w", err)
	}
	return nil
}

// BuildKey creates a key with prefix.
func BuildKey(prefix KeyPrefix, parts ...string) string {
	key := string(prefix)
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

// StoreError represents a failed Redis operation on a key.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("session store %s operation failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
