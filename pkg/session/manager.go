package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/jmcampos/minimart-backend/pkg/config"
	redisclient "github.com/jmcampos/minimart-backend/pkg/redis"
)

// ErrNotFound signals the session id has no live document in Redis.
var ErrNotFound = errors.New("session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Manager persists session documents in Redis with a rolling TTL.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// Reader exposes the read-only surface needed by middleware.
type Reader interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Create stores a brand-new session document.
func (m *Manager) Create(ctx context.Context, sess *Session) error {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	return m.write(ctx, sess)
}

// Get loads the session document for the provided id.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	raw, err := m.store.Get(ctx, m.keyer.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decoding session document: %w", err)
	}
	return &sess, nil
}

// Save rewrites the session document and resets its TTL.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.write(ctx, sess)
}

// Revoke deletes the session document.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.Del(ctx, m.keyer.SessionKey(sessionID))
}

func (m *Manager) write(ctx context.Context, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session document: %w", err)
	}
	return m.store.Set(ctx, m.keyer.SessionKey(sess.ID), string(payload), m.ttl)
}
