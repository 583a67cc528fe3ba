package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Session is the request-scoped identity attached to an authenticated call.
type Session struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Store is the abstraction over different session backends.
type Store interface {
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, id string) (*Session, error)
	Destroy(ctx context.Context, id string) error
}

// Memory is a minimal map-backed store for dev/testing.
type Memory struct {
	ttl time.Duration

	mu    sync.Mutex
	state map[string]memoryEntry
}

type memoryEntry struct {
	session Session
	expires time.Time
}

// NewMemory creates an in-memory session store.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Memory{ttl: ttl, state: make(map[string]memoryEntry)}
}

// Create stores a session under a fresh id.
func (m *Memory) Create(_ context.Context, s Session) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	m.state[id] = memoryEntry{session: s, expires: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return id, nil
}

// Get returns the session for id, or nil when missing or expired.
func (m *Memory) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.state[id]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expires) {
		delete(m.state, id)
		return nil, nil
	}
	s := entry.session
	return &s, nil
}

// Destroy removes the session.
func (m *Memory) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.state, id)
	m.mu.Unlock()
	return nil
}

// RedisStore keeps sessions in Redis with a TTL, so restarts don't log
// everyone out.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string { return "session:" + id }

// Create stores a session under a fresh id.
func (r *RedisStore) Create(ctx context.Context, s Session) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	if err := r.client.Set(ctx, sessionKey(id), payload, r.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the session for id, or nil when missing or expired.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Destroy removes the session.
func (r *RedisStore) Destroy(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}
