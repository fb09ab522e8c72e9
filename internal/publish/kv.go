package publish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrKeyMissing indicates an absent or expired key.
var ErrKeyMissing = errors.New("key missing or expired")

// KV is the minimal keyed-store contract the publisher needs. Substrate
// agnostic: Redis in production, in-memory for tests and replay runs.
type KV interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// -----------------------------------------------------------------------------
// Redis
// -----------------------------------------------------------------------------

// RedisKV backs the publisher with a Redis instance.
type RedisKV struct {
	c *redis.Client
}

// NewRedisKV connects a Redis-backed KV.
func NewRedisKV(addr, password string, db int) *RedisKV {
	return &RedisKV{
		c: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyMissing
	}
	return val, err
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *RedisKV) Close() error {
	return r.c.Close()
}

// -----------------------------------------------------------------------------
// In-memory
// -----------------------------------------------------------------------------

// MemoryKV is an in-process KV with TTL semantics, used by tests and the
// replay harness.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source, letting tests advance TTLs.
func (m *MemoryKV) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrKeyMissing
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrKeyMissing
	}
	return append([]byte(nil), entry.value...), nil
}

func (m *MemoryKV) Ping(ctx context.Context) error { return nil }

func (m *MemoryKV) Close() error { return nil }

// Len returns the number of live entries.
func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, entry := range m.entries {
		if entry.expiresAt.IsZero() || !m.now().After(entry.expiresAt) {
			n++
		}
	}
	return n
}
