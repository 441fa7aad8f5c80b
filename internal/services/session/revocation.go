package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationSet records token ids that were invalidated before they expired.
type RevocationSet interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationSet keeps revoked token ids in process memory. The set is
// empty after a restart, so tokens revoked before it become valid again until
// their natural expiry.
type MemoryRevocationSet struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationSet() *MemoryRevocationSet {
	return &MemoryRevocationSet{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryRevocationSet) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	// drop entries whose tokens would fail on expiry anyway
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
		}
	}
	m.entries[tokenID] = expiresAt
	return nil
}

func (m *MemoryRevocationSet) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[tokenID]
	return ok, nil
}

// RedisRevocationSet stores revoked token ids as Redis keys that expire with
// the token, so revocations are shared between instances and survive restarts.
type RedisRevocationSet struct {
	RDB    *redis.Client
	Prefix string
}

func NewRedisRevocationSet(rdb *redis.Client) *RedisRevocationSet {
	return &RedisRevocationSet{RDB: rdb, Prefix: "revoked_token:"}
}

func (r *RedisRevocationSet) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.RDB.Set(ctx, r.Prefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocationSet) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.RDB.Exists(ctx, r.Prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
