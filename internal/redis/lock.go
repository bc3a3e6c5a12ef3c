package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireIncidentLock attempts to acquire a lock for deduction
// processing on the given incident. Returns true if the lock was
// acquired, false if already held. The lock is advisory: it sheds
// duplicate work early, but the ledger's uniqueness constraint remains
// the source of truth.
func (s *LockStore) AcquireIncidentLock(ctx context.Context, incidentID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:incident-deduction:%s", incidentID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseIncidentLock releases the deduction lock for the given incident.
func (s *LockStore) ReleaseIncidentLock(ctx context.Context, incidentID string) error {
	key := fmt.Sprintf("lock:incident-deduction:%s", incidentID)

	return s.client.Del(ctx, key).Err()
}
