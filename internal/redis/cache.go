package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles bond summary caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// BondCacheTTL bounds staleness between a ledger post and the next
// invalidation.
const BondCacheTTL = 30 * time.Second

const bondCachePrefix = "cache:bond:"

// CachedBondSummary is the cached bond snapshot for a driver.
type CachedBondSummary struct {
	Balance  string `json:"balance"`
	Required string `json:"required"`
	Percent  int    `json:"percent"`
}

// GetBondSummary retrieves a driver's bond summary from cache.
// Returns nil on a cache miss.
func (s *CacheStore) GetBondSummary(ctx context.Context, driverID string) (*CachedBondSummary, error) {
	data, err := s.client.Get(ctx, bondCachePrefix+driverID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var summary CachedBondSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SetBondSummary stores a driver's bond summary in cache.
func (s *CacheStore) SetBondSummary(ctx context.Context, driverID string, summary *CachedBondSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, bondCachePrefix+driverID, data, BondCacheTTL).Err()
}

// InvalidateBondSummary removes a driver's bond summary from cache.
// Called after every ledger post so reads never serve a pre-post
// balance beyond the TTL window.
func (s *CacheStore) InvalidateBondSummary(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, bondCachePrefix+driverID).Err()
}
