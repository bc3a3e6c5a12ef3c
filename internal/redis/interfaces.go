package redis

import (
	"context"
	"time"
)

// BondCacheInterface defines the interface for bond summary caching.
type BondCacheInterface interface {
	GetBondSummary(ctx context.Context, driverID string) (*CachedBondSummary, error)
	SetBondSummary(ctx context.Context, driverID string, summary *CachedBondSummary) error
	InvalidateBondSummary(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireIncidentLock(ctx context.Context, incidentID string, ttl time.Duration) (bool, error)
	ReleaseIncidentLock(ctx context.Context, incidentID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ BondCacheInterface = (*CacheStore)(nil)
	_ LockStoreInterface = (*LockStore)(nil)
)
