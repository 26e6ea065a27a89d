package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryRevocationLedger implements RevocationLedger on ttlcache. Suitable
// for single-instance deployments and tests; horizontal scale-out needs the
// Redis ledger so all instances share one view.
type MemoryRevocationLedger struct {
	cache *ttlcache.Cache[string, struct{}]
}

// NewMemoryRevocationLedger creates an in-memory ledger with automatic
// expiry of entries.
func NewMemoryRevocationLedger() *MemoryRevocationLedger {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)

	// Start the expiration process
	go cache.Start()

	return &MemoryRevocationLedger{cache: cache}
}

// Revoke implements RevocationLedger.Revoke. A repeated Revoke for the same
// ID overwrites the entry, so the effective TTL is always the last one set.
func (l *MemoryRevocationLedger) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already past its natural expiry, nothing to block.
		return nil
	}
	l.cache.Set(tokenID, struct{}{}, ttl)
	return nil
}

// IsRevoked implements RevocationLedger.IsRevoked. Expired entries are
// treated as absent even before the cleanup goroutine removes them.
func (l *MemoryRevocationLedger) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return l.cache.Get(tokenID) != nil, nil
}

// Close stops the expiration goroutine.
func (l *MemoryRevocationLedger) Close() {
	l.cache.Stop()
}

var _ RevocationLedger = (*MemoryRevocationLedger)(nil)
