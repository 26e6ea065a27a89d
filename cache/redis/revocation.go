// Package redis implements the revocation ledger on Redis, sharing one view
// of revoked token IDs across horizontally scaled instances.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/pacs-auth/cache"
)

// keyPrefix matches the key layout of the original deployment.
const keyPrefix = "jwt:blacklist:"

// RevocationLedger implements cache.RevocationLedger using Redis SET with
// expiry. Redis owns entry lifetime; no sweep is needed.
type RevocationLedger struct {
	client *redis.Client
}

// NewRevocationLedger creates a ledger backed by the given client.
func NewRevocationLedger(client *redis.Client) *RevocationLedger {
	return &RevocationLedger{client: client}
}

func (l *RevocationLedger) key(tokenID string) string {
	return keyPrefix + tokenID
}

// Revoke implements cache.RevocationLedger.Revoke. SET overwrites both value
// and TTL, which gives the required last-writer-wins idempotency.
func (l *RevocationLedger) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, l.key(tokenID), true, ttl).Err(); err != nil {
		return fmt.Errorf("revoking token %s: %w", tokenID, err)
	}
	return nil
}

// IsRevoked implements cache.RevocationLedger.IsRevoked.
func (l *RevocationLedger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking revocation of token %s: %w", tokenID, err)
	}
	return n > 0, nil
}

var _ cache.RevocationLedger = (*RevocationLedger)(nil)
