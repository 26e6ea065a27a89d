// Package cache holds the revocation ledger: a TTL-keyed record of access
// token IDs that must be rejected before their natural expiry.
//
// Entries carry the revoked token's remaining lifetime as their TTL, so the
// ledger's size is bounded by the set of outstanding access tokens and every
// entry vanishes exactly when the token it blocks would have expired anyway.
// The Redis implementation is eventually consistent across instances; a short
// window between logout and visibility is an accepted trade-off of the
// best-effort "deny soon after logout" policy, not a correctness bug.
package cache

import (
	"context"
	"time"
)

// RevocationLedger records revoked token IDs until their TTL elapses.
type RevocationLedger interface {
	// Revoke marks tokenID revoked for exactly ttl. Idempotent: revoking an
	// already-revoked ID overwrites its TTL with the new value.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	// IsRevoked reports whether tokenID has an unexpired entry. Absence,
	// including TTL expiry, means not revoked. A store error is returned as
	// an error so the caller can apply its deny/error policy; it is never
	// silently mapped to "not revoked".
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
