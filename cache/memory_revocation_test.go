package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationLedger(t *testing.T) {
	ledger := NewMemoryRevocationLedger()
	defer ledger.Close()

	ctx := context.Background()

	t.Run("AbsentMeansNotRevoked", func(t *testing.T) {
		revoked, err := ledger.IsRevoked(ctx, "never-seen")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("RevokedUntilTTLElapses", func(t *testing.T) {
		require.NoError(t, ledger.Revoke(ctx, "jti-1", 50*time.Millisecond))

		revoked, err := ledger.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		time.Sleep(80 * time.Millisecond)

		revoked, err = ledger.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked, "entry should self-expire at TTL")
	})

	t.Run("RepeatedRevokeOverwritesTTL", func(t *testing.T) {
		require.NoError(t, ledger.Revoke(ctx, "jti-2", 30*time.Millisecond))
		require.NoError(t, ledger.Revoke(ctx, "jti-2", 10*time.Second))

		time.Sleep(60 * time.Millisecond)

		revoked, err := ledger.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.True(t, revoked, "effective TTL must be the most recently set value")
	})

	t.Run("NonPositiveTTLIsNoOp", func(t *testing.T) {
		require.NoError(t, ledger.Revoke(ctx, "jti-3", 0))

		revoked, err := ledger.IsRevoked(ctx, "jti-3")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
