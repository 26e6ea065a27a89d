package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"go.pilab.hu/pacs-auth/domain"
	"go.pilab.hu/pacs-auth/mongodb/testutil"
)

func TestSessionRepositoryMongo_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestMongoDB(t, "test_pacs_auth_sessions")
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := NewSessionRepository(ctx, db)
	require.NoError(t, err, "Failed to create SessionRepository (index bootstrap)")

	newSession := func(subject, token string, ttl time.Duration) *domain.Session {
		return &domain.Session{
			Subject:      subject,
			RefreshToken: token,
			ExpiresAt:    time.Now().Add(ttl).UTC(),
		}
	}

	t.Run("PutThenGetByToken", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, newSession("alice", "refresh-1", time.Hour)))

		session, err := repo.GetByToken(ctx, "refresh-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Subject)
		assert.NotEmpty(t, session.ID, "server should have assigned an _id on insert")
	})

	t.Run("PutOverwritesExistingRecordForSubject", func(t *testing.T) {
		// The rotation sequence: the service builds a fresh Session value
		// (no ID) for a subject that already has a stored record. The
		// replace must succeed and leave exactly one record, keyed by the
		// new token.
		require.NoError(t, repo.Put(ctx, newSession("alice", "refresh-2", time.Hour)))

		_, err := repo.GetByToken(ctx, "refresh-1")
		assert.ErrorIs(t, err, domain.ErrNotFound, "rotated-away token must be gone")

		session, err := repo.GetByToken(ctx, "refresh-2")
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Subject)

		count, err := repo.collection.CountDocuments(ctx, bson.M{"subject": "alice"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count, "one record per subject")
	})

	t.Run("GetByTokenNotFound", func(t *testing.T) {
		_, err := repo.GetByToken(ctx, "never-stored")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DeleteBySubject", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, newSession("bob", "refresh-bob", time.Hour)))
		require.NoError(t, repo.DeleteBySubject(ctx, "bob"))

		_, err := repo.GetByToken(ctx, "refresh-bob")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		// Deleting an absent subject is not an error.
		assert.NoError(t, repo.DeleteBySubject(ctx, "bob"))
	})

	t.Run("DeleteExpiredBefore", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, newSession("stale", "refresh-stale", -time.Minute)))
		require.NoError(t, repo.Put(ctx, newSession("fresh", "refresh-fresh", time.Hour)))

		deleted, err := repo.DeleteExpiredBefore(ctx, time.Now())
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)

		_, err = repo.GetByToken(ctx, "refresh-stale")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.GetByToken(ctx, "refresh-fresh")
		assert.NoError(t, err)
	})
}
