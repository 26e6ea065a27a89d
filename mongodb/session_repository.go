package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/pacs-auth/domain"
)

// SessionRepository implements domain.SessionRepository on MongoDB.
//
// Replacement on Put is a single ReplaceOne with upsert keyed by subject, so
// no reader ever observes both the old and the new record for a subject. The
// TTL index on expires_at is only a storage backstop; expired records are
// rejected on use regardless of when Mongo gets around to removing them.
type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a SessionRepository and ensures its indexes.
func NewSessionRepository(ctx context.Context, db *mongo.Database) (*SessionRepository, error) {
	repo := &SessionRepository{
		collection: db.Collection(SessionsCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "refresh_token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		// Index creation fails when existing indexes have conflicting
		// options; surface it, the session store cannot run without its
		// uniqueness guarantees.
		return nil, fmt.Errorf("creating session indexes: %w", err)
	}

	return repo, nil
}

// Put implements domain.SessionRepository.Put. The replacement document
// leaves _id unset: a replace keeps the matched document's _id and an
// upsert-insert gets a server-generated one. Assigning an _id here would
// trip the server's immutable-_id check whenever a record for the subject
// already exists, i.e. on every rotation.
func (r *SessionRepository) Put(ctx context.Context, session *domain.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"subject": session.Subject}, session, opts)
	if err != nil {
		log.Error().Err(err).Str("subject", session.Subject).Msg("storing session")
		return fmt.Errorf("storing session for %s: %w", session.Subject, err)
	}
	return nil
}

// GetByToken implements domain.SessionRepository.GetByToken.
func (r *SessionRepository) GetByToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"refresh_token": refreshToken}).Decode(&session)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Msg("looking up session by refresh token")
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	return &session, nil
}

// DeleteBySubject implements domain.SessionRepository.DeleteBySubject.
func (r *SessionRepository) DeleteBySubject(ctx context.Context, subject string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"subject": subject}); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("deleting session")
		return fmt.Errorf("deleting session for %s: %w", subject, err)
	}
	return nil
}

// DeleteExpiredBefore implements domain.SessionRepository.DeleteExpiredBefore.
func (r *SessionRepository) DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": t}})
	if err != nil {
		return 0, fmt.Errorf("sweeping expired sessions: %w", err)
	}
	if res.DeletedCount > 0 {
		log.Debug().Int64("deleted", res.DeletedCount).Msg("expired sessions swept")
	}
	return res.DeletedCount, nil
}

var _ domain.SessionRepository = (*SessionRepository)(nil)
