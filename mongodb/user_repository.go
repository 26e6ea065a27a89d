package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/pacs-auth/domain"
	"go.pilab.hu/pacs-auth/errors"
)

// UserRepository implements domain.UserRepository. The identity store is an
// external collaborator of the auth subsystem; only the lookup needed for
// credential checks and role resolution plus the signup create live here.
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository creates a UserRepository and ensures the unique username
// index.
func NewUserRepository(ctx context.Context, db *mongo.Database) (*UserRepository, error) {
	repo := &UserRepository{
		users: db.Collection(UsersCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := repo.users.Indexes().CreateMany(ctx, indexModels); err != nil {
		return nil, fmt.Errorf("creating user indexes: %w", err)
	}
	return repo, nil
}

// GetUserByUsername implements domain.UserRepository.GetUserByUsername.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Str("username", username).Msg("looking up user")
		return nil, fmt.Errorf("looking up user %s: %w", username, err)
	}
	return &user, nil
}

// CreateUser implements domain.UserRepository.CreateUser. A duplicate
// username surfaces as errors.ErrConflict.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: username %s", errors.ErrConflict, user.Username)
		}
		log.Error().Err(err).Str("username", user.Username).Msg("creating user")
		return fmt.Errorf("creating user %s: %w", user.Username, err)
	}
	return nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
