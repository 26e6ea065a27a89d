package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when no matching record exists.
var ErrNotFound = errors.New("not found")

// UserRepository is the boundary to the external identity store. The auth
// subsystem reads users to validate credentials and resolve roles, and
// creates one on signup; everything else about accounts is out of scope.
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	// CreateUser returns errors.ErrConflict (wrapped) when the username is
	// already taken.
	CreateUser(ctx context.Context, user *User) error
}

// SessionRepository persists the single active refresh token per subject.
// Implementations must make Put a single-operation replacement so concurrent
// readers never observe old and new records live together.
type SessionRepository interface {
	// Put replaces any existing record for session.Subject.
	Put(ctx context.Context, session *Session) error
	// GetByToken looks a session up by its refresh token value. A rotated
	// (overwritten) token is simply absent. Returns ErrNotFound when no
	// record matches.
	GetByToken(ctx context.Context, refreshToken string) (*Session, error)
	// DeleteBySubject removes the subject's session record, if any.
	DeleteBySubject(ctx context.Context, subject string) error
	// DeleteExpiredBefore bulk-removes records whose expiry precedes t.
	// Purely a storage bound; expired records are rejected on use anyway.
	DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error)
}
