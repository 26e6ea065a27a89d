package domain

import "time"

// Session is the single currently-valid refresh token for a subject. It is
// replaced wholesale on every login and on every successful refresh
// (rotation), so at most one record per subject exists at any time.
type Session struct {
	ID           string    `bson:"_id,omitempty"`
	Subject      string    `bson:"subject"`
	RefreshToken string    `bson:"refresh_token"`
	ExpiresAt    time.Time `bson:"expires_at"`
	CreatedAt    time.Time `bson:"created_at"`
}

// Expired reports whether the session record is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
