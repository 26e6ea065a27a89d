package domain

import "time"

// DefaultRole is granted to every account created through signup.
const DefaultRole = "ROLE_USER"

// User is an account in the identity store. The auth subsystem only reads
// users (plus the single create on signup); account administration lives
// elsewhere.
type User struct {
	ID           string    `bson:"_id,omitempty"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	DisplayName  string    `bson:"display_name,omitempty"`
	Enabled      bool      `bson:"enabled"`
	Roles        []string  `bson:"roles,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}
