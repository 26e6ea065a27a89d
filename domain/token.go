package domain

import "time"

// TokenKind selects the TTL and claim handling for an issued token.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access_token"
	TokenKindRefresh TokenKind = "refresh_token"
)

// Token is the decoded view of a signed token. Tokens are never persisted as
// objects; only the encoded Value travels, and claims are a snapshot taken at
// issuance, never re-derived later.
type Token struct {
	ID        string         // jti, the revocation key for access tokens
	Kind      TokenKind
	Subject   string
	Value     string         // signed, encoded form
	Claims    map[string]any // access tokens only
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Roles extracts the roles claim snapshot, if present.
func (t *Token) Roles() []string {
	raw, ok := t.Claims["roles"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		roles := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	}
	return nil
}
