// Package dto defines the request and response payloads of the auth API.
package dto

// SignupRequest creates a new account.
type SignupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginRequest exchanges credentials for a token pair.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse carries a freshly minted token pair. ExpiresInSec is the
// access token's lifetime in seconds.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresInSec int64  `json:"expiresInSec"`
	Username     string `json:"username,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
}

// WhoAmIResponse echoes the authenticated principal.
type WhoAmIResponse struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// ErrorResponse is the uniform error body. Authentication failures share one
// message regardless of cause.
type ErrorResponse struct {
	Error string `json:"error"`
}
