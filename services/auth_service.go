package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/pacs-auth/cache"
	"go.pilab.hu/pacs-auth/domain"
	"go.pilab.hu/pacs-auth/dto"
	"go.pilab.hu/pacs-auth/errors"
	"go.pilab.hu/pacs-auth/internal/audit"
)

// AuthService orchestrates signup, login, refresh and logout. It owns the
// session store and the revocation ledger; user accounts belong to the
// external identity store and are only read (plus the single create on
// signup).
//
// Within one subject, a login followed by a refresh observes the login's
// session record. Concurrent logins or refreshes for the same subject race
// and the last writer wins, silently invalidating the loser's refresh token;
// combined with the one-record-per-subject policy this is the documented
// single-session behavior.
type AuthService struct {
	userRepo     domain.UserRepository
	sessionRepo  domain.SessionRepository
	ledger       cache.RevocationLedger
	tokenService *TokenService
	hasher       PasswordHasher
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo domain.UserRepository,
	sessionRepo domain.SessionRepository,
	ledger cache.RevocationLedger,
	tokenService *TokenService,
	hasher PasswordHasher,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		ledger:       ledger,
		tokenService: tokenService,
		hasher:       hasher,
	}
}

// Signup creates the account and performs an implicit login so the caller
// receives an immediately usable token pair. Fails with ErrConflict when the
// username is taken.
func (s *AuthService) Signup(ctx context.Context, username, password, displayName string) (*dto.AuthResponse, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", errors.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Enabled:      true,
		Roles:        []string{domain.DefaultRole},
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.IsConflict(err) {
			audit.Log("AuthService", "Signup", username, "", "username already exists", false, err)
			return nil, err
		}
		return nil, errors.Unavailablef("creating user: %v", err)
	}

	log.Info().Str("username", username).Msg("user signed up")
	audit.Log("AuthService", "Signup", username, "", "account created", true, nil)

	// Implicit login. No prior session can exist for a brand-new subject.
	return s.completeLogin(ctx, user)
}

// Login validates credentials and mints a fresh token pair. Any prior
// session record for the subject is replaced, invalidating its refresh token
// (still-unexpired access tokens from the old session run to natural expiry;
// they are not proactively revoked here). Missing user, disabled account and
// wrong password are all reported as the same ErrUnauthenticated.
func (s *AuthService) Login(ctx context.Context, username, password string) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			audit.Log("AuthService", "Login", username, "", "user not found", false, err)
			return nil, errors.Unauthenticatedf("user %q not found", username)
		}
		return nil, errors.Unavailablef("loading user: %v", err)
	}
	if !user.Enabled {
		audit.Log("AuthService", "Login", username, "", "account disabled", false, nil)
		return nil, errors.Unauthenticatedf("user %q disabled", username)
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		audit.Log("AuthService", "Login", username, "", "password mismatch", false, nil)
		return nil, errors.Unauthenticatedf("password mismatch for %q", username)
	}

	// Single-session policy: a second login supersedes the first session.
	if err := s.sessionRepo.DeleteBySubject(ctx, user.Username); err != nil {
		return nil, errors.Unavailablef("clearing prior session: %v", err)
	}

	audit.Log("AuthService", "Login", username, "", "login successful", true, nil)
	return s.completeLogin(ctx, user)
}

// Refresh rotates a refresh token: the incoming token is matched against the
// session store (a cryptographically valid token that was already superseded
// is rejected), roles are re-read from the identity store so role changes
// take effect within one refresh cycle, and a brand-new pair overwrites the
// session record in place. The old refresh token is single-use by
// construction.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	session, err := s.sessionRepo.GetByToken(ctx, refreshToken)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			audit.Log("AuthService", "Refresh", "", "", "refresh token not found", false, err)
			return nil, errors.Unauthenticatedf("refresh token unknown or superseded")
		}
		return nil, errors.Unavailablef("loading session: %v", err)
	}
	if session.Expired(time.Now()) {
		audit.Log("AuthService", "Refresh", session.Subject, "", "session expired", false, nil)
		return nil, errors.Unauthenticatedf("session for %q expired", session.Subject)
	}

	token, err := s.tokenService.Verify(refreshToken)
	if err != nil {
		audit.Log("AuthService", "Refresh", session.Subject, "", "refresh token failed verification", false, err)
		return nil, errors.Unauthenticatedf("refresh token invalid: %v", err)
	}
	if token.Subject != session.Subject {
		// A stored record whose token names someone else means tampering.
		audit.Log("AuthService", "Refresh", session.Subject, "", "subject mismatch", false, nil)
		return nil, errors.Unauthenticatedf("refresh token subject mismatch")
	}

	user, err := s.userRepo.GetUserByUsername(ctx, session.Subject)
	if err != nil {
		if stderrors.Is(err, domain.ErrNotFound) {
			return nil, errors.Unauthenticatedf("subject %q no longer exists", session.Subject)
		}
		return nil, errors.Unavailablef("loading user: %v", err)
	}
	if !user.Enabled {
		return nil, errors.Unauthenticatedf("subject %q disabled", session.Subject)
	}

	audit.Log("AuthService", "Refresh", user.Username, "", "refresh token rotated", true, nil)
	return s.completeLogin(ctx, user)
}

// Logout revokes the access token's ID for exactly its remaining lifetime.
// The session record is deliberately left alone, mirroring the source
// system; see the open-question note in DESIGN.md.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	token, err := s.tokenService.Inspect(accessToken)
	if err != nil {
		return fmt.Errorf("%w: unparseable access token", errors.ErrInvalidInput)
	}

	remaining, err := s.tokenService.RemainingLifetime(accessToken)
	if err != nil {
		return fmt.Errorf("%w: unparseable access token", errors.ErrInvalidInput)
	}
	if remaining <= 0 {
		// Already expired, nothing to revoke.
		audit.Log("AuthService", "Logout", token.Subject, token.ID, "token already expired", true, nil)
		return nil
	}
	if err := s.ledger.Revoke(ctx, token.ID, remaining); err != nil {
		return errors.Unavailablef("revoking token %s: %v", token.ID, err)
	}

	log.Debug().Str("subject", token.Subject).Str("jti", token.ID).
		Dur("ttl", remaining).Msg("access token revoked")
	audit.Log("AuthService", "Logout", token.Subject, token.ID, "access token revoked", true, nil)
	return nil
}

// completeLogin mints the pair and persists the session record for the
// subject, replacing whatever was there.
func (s *AuthService) completeLogin(ctx context.Context, user *domain.User) (*dto.AuthResponse, error) {
	claims := map[string]any{}
	if len(user.Roles) > 0 {
		claims["roles"] = user.Roles
	}

	access, err := s.tokenService.Issue(domain.TokenKindAccess, user.Username, claims)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.tokenService.Issue(domain.TokenKindRefresh, user.Username, nil)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	session := &domain.Session{
		Subject:      user.Username,
		RefreshToken: refresh.Value,
		ExpiresAt:    refresh.ExpiresAt,
		CreatedAt:    time.Now(),
	}
	if err := s.sessionRepo.Put(ctx, session); err != nil {
		return nil, errors.Unavailablef("storing session: %v", err)
	}

	return &dto.AuthResponse{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		TokenType:    "Bearer",
		ExpiresInSec: int64(s.tokenService.AccessTTL().Seconds()),
		Username:     user.Username,
		DisplayName:  user.DisplayName,
	}, nil
}
