package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go.pilab.hu/pacs-auth/domain"
)

// ErrInvalidToken is returned by Verify for any token that fails signature
// verification, is malformed, or is past its expiry. Callers translate it to
// the coarse unauthenticated category before it leaves the subsystem.
var ErrInvalidToken = errors.New("invalid token")

// registeredClaimKeys are stripped when the open claims map is rebuilt from a
// parsed token, leaving only the custom claims embedded at issuance.
var registeredClaimKeys = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {},
	"iat": {}, "nbf": {}, "jti": {}, "typ": {},
}

// TokenService issues and verifies signed, self-contained tokens. It is a
// pure cryptographic primitive: verification never consults the revocation
// ledger, which is the caller's responsibility. That separation is what makes
// early invalidation need a ledger at all — an unexpired token validates with
// no server round-trip.
type TokenService struct {
	signer     *TokenSigner
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a TokenService signing with the given shared
// secret. accessTTL and refreshTTL select expiry per token kind.
func NewTokenService(signer *TokenSigner, secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		signer:     signer,
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// Issue produces a signed token of the given kind with a fresh random jti.
// The 128-bit ID space makes accidental ledger collisions a non-concern; no
// explicit collision defense exists. The claims map is embedded only on
// access tokens, as a snapshot taken now.
func (s *TokenService) Issue(kind domain.TokenKind, subject string, claims map[string]any) (*domain.Token, error) {
	now := time.Now()

	ttl := s.accessTTL
	if kind == domain.TokenKindRefresh {
		ttl = s.refreshTTL
	}
	expiresAt := now.Add(ttl)
	tokenID := uuid.NewString()

	mapClaims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": subject,
		"exp": jwt.NewNumericDate(expiresAt).Unix(),
		"iat": jwt.NewNumericDate(now).Unix(),
		"nbf": jwt.NewNumericDate(now).Unix(),
		"jti": tokenID,
		"typ": string(kind),
	}
	if kind == domain.TokenKindAccess {
		for k, v := range claims {
			if _, reserved := registeredClaimKeys[k]; !reserved {
				mapClaims[k] = v
			}
		}
	}

	signed, err := s.signer.Sign(mapClaims, "")
	if err != nil {
		return nil, fmt.Errorf("issuing %s: %w", kind, err)
	}

	token := &domain.Token{
		ID:        tokenID,
		Kind:      kind,
		Subject:   subject,
		Value:     signed,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	if kind == domain.TokenKindAccess {
		token.Claims = claims
	}
	return token, nil
}

// Verify checks signature, shape and expiry of an encoded token and returns
// its decoded view. Any failure yields ErrInvalidToken (wrapped); the
// distinction between a bad signature, garbage input and an expired token is
// diagnostic detail only.
func (s *TokenService) Verify(encoded string) (*domain.Token, error) {
	claims, err := s.parse(encoded, true)
	if err != nil {
		return nil, err
	}
	return s.toToken(encoded, claims)
}

// Inspect decodes a token whose signature verifies, skipping expiry
// validation. Logout uses it so an access token can still be revoked for its
// (possibly zero) remaining lifetime right at the expiry boundary.
func (s *TokenService) Inspect(encoded string) (*domain.Token, error) {
	claims, err := s.parse(encoded, false)
	if err != nil {
		return nil, err
	}
	return s.toToken(encoded, claims)
}

// RemainingLifetime returns how long the token is still valid, clamped at
// zero for already-expired tokens. The signature is still verified so a
// forged token cannot seed the revocation ledger.
func (s *TokenService) RemainingLifetime(encoded string) (time.Duration, error) {
	claims, err := s.parse(encoded, false)
	if err != nil {
		return 0, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, fmt.Errorf("%w: missing exp claim", ErrInvalidToken)
	}
	remaining := time.Until(exp.Time)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (s *TokenService) parse(encoded string, validateClaims bool) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsed, err := jwt.ParseWithClaims(encoded, jwt.MapClaims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	return claims, nil
}

func (s *TokenService) toToken(encoded string, claims jwt.MapClaims) (*domain.Token, error) {
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrInvalidToken)
	}
	iat, _ := claims.GetIssuedAt()

	tokenID, _ := claims["jti"].(string)
	kind := domain.TokenKindAccess
	if typ, ok := claims["typ"].(string); ok && typ != "" {
		kind = domain.TokenKind(typ)
	}

	custom := make(map[string]any)
	for k, v := range claims {
		if _, reserved := registeredClaimKeys[k]; !reserved {
			custom[k] = v
		}
	}

	token := &domain.Token{
		ID:        tokenID,
		Kind:      kind,
		Subject:   subject,
		Value:     encoded,
		Claims:    custom,
		ExpiresAt: exp.Time,
	}
	if iat != nil {
		token.IssuedAt = iat.Time
	}
	return token, nil
}
