// Package middleware contains the request pipeline stages: bearer-token
// authentication and audit logging, composed explicitly and in order on the
// echo router.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/pacs-auth/cache"
	"go.pilab.hu/pacs-auth/domain"
	"go.pilab.hu/pacs-auth/dto"
	"go.pilab.hu/pacs-auth/services"
)

// UnavailableMode selects what the gate does when a dependency store fails
// mid-authentication. Both modes default-deny; neither ever produces a
// silently authenticated request.
type UnavailableMode string

const (
	// UnavailableDeny passes the request through unauthenticated, leaving
	// the rejection to the authorization layer.
	UnavailableDeny UnavailableMode = "deny"
	// UnavailableError answers 503 directly, preferring operator
	// visibility over silent denial.
	UnavailableError UnavailableMode = "error"
)

// AuthnConfig configures the authentication gate.
type AuthnConfig struct {
	TokenService *services.TokenService
	Ledger       cache.RevocationLedger
	Users        domain.UserRepository

	// PublicPaths are skipped entirely. A trailing "/*" matches the whole
	// subtree; anything else is an exact match.
	PublicPaths []string

	// UnavailableMode defaults to UnavailableDeny.
	UnavailableMode UnavailableMode
}

// Authn returns the per-request authentication gate. It is fail-open at this
// layer: a missing, malformed, expired, revoked or otherwise unacceptable
// token lets the request continue without a principal, and downstream
// authorization decides whether that is acceptable for the route. The only
// side effect is on the request's own context.
func Authn(cfg AuthnConfig) echo.MiddlewareFunc {
	mode := cfg.UnavailableMode
	if mode == "" {
		mode = UnavailableDeny
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			// Pre-flight and allowlisted routes skip authentication.
			if req.Method == http.MethodOptions || matchesAny(cfg.PublicPaths, req.URL.Path) {
				return next(c)
			}

			ctx := req.Context()

			// Idempotent short-circuit: the gate composes with other
			// stages and must not re-enter once a principal is attached.
			if _, ok := domain.PrincipalFromContext(ctx); ok {
				return next(c)
			}

			tokenValue, ok := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			token, err := cfg.TokenService.Verify(tokenValue)
			if err != nil {
				log.Debug().Err(err).Msg("authn: token failed verification")
				return next(c)
			}

			revoked, err := cfg.Ledger.IsRevoked(ctx, token.ID)
			if err != nil {
				log.Warn().Err(err).Str("jti", token.ID).Msg("authn: revocation ledger unavailable")
				return unavailable(c, next, mode)
			}
			if revoked {
				log.Debug().Str("jti", token.ID).Msg("authn: token revoked")
				return next(c)
			}

			user, err := cfg.Users.GetUserByUsername(ctx, token.Subject)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return next(c)
				}
				log.Warn().Err(err).Str("subject", token.Subject).Msg("authn: identity store unavailable")
				return unavailable(c, next, mode)
			}
			if !user.Enabled {
				return next(c)
			}

			// Roles come from the identity store now, not from the token's
			// issuance-time snapshot.
			principal := &domain.Principal{Subject: user.Username, Roles: user.Roles}
			c.SetRequest(req.WithContext(domain.ContextWithPrincipal(ctx, principal)))

			return next(c)
		}
	}
}

func unavailable(c echo.Context, next echo.HandlerFunc, mode UnavailableMode) error {
	if mode == UnavailableError {
		return c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "authentication temporarily unavailable"})
	}
	return next(c)
}

// bearerToken extracts the credential from an Authorization header.
func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// matchesAny reports whether path is covered by any allowlist pattern.
func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if matchPath(p, path) {
			return true
		}
	}
	return false
}

func matchPath(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == pattern
}
