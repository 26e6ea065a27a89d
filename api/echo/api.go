// Package echo exposes the auth service over HTTP.
package echo

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/pacs-auth/domain"
	"go.pilab.hu/pacs-auth/dto"
	"go.pilab.hu/pacs-auth/errors"
	"go.pilab.hu/pacs-auth/services"
)

// AuthAPI holds the handler dependencies.
type AuthAPI struct {
	authService *services.AuthService
}

// NewAuthAPI initializes the auth API.
func NewAuthAPI(authService *services.AuthService) *AuthAPI {
	return &AuthAPI{authService: authService}
}

// RegisterRoutes registers the auth routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/auth/signup", a.SignupHandler)
	e.POST("/api/auth/login", a.LoginHandler)
	e.POST("/api/auth/refresh", a.RefreshHandler)
	e.POST("/api/auth/logout", a.LogoutHandler)

	e.GET("/api/secure/whoami", a.WhoAmIHandler)
}

// SignupHandler creates an account and returns an immediately usable token
// pair (implicit login).
func (a *AuthAPI) SignupHandler(c echo.Context) error {
	var req dto.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed request body"})
	}

	resp, err := a.authService.Signup(c.Request().Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// LoginHandler exchanges credentials for a token pair. Failures are uniform:
// the response never distinguishes an unknown user from a wrong password.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed request body"})
	}

	resp, err := a.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshHandler rotates a refresh token.
func (a *AuthAPI) RefreshHandler(c echo.Context) error {
	var req dto.RefreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed request body"})
	}

	resp, err := a.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// LogoutHandler revokes the presented access token for its remaining
// lifetime. Best-effort: a missing or malformed header is the only client
// error.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "missing Authorization header"})
	}

	if err := a.authService.Logout(c.Request().Context(), parts[1]); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logout ok"})
}

// WhoAmIHandler echoes the authenticated principal, or 401 when the gate
// attached none. Exercises the full authentication path end to end.
func (a *AuthAPI) WhoAmIHandler(c echo.Context) error {
	principal, ok := domain.PrincipalFromContext(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}
	return c.JSON(http.StatusOK, dto.WhoAmIResponse{
		Name:  principal.Subject,
		Roles: principal.Roles,
	})
}

// writeError maps the service error taxonomy onto HTTP statuses. The bodies
// stay deliberately vague for authentication failures.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.IsConflict(err):
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "resource already exists"})
	case errors.IsUnauthenticated(err):
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid credentials"})
	case errors.IsInvalidInput(err):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
	case errors.IsUnavailable(err):
		log.Error().Err(err).Msg("dependency unavailable")
		return c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "service temporarily unavailable"})
	default:
		log.Error().Err(err).Msg("unhandled error")
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}
