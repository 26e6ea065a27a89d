package echo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/pacs-auth/cache"
	"go.pilab.hu/pacs-auth/domain"
	"go.pilab.hu/pacs-auth/dto"
	"go.pilab.hu/pacs-auth/errors"
	"go.pilab.hu/pacs-auth/middleware"
	"go.pilab.hu/pacs-auth/services"
)

// In-memory stores standing in for Mongo, same contracts.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memUserRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memUserRepo) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return fmt.Errorf("%w: username %s", errors.ErrConflict, user.Username)
	}
	m.users[user.Username] = user
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func (m *memSessionRepo) Put(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Subject] = s
	return nil
}

func (m *memSessionRepo) GetByToken(_ context.Context, refreshToken string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.RefreshToken == refreshToken {
			clone := *s
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSessionRepo) DeleteBySubject(_ context.Context, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, subject)
	return nil
}

func (m *memSessionRepo) DeleteExpiredBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "h:" + password, nil }

func (plainHasher) Verify(hashedPassword, password string) error {
	if hashedPassword != "h:"+password {
		return fmt.Errorf("mismatch")
	}
	return nil
}

type app struct {
	e      *echo.Echo
	tokens *services.TokenService
}

func newTestApp(t *testing.T) *app {
	t.Helper()

	signer := services.NewTokenSigner()
	signer.AddKeySigner("api-test-secret")
	tokens := services.NewTokenService(signer, "api-test-secret", "pacs-auth-test", time.Hour, 14*24*time.Hour)

	users := &memUserRepo{users: make(map[string]*domain.User)}
	sessions := &memSessionRepo{sessions: make(map[string]*domain.Session)}
	ledger := cache.NewMemoryRevocationLedger()
	t.Cleanup(ledger.Close)

	authService := services.NewAuthService(users, sessions, ledger, tokens, plainHasher{})

	e := echo.New()
	e.Use(middleware.Authn(middleware.AuthnConfig{
		TokenService: tokens,
		Ledger:       ledger,
		Users:        users,
		PublicPaths:  []string{"/api/auth/*"},
	}))
	NewAuthAPI(authService).RegisterRoutes(e)

	return &app{e: e, tokens: tokens}
}

func (a *app) post(t *testing.T, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(encoded))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) whoami(t *testing.T, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/secure/whoami", nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeAuthResponse(t *testing.T, rec *httptest.ResponseRecorder) dto.AuthResponse {
	t.Helper()
	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// TestTokenLifecycleFlow walks the whole lifecycle: signup, fresh login,
// rotation, rotation reuse, logout, gate rejection of the revoked token.
func TestTokenLifecycleFlow(t *testing.T) {
	a := newTestApp(t)

	// Signup returns an immediately usable pair.
	rec := a.post(t, "/api/auth/signup", dto.SignupRequest{Username: "alice", Password: "pw", DisplayName: "Alice"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	signup := decodeAuthResponse(t, rec)
	assert.Equal(t, "Bearer", signup.TokenType)
	assert.Equal(t, "Alice", signup.DisplayName)

	// Login mints a distinct pair (fresh token IDs).
	rec = a.post(t, "/api/auth/login", dto.LoginRequest{Username: "alice", Password: "pw"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeAuthResponse(t, rec)

	signupAccess, err := a.tokens.Verify(signup.AccessToken)
	require.NoError(t, err)
	loginAccess, err := a.tokens.Verify(login.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, signupAccess.ID, loginAccess.ID)
	assert.NotEqual(t, signup.RefreshToken, login.RefreshToken)

	// Rotation: old refresh works once.
	rec = a.post(t, "/api/auth/refresh", dto.RefreshRequest{RefreshToken: login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decodeAuthResponse(t, rec)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// ...and only once.
	rec = a.post(t, "/api/auth/refresh", dto.RefreshRequest{RefreshToken: login.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The rotated access token passes the gate.
	rec = a.whoami(t, rotated.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var who dto.WhoAmIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &who))
	assert.Equal(t, "alice", who.Name)
	assert.Equal(t, []string{domain.DefaultRole}, who.Roles)

	// Logout revokes it; the unexpired token no longer yields a principal.
	rec = a.post(t, "/api/auth/logout", nil, rotated.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.whoami(t, rotated.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupConflict(t *testing.T) {
	a := newTestApp(t)

	rec := a.post(t, "/api/auth/signup", dto.SignupRequest{Username: "alice", Password: "pw", DisplayName: "Alice"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.post(t, "/api/auth/signup", dto.SignupRequest{Username: "alice", Password: "other", DisplayName: "Imposter"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginFailureBodyIsUniform(t *testing.T) {
	a := newTestApp(t)

	rec := a.post(t, "/api/auth/signup", dto.SignupRequest{Username: "alice", Password: "pw", DisplayName: "Alice"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	unknownUser := a.post(t, "/api/auth/login", dto.LoginRequest{Username: "nobody", Password: "pw"}, "")
	wrongPassword := a.post(t, "/api/auth/login", dto.LoginRequest{Username: "alice", Password: "bad"}, "")

	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.JSONEq(t, unknownUser.Body.String(), wrongPassword.Body.String(),
		"failure body must not hint at account existence")
}

func TestLogoutRequiresBearerHeader(t *testing.T) {
	a := newTestApp(t)

	rec := a.post(t, "/api/auth/logout", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
