package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/apperror"
	"github.com/ubuntu-network/api/internal/config"
	"github.com/ubuntu-network/api/internal/models"
	"github.com/ubuntu-network/api/internal/service"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

type stubSessions struct {
	user *models.User
	err  error
}

func (s *stubSessions) ValidateSession(_ context.Context, _ *service.Claims) (*models.User, error) {
	return s.user, s.err
}

type authFixture struct {
	jwt         *service.JWTService
	revocations *stubRevocations
	sessions    *stubSessions
	handler     http.Handler
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	jwtSvc, err := service.NewJWTService(&config.JWTConfig{
		SecretKey:     "0123456789abcdef0123456789abcdef",
		SessionExpiry: time.Hour,
	}, testLogger())
	if err != nil {
		t.Fatalf("jwt service: %v", err)
	}

	f := &authFixture{
		jwt:         jwtSvc,
		revocations: &stubRevocations{revoked: map[string]bool{}},
		sessions:    &stubSessions{user: &models.User{ID: "user-1", IsActive: true}},
	}
	mw := NewAuthMiddleware(jwtSvc, f.revocations, f.sessions, testLogger())
	f.handler = mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		user, userOK := UserFromContext(r.Context())
		if !ok || !userOK || claims.Subject != user.ID {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return f
}

func (f *authFixture) token(t *testing.T) *models.SessionToken {
	t.Helper()
	session, err := f.jwt.IssueSessionToken(&models.User{ID: "user-1", PhoneNumber: "+27821234567", Tier: models.TierBasic}, "device-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return session
}

func (f *authFixture) do(header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthAllowsValidToken(t *testing.T) {
	f := newAuthFixture(t)

	if rec := f.do("Bearer " + f.token(t).Token); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAuthRejects(t *testing.T) {
	tests := []struct {
		name   string
		header func(f *authFixture, t *testing.T) string
		status int
	}{
		{
			name:   "missing header",
			header: func(*authFixture, *testing.T) string { return "" },
			status: http.StatusUnauthorized,
		},
		{
			name:   "wrong scheme",
			header: func(f *authFixture, t *testing.T) string { return "Token " + f.token(t).Token },
			status: http.StatusUnauthorized,
		},
		{
			name:   "garbage token",
			header: func(*authFixture, *testing.T) string { return "Bearer not-a-jwt" },
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			if rec := f.do(tt.header(f, t)); rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestRequireAuthRejectsRevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	session := f.token(t)
	f.revocations.revoked[session.JTI] = true

	if rec := f.do("Bearer " + session.Token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", rec.Code)
	}
}

func TestRequireAuthFailsClosedOnRevocationError(t *testing.T) {
	f := newAuthFixture(t)
	f.revocations.err = errors.New("redis down")

	if rec := f.do("Bearer " + f.token(t).Token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when revocation cannot be checked, got %d", rec.Code)
	}
}

func TestRequireAuthRejectsInactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	f.sessions.err = apperror.New(apperror.KindForbidden, "User account is inactive")

	if rec := f.do("Bearer " + f.token(t).Token); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestLoggingMiddlewareKeepsStatus(t *testing.T) {
	handler := LoggingMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	handler := CORSMiddleware([]string{"https://app.ubuntu.network"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.ubuntu.network")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.ubuntu.network" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected unknown origin to be refused, got %q", got)
	}
}
