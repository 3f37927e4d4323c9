package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/apperror"
	"github.com/ubuntu-network/api/internal/httpresponse"
	"github.com/ubuntu-network/api/internal/models"
	"github.com/ubuntu-network/api/internal/service"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	userKey   contextKey = "user"
)

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type SessionValidator interface {
	ValidateSession(ctx context.Context, claims *service.Claims) (*models.User, error)
}

type AuthMiddleware struct {
	jwtService  *service.JWTService
	revocations RevocationChecker
	sessions    SessionValidator
	logger      *logrus.Logger
}

func NewAuthMiddleware(
	jwtService *service.JWTService,
	revocations RevocationChecker,
	sessions SessionValidator,
	logger *logrus.Logger,
) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		revocations: revocations,
		sessions:    sessions,
		logger:      logger,
	}
}

// RequireAuth accepts a bearer session token that verifies, has not been
// revoked and belongs to an active user.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondUnauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.VerifyToken(parts[1])
		if err != nil {
			m.logger.WithError(err).Debug("Token verification failed")
			m.respondUnauthorized(w, "Invalid or expired token")
			return
		}

		revoked, err := m.revocations.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			m.logger.WithError(err).Error("Failed to check token revocation")
			m.respondUnauthorized(w, "Unable to validate session")
			return
		}
		if revoked {
			m.respondUnauthorized(w, "Session has been revoked")
			return
		}

		user, err := m.sessions.ValidateSession(r.Context(), claims)
		if err != nil {
			httpresponse.Error(w, m.logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = context.WithValue(ctx, userKey, user)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, message string) {
	httpresponse.Error(w, m.logger, apperror.New(apperror.KindUnauthorized, message))
}

func ClaimsFromContext(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*service.Claims)
	return claims, ok
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}
