package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const revokedSessionPrefix = "revoked_session:"

type sessionRedis interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionService tracks revoked session tokens by jti until they would have
// expired anyway. Without Redis revocation is disabled and every token is
// accepted until expiry.
type SessionService struct {
	client sessionRedis
	logger *logrus.Logger
}

func NewSessionService(client *redis.Client, logger *logrus.Logger) *SessionService {
	s := &SessionService{logger: logger}
	if client != nil {
		s.client = client
	}
	return s
}

func (s *SessionService) Enabled() bool {
	return s.client != nil
}

func (s *SessionService) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.client == nil {
		s.logger.Warn("Session revocation requested but Redis is not configured")
		return nil
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, revokedSessionPrefix+jti, "1", ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to revoke session")
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *SessionService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.client == nil {
		return false, nil
	}

	exists, err := s.client.Exists(ctx, revokedSessionPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return exists > 0, nil
}
