package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/config"
	"github.com/ubuntu-network/api/internal/models"
)

const tokenIssuer = "ubuntu-network"

type JWTService struct {
	secretKey     []byte
	sessionExpiry time.Duration
	logger        *logrus.Logger
	now           func() time.Time
}

func NewJWTService(cfg *config.JWTConfig, logger *logrus.Logger) (*JWTService, error) {
	secretKey := []byte(cfg.SecretKey)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}
	if cfg.SessionExpiry <= 0 {
		return nil, fmt.Errorf("session expiry must be positive")
	}

	return &JWTService{
		secretKey:     secretKey,
		sessionExpiry: cfg.SessionExpiry,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Claims is the session token payload. Subject carries the user id.
type Claims struct {
	Phone    string      `json:"phone"`
	Tier     models.Tier `json:"tier"`
	DeviceID string      `json:"deviceId"`
	jwt.RegisteredClaims
}

func (s *JWTService) SessionExpiry() time.Duration {
	return s.sessionExpiry
}

// IssueSessionToken signs a session token bound to user and deviceID.
func (s *JWTService) IssueSessionToken(user *models.User, deviceID string) (*models.SessionToken, error) {
	now := s.now()
	jti := uuid.New().String()
	expiresAt := now.Add(s.sessionExpiry)

	claims := &Claims{
		Phone:    user.PhoneNumber,
		Tier:     user.Tier,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign session token")
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &models.SessionToken{
		Token:     signed,
		TokenType: "Bearer",
		JTI:       jti,
		ExpiresAt: expiresAt,
		ExpiresIn: s.sessionExpiry,
	}, nil
}

func (s *JWTService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("token is missing subject or id")
	}

	return claims, nil
}

// GenerateSecretKey returns a random 256-bit key suitable for JWT_SECRET_KEY.
func GenerateSecretKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}
