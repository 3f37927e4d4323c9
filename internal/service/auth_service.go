package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/apperror"
	"github.com/ubuntu-network/api/internal/config"
	"github.com/ubuntu-network/api/internal/models"
	"github.com/ubuntu-network/api/internal/phone"
)

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// UserStore is the user directory the auth flow depends on.
type UserStore interface {
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetOrCreate(ctx context.Context, phoneNumber string) (*models.User, bool, error)
	UpdateDisplayName(ctx context.Context, user *models.User, displayName string) error
}

type RequestOTPResult struct {
	Phone     string
	ExpiresIn time.Duration
}

type AuthResult struct {
	Session *models.SessionToken
	User    *models.User
	Created bool
}

// AuthService runs the phone sign-in flow: request a code, verify it, and
// exchange it for a session token.
type AuthService struct {
	otp      *OTPService
	notifier Notifier
	users    UserStore
	jwt      *JWTService
	sessions *SessionService
	limiter  OTPRateLimiter
	cfg      *config.OTPConfig
	logger   *logrus.Logger
}

func NewAuthService(
	otp *OTPService,
	notifier Notifier,
	users UserStore,
	jwt *JWTService,
	sessions *SessionService,
	limiter OTPRateLimiter,
	cfg *config.OTPConfig,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		otp:      otp,
		notifier: notifier,
		users:    users,
		jwt:      jwt,
		sessions: sessions,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger,
	}
}

func normalizePhone(raw string) (string, error) {
	normalized, err := phone.Normalize(raw)
	if err != nil {
		return "", apperror.Validation("Invalid South African phone number", map[string]string{"phone": "must be 0XXXXXXXXX or +27XXXXXXXXX"})
	}
	return normalized, nil
}

// RequestOTP issues a code for rawPhone and delivers it. The code itself is
// never returned.
func (s *AuthService) RequestOTP(ctx context.Context, rawPhone string) (*RequestOTPResult, error) {
	phoneNumber, err := normalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil && !s.limiter.Allow(ctx, phoneNumber) {
		s.logger.WithField("phone", phone.Mask(phoneNumber)).Warn("OTP request rate limited")
		return nil, apperror.ErrRateLimited
	}

	code, err := s.otp.Generate(ctx, phoneNumber)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to generate verification code", err)
	}

	if err := s.notifier.Send(ctx, phoneNumber, code); err != nil {
		if clearErr := s.otp.Clear(ctx, phoneNumber); clearErr != nil {
			s.logger.WithError(clearErr).Warn("Failed to clear undelivered OTP")
		}
		return nil, apperror.Wrap(apperror.KindDeliveryFailure, "Could not deliver verification code, please try again", err)
	}

	return &RequestOTPResult{
		Phone:     phoneNumber,
		ExpiresIn: s.cfg.Expiry,
	}, nil
}

// VerifyOTP checks the code and signs a session token for the (possibly new)
// user registered to rawPhone.
func (s *AuthService) VerifyOTP(ctx context.Context, rawPhone, code, deviceID string) (*AuthResult, error) {
	phoneNumber, err := normalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	if !otpPattern.MatchString(code) {
		return nil, apperror.Validation("OTP must be 6 digits", map[string]string{"otp": "must be 6 digits"})
	}

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, apperror.Validation("Device ID is required", map[string]string{"deviceId": "is required"})
	}

	if err := s.otp.Verify(ctx, phoneNumber, code); err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to verify code", err)
	}

	user, created, err := s.users.GetOrCreate(ctx, phoneNumber)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get or create user")
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to load user", err)
	}

	if !user.IsActive {
		return nil, apperror.New(apperror.KindForbidden, "User account is inactive")
	}

	session, err := s.jwt.IssueSessionToken(user, deviceID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to issue session token", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"created": created,
	}).Info("User signed in")

	return &AuthResult{Session: session, User: user, Created: created}, nil
}

// ValidateSession loads the user a verified token belongs to.
func (s *AuthService) ValidateSession(ctx context.Context, claims *Claims) (*models.User, error) {
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to load user", err)
	}
	if user == nil {
		return nil, apperror.New(apperror.KindNotFound, "User not found")
	}
	if !user.IsActive {
		return nil, apperror.New(apperror.KindForbidden, "User account is inactive")
	}
	return user, nil
}

// Logout revokes the presented token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperror.Wrap(apperror.KindInternal, "Failed to log out", err)
	}
	return nil
}
