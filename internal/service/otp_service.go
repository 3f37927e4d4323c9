package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/apperror"
	"github.com/ubuntu-network/api/internal/config"
	"github.com/ubuntu-network/api/internal/models"
	"github.com/ubuntu-network/api/internal/phone"
	"github.com/ubuntu-network/api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpMin   = 100000
	otpRange = 900000
)

// OTPService issues and verifies six digit codes. Expiry is checked on every
// read; the sweeper only reclaims memory.
type OTPService struct {
	store  repository.OTPStore
	cfg    *config.OTPConfig
	logger *logrus.Logger
	now    func() time.Time
	random io.Reader

	// mu serializes read-modify-write on the store. It is never held while
	// hashing or comparing codes.
	mu sync.Mutex
}

func NewOTPService(store repository.OTPStore, cfg *config.OTPConfig, logger *logrus.Logger) *OTPService {
	return &OTPService{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		random: rand.Reader,
	}
}

// Generate stores a fresh code for phoneNumber, replacing any pending one,
// and returns the plain code for delivery.
func (s *OTPService) Generate(ctx context.Context, phoneNumber string) (string, error) {
	n, err := rand.Int(s.random, big.NewInt(otpRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	code := fmt.Sprintf("%d", n.Int64()+otpMin)

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash OTP: %w", err)
	}

	now := s.now()
	entry := models.OTPEntry{
		CodeHash:  string(hashed),
		Phone:     phoneNumber,
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Expiry),
	}

	s.mu.Lock()
	err = s.store.Put(ctx, phoneNumber, entry)
	s.mu.Unlock()
	if err != nil {
		s.logger.WithError(err).Error("Failed to store OTP")
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"phone":      phone.Mask(phoneNumber),
		"expires_at": entry.ExpiresAt,
	}).Info("OTP issued")

	return code, nil
}

// Verify checks code against the pending entry. It returns nil on success and
// one of the apperror OTP sentinels otherwise.
func (s *OTPService) Verify(ctx context.Context, phoneNumber, code string) error {
	s.mu.Lock()
	entry, err := s.checkGates(ctx, phoneNumber)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	matched := bcrypt.CompareHashAndPassword([]byte(entry.CodeHash), []byte(code)) == nil

	s.mu.Lock()
	defer s.mu.Unlock()

	// The entry may have been replaced, consumed or charged while comparing.
	current, err := s.checkGates(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if current.CodeHash != entry.CodeHash {
		return apperror.ErrOTPNotFound
	}

	if !matched {
		current.Attempts++
		if err := s.store.Put(ctx, phoneNumber, *current); err != nil {
			return fmt.Errorf("failed to record OTP attempt: %w", err)
		}
		s.logger.WithFields(logrus.Fields{
			"phone":    phone.Mask(phoneNumber),
			"attempts": current.Attempts,
		}).Warn("Incorrect OTP submitted")
		return apperror.ErrInvalidCode
	}

	if err := s.store.Delete(ctx, phoneNumber); err != nil {
		return fmt.Errorf("failed to clear OTP: %w", err)
	}
	return nil
}

// checkGates loads the entry and applies the expiry and attempt limits,
// deleting the entry when either is hit. Callers must hold s.mu.
func (s *OTPService) checkGates(ctx context.Context, phoneNumber string) (*models.OTPEntry, error) {
	entry, err := s.store.Get(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}
	if entry == nil {
		return nil, apperror.ErrOTPNotFound
	}

	if entry.Expired(s.now()) {
		if err := s.store.Delete(ctx, phoneNumber); err != nil {
			return nil, fmt.Errorf("failed to clear OTP: %w", err)
		}
		return nil, apperror.ErrOTPExpired
	}

	if entry.Attempts >= s.cfg.MaxAttempts {
		if err := s.store.Delete(ctx, phoneNumber); err != nil {
			return nil, fmt.Errorf("failed to clear OTP: %w", err)
		}
		return nil, apperror.ErrTooManyAttempts
	}

	return entry, nil
}

// Clear drops any pending code for phoneNumber.
func (s *OTPService) Clear(ctx context.Context, phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, phoneNumber)
}

// Sweep removes expired entries and returns how many were dropped.
func (s *OTPService) Sweep(ctx context.Context) int {
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.WithError(err).Warn("Failed to sweep expired OTPs")
		return 0
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (s *OTPService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
