package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/models"
)

// OTPStore holds at most one pending OTP entry per phone number.
type OTPStore interface {
	Put(ctx context.Context, phoneNumber string, entry models.OTPEntry) error
	Get(ctx context.Context, phoneNumber string) (*models.OTPEntry, error)
	Delete(ctx context.Context, phoneNumber string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryOTPStore keeps entries in process memory. Entries do not survive a
// restart; callers must request a new code.
type MemoryOTPStore struct {
	mu      sync.Mutex
	entries map[string]models.OTPEntry
	logger  *logrus.Logger
}

func NewMemoryOTPStore(logger *logrus.Logger) *MemoryOTPStore {
	return &MemoryOTPStore{
		entries: make(map[string]models.OTPEntry),
		logger:  logger,
	}
}

// Put overwrites any existing entry for phoneNumber.
func (s *MemoryOTPStore) Put(_ context.Context, phoneNumber string, entry models.OTPEntry) error {
	s.mu.Lock()
	s.entries[phoneNumber] = entry
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the entry, or nil when none is stored.
func (s *MemoryOTPStore) Get(_ context.Context, phoneNumber string) (*models.OTPEntry, error) {
	s.mu.Lock()
	entry, ok := s.entries[phoneNumber]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, phoneNumber string) error {
	s.mu.Lock()
	delete(s.entries, phoneNumber)
	s.mu.Unlock()
	return nil
}

// DeleteExpired removes every entry that has expired at now.
func (s *MemoryOTPStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for phoneNumber, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, phoneNumber)
			removed++
		}
	}

	if removed > 0 {
		s.logger.WithField("removed", removed).Debug("Swept expired OTP entries")
	}
	return removed, nil
}

func (s *MemoryOTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
