package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/config"
	"github.com/ubuntu-network/api/internal/models"
	"github.com/ubuntu-network/api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testOTPConfig() *config.OTPConfig {
	return &config.OTPConfig{
		Expiry:        5 * time.Minute,
		MaxAttempts:   3,
		HashCost:      bcrypt.MinCost,
		SweepInterval: time.Minute,
		RequestLimit:  5,
		RequestWindow: 15 * time.Minute,
	}
}

func newTestOTPService(clock *fakeClock) (*OTPService, *repository.MemoryOTPStore) {
	store := repository.NewMemoryOTPStore(testLogger())
	svc := NewOTPService(store, testOTPConfig(), testLogger())
	svc.now = clock.Now
	return svc, store
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  map[string]string
	calls int
	err   error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[string]string)}
}

func (n *fakeNotifier) Send(_ context.Context, phoneNumber, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.err != nil {
		return n.err
	}
	n.sent[phoneNumber] = code
	return nil
}

func (n *fakeNotifier) lastCode(phoneNumber string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[phoneNumber]
}

type fakeUserStore struct {
	mu      sync.Mutex
	byPhone map[string]*models.User
	nextID  int
	err     error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byPhone: make(map[string]*models.User)}
}

func (f *fakeUserStore) GetByPhoneNumber(_ context.Context, phoneNumber string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.byPhone[phoneNumber], nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byPhone {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetOrCreate(_ context.Context, phoneNumber string) (*models.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	if u, ok := f.byPhone[phoneNumber]; ok {
		return u, false, nil
	}
	f.nextID++
	u := models.NewUser("user-"+string(rune('0'+f.nextID)), phoneNumber)
	f.byPhone[phoneNumber] = u
	return u, true, nil
}

func (f *fakeUserStore) UpdateDisplayName(_ context.Context, user *models.User, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	stored, ok := f.byPhone[user.PhoneNumber]
	if !ok {
		return errors.New("user not found")
	}
	stored.DisplayName = displayName
	user.DisplayName = displayName
	return nil
}

type fakeLimiter struct {
	allow bool
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) bool {
	l.keys = append(l.keys, key)
	return l.allow
}
