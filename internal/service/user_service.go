package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/apperror"
	"github.com/ubuntu-network/api/internal/models"
)

const maxDisplayNameLength = 255

type UserService struct {
	users  UserStore
	logger *logrus.Logger
}

func NewUserService(users UserStore, logger *logrus.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to load user", err)
	}
	if user == nil {
		return nil, apperror.New(apperror.KindNotFound, "User with ID "+id+" not found")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, displayName string) (*models.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, apperror.Validation("Display name must be 1-255 characters", map[string]string{"displayName": "must be 1-255 characters"})
	}

	if err := s.users.UpdateDisplayName(ctx, user, displayName); err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to update profile", err)
	}

	s.logger.WithField("user_id", user.ID).Info("Profile updated")
	return user, nil
}
