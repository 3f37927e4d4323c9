package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/apperror"
	"github.com/ubuntu-network/api/internal/httpresponse"
	"github.com/ubuntu-network/api/internal/middleware"
	"github.com/ubuntu-network/api/internal/models"
	"github.com/ubuntu-network/api/internal/service"
)

type UserHandlers struct {
	userService *service.UserService
	validator   *RequestValidator
	logger      *logrus.Logger
}

func NewUserHandlers(userService *service.UserService, validator *RequestValidator, logger *logrus.Logger) *UserHandlers {
	return &UserHandlers{
		userService: userService,
		validator:   validator,
		logger:      logger,
	}
}

type UserProfile struct {
	UserSummary
	VouchCount         int                       `json:"vouchCount"`
	VerificationStatus models.VerificationStatus `json:"verificationStatus"`
	StatusColor        string                    `json:"statusColor"`
	CanVouch           bool                      `json:"canVouch"`
	CanWorkWithYouth   bool                      `json:"canWorkWithYouth"`
	CreatedAt          time.Time                 `json:"createdAt"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"required,max=255"`
}

func newUserProfile(u *models.User) UserProfile {
	return UserProfile{
		UserSummary:        newUserSummary(u),
		VouchCount:         u.VouchCount,
		VerificationStatus: u.VerificationStatus,
		StatusColor:        u.Tier.StatusColor(),
		CanVouch:           u.CanVouch(),
		CanWorkWithYouth:   u.CanWorkWithYouth(),
		CreatedAt:          u.CreatedAt,
	}
}

func (h *UserHandlers) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httpresponse.Error(w, h.logger, apperror.New(apperror.KindUnauthorized, "Authentication required"))
		return nil, false
	}
	return user, true
}

// GetMe handles GET /users/me.
func (h *UserHandlers) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	httpresponse.Success(w, newUserProfile(user), "User retrieved successfully")
}

// UpdateMe handles PATCH /users/me.
func (h *UserHandlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := h.validator.decodeAndValidate(w, r, &req); err != nil {
		httpresponse.Error(w, h.logger, err)
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user, req.DisplayName)
	if err != nil {
		httpresponse.Error(w, h.logger, err)
		return
	}
	httpresponse.Success(w, newUserProfile(updated), "Profile updated successfully")
}

// GetUser handles GET /users/{id}. Other members only see the public summary.
func (h *UserHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpresponse.Error(w, h.logger, err)
		return
	}

	summary := newUserSummary(user)
	summary.Phone = ""
	httpresponse.Success(w, summary, "User retrieved successfully")
}
