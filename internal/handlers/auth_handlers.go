package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/apperror"
	"github.com/ubuntu-network/api/internal/httpresponse"
	"github.com/ubuntu-network/api/internal/middleware"
	"github.com/ubuntu-network/api/internal/models"
	"github.com/ubuntu-network/api/internal/service"
)

type AuthHandlers struct {
	authService *service.AuthService
	validator   *RequestValidator
	logger      *logrus.Logger
}

func NewAuthHandlers(authService *service.AuthService, validator *RequestValidator, logger *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		validator:   validator,
		logger:      logger,
	}
}

type RequestOTPRequest struct {
	Phone string `json:"phone" validate:"required,max=20"`
}

type RequestOTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int64  `json:"expiresIn"`
}

type VerifyOTPRequest struct {
	Phone    string `json:"phone" validate:"required,max=20"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	DeviceID string `json:"deviceId" validate:"required,max=255"`
}

type AuthResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
	User      UserSummary `json:"user"`
	ExpiresIn string      `json:"expiresIn"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type UserSummary struct {
	ID          string      `json:"id"`
	Phone       string      `json:"phone,omitempty"`
	DisplayName string      `json:"displayName"`
	Tier        models.Tier `json:"tier"`
}

func newUserSummary(u *models.User) UserSummary {
	return UserSummary{
		ID:          u.ID,
		Phone:       u.PhoneNumber,
		DisplayName: u.DisplayName,
		Tier:        u.Tier,
	}
}

// formatTTL renders whole days as "7d" and anything else as a Go duration.
func formatTTL(d time.Duration) string {
	if d > 0 && d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	}
	return d.String()
}

// RequestOTP handles POST /auth/request-otp.
func (h *AuthHandlers) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req RequestOTPRequest
	if err := h.validator.decodeAndValidate(w, r, &req); err != nil {
		httpresponse.Error(w, h.logger, err)
		return
	}

	result, err := h.authService.RequestOTP(r.Context(), req.Phone)
	if err != nil {
		httpresponse.Error(w, h.logger, err)
		return
	}

	httpresponse.Success(w, RequestOTPResponse{
		Success:   true,
		Message:   "OTP sent to phone number",
		ExpiresIn: int64(result.ExpiresIn.Seconds()),
	}, "OTP sent successfully")
}

// VerifyOTP handles POST /auth/verify-otp.
func (h *AuthHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := h.validator.decodeAndValidate(w, r, &req); err != nil {
		httpresponse.Error(w, h.logger, err)
		return
	}

	result, err := h.authService.VerifyOTP(r.Context(), req.Phone, req.OTP, req.DeviceID)
	if err != nil {
		httpresponse.Error(w, h.logger, err)
		return
	}

	httpresponse.Success(w, AuthResponse{
		Token:     result.Session.Token,
		TokenType: result.Session.TokenType,
		User:      newUserSummary(result.User),
		ExpiresIn: formatTTL(result.Session.ExpiresIn),
		ExpiresAt: result.Session.ExpiresAt,
	}, "Authentication successful")
}

// Logout handles POST /auth/logout for an authenticated session.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpresponse.Error(w, h.logger, apperror.New(apperror.KindUnauthorized, "Invalid token"))
		return
	}

	if err := h.authService.Logout(r.Context(), claims); err != nil {
		httpresponse.Error(w, h.logger, err)
		return
	}

	httpresponse.Success(w, map[string]bool{"success": true}, "Logged out successfully")
}
