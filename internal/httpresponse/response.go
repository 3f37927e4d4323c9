// Package httpresponse writes the JSON envelopes shared by handlers and
// middleware.
package httpresponse

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/apperror"
)

type SuccessResponse struct {
	Data      interface{} `json:"data"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	StatusCode int               `json:"statusCode"`
	Timestamp  string            `json:"timestamp"`
	Details    map[string]string `json:"details,omitempty"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func Success(w http.ResponseWriter, data interface{}, message string) {
	JSON(w, http.StatusOK, SuccessResponse{
		Data:      data,
		Message:   message,
		Timestamp: timestamp(),
	})
}

// Error maps err to its status and code. Internal errors are logged and their
// message replaced so infrastructure details do not leak.
func Error(w http.ResponseWriter, logger *logrus.Logger, err error) {
	kind := apperror.KindOf(err)
	message := "An unexpected error occurred"
	var details map[string]string

	var appErr *apperror.Error
	if errors.As(err, &appErr) && kind != apperror.KindInternal {
		message = appErr.Message
		details = appErr.Details
	}

	if kind == apperror.KindInternal || kind == apperror.KindDeliveryFailure {
		logger.WithError(err).WithField("code", kind.Code()).Error("Request failed")
	}

	JSON(w, kind.HTTPStatus(), ErrorResponse{
		Error: ErrorDetail{
			Code:       kind.Code(),
			Message:    message,
			StatusCode: kind.HTTPStatus(),
			Timestamp:  timestamp(),
			Details:    details,
		},
	})
}
