// Package apperror classifies failures of the auth flow so the HTTP layer can
// map them to a stable code and status without inspecting messages.
package apperror

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindOTPNotFound
	KindExpired
	KindTooManyAttempts
	KindInvalidCode
	KindDeliveryFailure
	KindRateLimited
	KindUnauthorized
	KindForbidden
)

// Code returns the machine-readable error code sent to clients.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindOTPNotFound:
		return "OTP_NOT_FOUND"
	case KindExpired:
		return "OTP_EXPIRED"
	case KindTooManyAttempts:
		return "OTP_TOO_MANY_ATTEMPTS"
	case KindInvalidCode:
		return "OTP_INVALID"
	case KindDeliveryFailure:
		return "DELIVERY_FAILURE"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindUnauthorized:
		return "AUTHENTICATION_ERROR"
	case KindForbidden:
		return "AUTHORIZATION_ERROR"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindOTPNotFound, KindExpired, KindInvalidCode, KindUnauthorized:
		return http.StatusUnauthorized
	case KindTooManyAttempts, KindRateLimited:
		return http.StatusTooManyRequests
	case KindDeliveryFailure:
		return http.StatusServiceUnavailable
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a Kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

var (
	ErrOTPNotFound     = New(KindOTPNotFound, "No pending verification code for this phone number")
	ErrOTPExpired      = New(KindExpired, "Verification code has expired")
	ErrTooManyAttempts = New(KindTooManyAttempts, "Too many incorrect attempts, request a new code")
	ErrInvalidCode     = New(KindInvalidCode, "Incorrect verification code")
	ErrRateLimited     = New(KindRateLimited, "Too many verification codes requested, try again later")
)
