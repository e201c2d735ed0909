package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies the category of an application error.
type ErrorCode string

const (
	CodeValidation      ErrorCode = "VALIDATION_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeForbidden       ErrorCode = "FORBIDDEN"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeDayClosed       ErrorCode = "DAY_CLOSED"
	CodeOutOfWindow     ErrorCode = "OUT_OF_WINDOW"
	CodeMisalignedSlot  ErrorCode = "MISALIGNED_SLOT"
	CodeDuplicateSlot   ErrorCode = "DUPLICATE_SLOT"
	CodeSlotTaken       ErrorCode = "SLOT_TAKEN"
	CodeDailyCapacity   ErrorCode = "DAILY_CAPACITY_REACHED"
	CodeStateTransition ErrorCode = "INVALID_STATE_TRANSITION"
)

// AppError represents an application error with an HTTP mapping.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Status  int       `json:"-"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode is consumed by the error middleware and httputil.
func (e *AppError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: "unauthorized",
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Booking rule violations. Every message names the offending product so the
// checkout response never reads as a generic bad request.

func DayClosed(productTitle, weekday string) *AppError {
	return &AppError{
		Code:    CodeDayClosed,
		Message: fmt.Sprintf("%s is not open on %s", productTitle, weekday),
		Status:  http.StatusBadRequest,
	}
}

func OutOfWindow(productTitle, openTime, closeTime string) *AppError {
	return &AppError{
		Code:    CodeOutOfWindow,
		Message: fmt.Sprintf("%s only accepts appointments between %s and %s", productTitle, openTime, closeTime),
		Status:  http.StatusBadRequest,
	}
}

func MisalignedSlot(productTitle string, durationMinutes int) *AppError {
	return &AppError{
		Code:    CodeMisalignedSlot,
		Message: fmt.Sprintf("appointment for %s must start on a %d-minute slot boundary", productTitle, durationMinutes),
		Status:  http.StatusBadRequest,
	}
}

func DuplicateSlot(productTitle string) *AppError {
	return &AppError{
		Code:    CodeDuplicateSlot,
		Message: fmt.Sprintf("cart contains more than one booking for the same slot of %s", productTitle),
		Status:  http.StatusBadRequest,
	}
}

func SlotTaken(productTitle string) *AppError {
	return &AppError{
		Code:    CodeSlotTaken,
		Message: fmt.Sprintf("the requested slot for %s has just been booked", productTitle),
		Status:  http.StatusConflict,
	}
}

func DailyCapacity(productTitle string) *AppError {
	return &AppError{
		Code:    CodeDailyCapacity,
		Message: fmt.Sprintf("%s has no remaining capacity on the requested day", productTitle),
		Status:  http.StatusConflict,
	}
}

func StateTransition(message string) *AppError {
	return &AppError{
		Code:    CodeStateTransition,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
