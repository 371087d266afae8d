package dto

import (
	"net/http"
	"strings"
)

// Error codes raised by the HTTP layer itself. Domain errors keep the
// code they were created with.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,

	// Resource errors
	"ALREADY_EXISTS":    http.StatusConflict,
	"PRODUCT_NOT_FOUND": http.StatusNotFound,
	"PROMO_NOT_FOUND":   http.StatusNotFound,

	// Input errors
	"INVALID_INPUT":   http.StatusBadRequest,
	"INVALID_SESSION": http.StatusBadRequest,
	"SIZE_REQUIRED":   http.StatusBadRequest,
	"COLOR_REQUIRED":  http.StatusBadRequest,

	// Business rule errors -> 422 Unprocessable Entity
	"INVALID_STATE":      http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK": http.StatusUnprocessableEntity,
	"PRODUCT_INACTIVE":   http.StatusUnprocessableEntity,
	"NOTHING_SELECTED":   http.StatusUnprocessableEntity,
	"ALREADY_ACTIVE":     http.StatusConflict,
	"ALREADY_INACTIVE":   http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Codes missing from the table fall back on their shape: *_NOT_FOUND is 404
// and INVALID_* is 400. Anything else is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
