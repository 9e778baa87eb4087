package dto

import (
	"net/http"
	"strings"
)

// Error codes emitted by the HTTP layer itself. Domain errors carry their
// own codes and are mapped to statuses by GetHTTPStatus.
const (
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeInvalidJSON = "INVALID_JSON"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeNoTenant    = "TENANT_REQUIRED"
)

// errorCodeHTTPStatus maps known error codes to HTTP status codes.
// Codes missing here fall back to the prefix rules in GetHTTPStatus.
var errorCodeHTTPStatus = map[string]int{
	// Input problems -> 400 Bad Request
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	// Missing resources -> 404 Not Found
	ErrCodeNotFound: http.StatusNotFound,

	// Tenant context -> 401 Unauthorized
	ErrCodeNoTenant: http.StatusUnauthorized,

	// Concurrent modification -> 409 Conflict
	"OPTIMISTIC_LOCK_ERROR": http.StatusConflict,
	"CONCURRENCY_CONFLICT":  http.StatusConflict,
	"ALREADY_EXISTS":        http.StatusConflict,

	// Business rules -> 422 Unprocessable Entity
	"INVALID_TRANSITION":       http.StatusUnprocessableEntity,
	"INVALID_STATE":            http.StatusUnprocessableEntity,
	"INSUFFICIENT_BALANCE":     http.StatusUnprocessableEntity,
	"INSTRUMENT_NOT_CLEARED":   http.StatusUnprocessableEntity,
	"INSTRUMENT_IN_SETTLEMENT": http.StatusUnprocessableEntity,
	"NOTHING_TO_REFUND":        http.StatusUnprocessableEntity,
	"REFUND_ON_HOLD":           http.StatusUnprocessableEntity,
	"PARTNER_INACTIVE":         http.StatusUnprocessableEntity,
	"REPOSITORY_INACTIVE":      http.StatusUnprocessableEntity,

	// Operator problems -> 500 Internal Server Error
	"CONFIGURATION_ERROR": http.StatusInternalServerError,
	"EXTERNAL_FAILURE":    http.StatusInternalServerError,
	ErrCodeInternal:       http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code. Unknown
// INVALID_* codes are treated as bad input and *_NOT_FOUND codes as
// missing resources; anything else is an internal error.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasSuffix(code, "_NOT_FOUND") {
		return http.StatusNotFound
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
