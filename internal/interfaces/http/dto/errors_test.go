package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeNoTenant, http.StatusUnauthorized},
		{"OPTIMISTIC_LOCK_ERROR", http.StatusConflict},
		{"CONCURRENCY_CONFLICT", http.StatusConflict},
		{"ALREADY_EXISTS", http.StatusConflict},
		{"INVALID_TRANSITION", http.StatusUnprocessableEntity},
		{"INSUFFICIENT_BALANCE", http.StatusUnprocessableEntity},
		{"NOTHING_TO_REFUND", http.StatusUnprocessableEntity},
		{"CONFIGURATION_ERROR", http.StatusInternalServerError},
		// Prefix and suffix fallbacks
		{"PAYMENT_NOT_FOUND", http.StatusNotFound},
		{"REPOSITORY_NOT_FOUND", http.StatusNotFound},
		{"INVALID_AMOUNT", http.StatusBadRequest},
		{"INVALID_CORRELATION_ID", http.StatusBadRequest},
		// Unknown codes are internal
		{"SOMETHING_ODD", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	r := NewSuccessResponseWithMeta([]int{1, 2, 3}, 45, 2, 20)

	assert.True(t, r.Success)
	assert.Equal(t, int64(45), r.Meta.Total)
	assert.Equal(t, 3, r.Meta.TotalPages)
}

func TestListRequestNormalize(t *testing.T) {
	r := ListRequest{Page: 0, PageSize: 1000}
	r.Normalize()
	assert.Equal(t, 1, r.Page)
	assert.Equal(t, 200, r.PageSize)

	r = ListRequest{}
	r.Normalize()
	assert.Equal(t, 20, r.PageSize)
}
