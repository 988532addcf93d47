package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		{ErrCodeNumberContention, http.StatusLocked},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"ERR_SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ITEM_NOT_FOUND", ErrCodeNotFound},
		{"CONCURRENT_MODIFICATION", ErrCodeConcurrencyConflict},
		{"NUMBER_CONTENTION", ErrCodeNumberContention},
		{"DUPLICATE_REQUEST", ErrCodeDuplicateRequest},
		{"NUMBER_ASSIGNED", ErrCodeInvalidState},
		{"INVALID_PAYMENT", ErrCodeInvalidInput},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"SOMETHING_UNMAPPED", "SOMETHING_UNMAPPED"},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeErrorCode(tt.domain))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", "req-123")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Invoice not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "req-123", decoded.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "due_date", Message: "must not be before issue_date"},
	}
	resp := NewValidationErrorResponse("Request validation failed", "req-456", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "due_date", resp.Error.Details[0].Field)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 41, 2, 20)

	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
