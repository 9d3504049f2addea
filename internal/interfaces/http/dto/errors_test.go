package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeSessionExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeInsufficientStock, http.StatusConflict},
		{ErrCodeEmptyCart, http.StatusUnprocessableEntity},
		{ErrCodeReservationExpired, http.StatusConflict},
		{ErrCodeInvalidSignature, http.StatusUnauthorized},
		{ErrCodeUnsupportedCurrency, http.StatusBadRequest},
		{ErrCodeUnsupportedCountry, http.StatusBadRequest},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode_CoversDomainErrors(t *testing.T) {
	domainErrors := []*shared.DomainError{
		shared.ErrNotFound,
		shared.ErrAlreadyExists,
		shared.ErrInvalidInput,
		shared.ErrConcurrencyConflict,
		shared.ErrUnauthorized,
		shared.ErrForbidden,
		shared.ErrInvalidState,
		shared.ErrInsufficientStock,
		shared.ErrEmptyCart,
		shared.ErrInvalidSignature,
		shared.ErrReservationExpired,
		shared.ErrSessionExpired,
		shared.ErrUnsupportedCurrency,
		shared.ErrUnsupportedCountry,
		shared.ErrPriceUnavailable,
	}
	for _, de := range domainErrors {
		code := NormalizeErrorCode(de.Code)
		assert.Equal(t, "ERR_"+de.Code, code)
		assert.NotEqual(t, http.StatusInternalServerError, GetHTTPStatus(code), "no status for %s", code)
	}

	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
	assert.Equal(t, "SOMETHING_ELSE", NormalizeErrorCode("SOMETHING_ELSE"))
	assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_QUANTITY"))
}

func TestErrorResponse_CarriesRequestID(t *testing.T) {
	resp := Fail(ErrCodeEmptyCart, "Cart is empty", "req-42")
	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, false, decoded["success"])
	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, "ERR_EMPTY_CART", errInfo["code"])
	assert.Equal(t, "req-42", errInfo["request_id"])
	assert.NotContains(t, decoded, "data")
}

func TestInvalid(t *testing.T) {
	resp := Invalid("req-1", []ValidationDetail{
		{Field: "currency", Message: "Must be an ISO 4217 currency code", Code: "iso4217"},
	})
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "currency", resp.Error.Details[0].Field)
}

func TestPaged(t *testing.T) {
	tests := []struct {
		name                string
		total               int64
		pageSize            int
		wantSize, wantPages int
	}{
		{name: "partial last page", total: 41, pageSize: 20, wantSize: 20, wantPages: 3},
		{name: "exact pages", total: 40, pageSize: 20, wantSize: 20, wantPages: 2},
		{name: "empty", total: 0, pageSize: 20, wantSize: 20, wantPages: 0},
		{name: "zero page size", total: 3, pageSize: 0, wantSize: 1, wantPages: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Paged([]int{}, tt.total, 1, tt.pageSize)
			require.NotNil(t, resp.Meta)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.wantSize, resp.Meta.PageSize)
			assert.Equal(t, tt.wantPages, resp.Meta.TotalPages)
		})
	}
}
