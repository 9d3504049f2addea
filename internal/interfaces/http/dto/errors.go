package dto

import (
	"net/http"
	"strings"
)

// API error codes. A domain error code is exposed with the ERR_ prefix.
const (
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeRateLimited        = "ERR_RATE_LIMITED"
	ErrCodePayloadTooLarge    = "ERR_PAYLOAD_TOO_LARGE"

	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"

	ErrCodeUnauthorized   = "ERR_UNAUTHORIZED"
	ErrCodeForbidden      = "ERR_FORBIDDEN"
	ErrCodeTokenExpired   = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid   = "ERR_TOKEN_INVALID"
	ErrCodeSessionExpired = "ERR_SESSION_EXPIRED"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"

	ErrCodeInsufficientStock   = "ERR_INSUFFICIENT_STOCK"
	ErrCodeEmptyCart           = "ERR_EMPTY_CART"
	ErrCodeReservationExpired  = "ERR_RESERVATION_EXPIRED"
	ErrCodeUnsupportedCurrency = "ERR_UNSUPPORTED_CURRENCY"
	ErrCodeUnsupportedCountry  = "ERR_UNSUPPORTED_COUNTRY"
	ErrCodePriceUnavailable    = "ERR_PRICE_UNAVAILABLE"
	ErrCodeInvalidSignature    = "ERR_INVALID_SIGNATURE"
)

var statusByCode = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodePayloadTooLarge:    http.StatusRequestEntityTooLarge,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeUnauthorized:   http.StatusUnauthorized,
	ErrCodeForbidden:      http.StatusForbidden,
	ErrCodeTokenExpired:   http.StatusUnauthorized,
	ErrCodeTokenInvalid:   http.StatusUnauthorized,
	ErrCodeSessionExpired: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,

	ErrCodeInsufficientStock:   http.StatusConflict,
	ErrCodeEmptyCart:           http.StatusUnprocessableEntity,
	ErrCodeReservationExpired:  http.StatusConflict,
	ErrCodeUnsupportedCurrency: http.StatusBadRequest,
	ErrCodeUnsupportedCountry:  http.StatusBadRequest,
	ErrCodePriceUnavailable:    http.StatusUnprocessableEntity,
	ErrCodeInvalidSignature:    http.StatusUnauthorized,
}

// GetHTTPStatus is the status an API error code is answered with, 500 for
// unknown codes
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode maps a domain error code to its API code, so
// "EMPTY_CART" becomes "ERR_EMPTY_CART". INVALID_QUANTITY folds into
// ERR_INVALID_INPUT. API codes and unknown codes are returned unchanged.
func NormalizeErrorCode(code string) string {
	switch {
	case strings.HasPrefix(code, "ERR_"):
		return code
	case code == "INVALID_QUANTITY":
		return ErrCodeInvalidInput
	}
	if _, ok := statusByCode["ERR_"+code]; ok {
		return "ERR_" + code
	}
	return code
}
