package shared

import "fmt"

// DomainError is a business rule violation. Code is stable and is what the
// HTTP layer maps to a status; Message may carry request detail.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string { return e.Message }

// Is matches on Code, so a detailed error still satisfies errors.Is against
// its sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError returns a DomainError with a fixed message
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorf returns a DomainError with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Generic failures
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
)

// Checkout and payment failures
var (
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrEmptyCart           = NewDomainError("EMPTY_CART", "Cart is empty")
	ErrSessionExpired      = NewDomainError("SESSION_EXPIRED", "Shopping session has expired")
	ErrReservationExpired  = NewDomainError("RESERVATION_EXPIRED", "Reservation has expired or was released")
	ErrInvalidSignature    = NewDomainError("INVALID_SIGNATURE", "Webhook signature verification failed")
	ErrUnsupportedCurrency = NewDomainError("UNSUPPORTED_CURRENCY", "Currency is not supported")
	ErrUnsupportedCountry  = NewDomainError("UNSUPPORTED_COUNTRY", "Shipping to this country is not supported")
	ErrPriceUnavailable    = NewDomainError("PRICE_UNAVAILABLE", "Price is not available in the requested currency")
)
