package payment

import "github.com/storefront/backend/internal/domain/payment"

// Event types sent by the shared-secret provider
const (
	hmacEventPaymentSucceeded = "payment.succeeded"
	hmacEventPaymentFailed    = "payment.failed"
	hmacEventPaymentCancelled = "payment.cancelled"
)

// hmacNotification is the webhook body of the shared-secret provider
type hmacNotification struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    hmacPaymentData `json:"data"`
}

type hmacPaymentData struct {
	Reference string `json:"reference"`
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

func mapHMACEventKind(eventType string) payment.EventKind {
	switch eventType {
	case hmacEventPaymentSucceeded:
		return payment.EventKindSucceeded
	case hmacEventPaymentFailed:
		return payment.EventKindFailed
	case hmacEventPaymentCancelled:
		return payment.EventKindCancelled
	default:
		return payment.EventKindIgnored
	}
}
