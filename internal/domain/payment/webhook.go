// Package payment defines the provider-neutral view of payment webhooks.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// EventKind is the normalized meaning of a provider event
type EventKind string

const (
	EventKindSucceeded EventKind = "succeeded"
	EventKindFailed    EventKind = "failed"
	EventKindCancelled EventKind = "cancelled"
	EventKindIgnored   EventKind = "ignored"
)

// WebhookEvent is a verified provider notification
type WebhookEvent struct {
	// ID is the provider's event id, used for duplicate delivery detection
	ID string
	// Type is the provider's raw event type
	Type string
	Kind EventKind
	// Reference is the payment reference issued at checkout
	Reference string
	// PaymentID is the provider's payment/charge identifier
	PaymentID string
	Amount    decimal.Decimal
	Currency  string
	Provider  string
}

// Verifier authenticates a raw webhook body against its signature header and
// decodes it. Implementations must not return an event unless the signature
// is valid. Signature failures wrap shared.ErrInvalidSignature.
type Verifier interface {
	Verify(ctx context.Context, payload []byte, signatureHeader string) (*WebhookEvent, error)
	// Provider names the payment provider
	Provider() string
	// SignatureHeader is the HTTP header carrying the signature
	SignatureHeader() string
}
