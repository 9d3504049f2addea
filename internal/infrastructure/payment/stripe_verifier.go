package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// ProviderStripe names the Stripe provider
const ProviderStripe = "stripe"

// StripeSignatureHeader is the header Stripe signs webhooks with
const StripeSignatureHeader = "Stripe-Signature"

// StripeReferenceMetadataKey is the PaymentIntent metadata key holding our payment reference
const StripeReferenceMetadataKey = "reference"

var errNilConfig = errors.New("payment: config cannot be nil")

// StripeConfig holds configuration for Stripe webhooks
type StripeConfig struct {
	// WebhookSecret is the endpoint secret (whsec_...)
	WebhookSecret string `json:"-" mapstructure:"webhook_secret"`

	// Tolerance bounds the accepted age of the signed timestamp
	Tolerance time.Duration `json:"tolerance" mapstructure:"tolerance"`
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}
	return nil
}

// StripeVerifier verifies Stripe-Signature headers with stripe-go and maps
// PaymentIntent and Checkout Session events onto payment.WebhookEvent.
type StripeVerifier struct {
	config *StripeConfig
}

// NewStripeVerifier creates a new StripeVerifier
func NewStripeVerifier(config *StripeConfig) (*StripeVerifier, error) {
	if config == nil {
		return nil, errNilConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &StripeVerifier{config: config}, nil
}

// Provider returns the provider name
func (v *StripeVerifier) Provider() string {
	return ProviderStripe
}

// SignatureHeader returns the header carrying the signature
func (v *StripeVerifier) SignatureHeader() string {
	return StripeSignatureHeader
}

// Verify validates the signature and decodes the event
func (v *StripeVerifier) Verify(_ context.Context, payload []byte, signatureHeader string) (*payment.WebhookEvent, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, invalidSignature("missing Stripe-Signature header")
	}

	tolerance := v.config.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.config.WebhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                tolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrNoValidSignature) ||
			errors.Is(err, webhook.ErrTooOld) || errors.Is(err, webhook.ErrInvalidHeader) {
			return nil, invalidSignature(err.Error())
		}
		return nil, malformedPayload(err.Error())
	}

	out := &payment.WebhookEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		Kind:     payment.EventKindIgnored,
		Provider: ProviderStripe,
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, malformedPayload("payment intent: " + err.Error())
		}
		out.Kind = mapStripeIntentKind(event.Type)
		out.Reference = pi.Metadata[StripeReferenceMetadataKey]
		out.PaymentID = pi.ID
		fillStripeAmount(out, pi.Amount, string(pi.Currency))

	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, malformedPayload("checkout session: " + err.Error())
		}
		out.Kind = mapStripeSessionKind(event.Type, cs.PaymentStatus)
		out.Reference = cs.ClientReferenceID
		if out.Reference == "" {
			out.Reference = cs.Metadata[StripeReferenceMetadataKey]
		}
		out.PaymentID = cs.ID
		fillStripeAmount(out, cs.AmountTotal, string(cs.Currency))
	}

	if out.Kind != payment.EventKindIgnored && out.Reference == "" {
		return nil, malformedPayload("payment reference missing from " + out.Type)
	}
	return out, nil
}

func mapStripeIntentKind(t stripe.EventType) payment.EventKind {
	switch t {
	case stripe.EventTypePaymentIntentSucceeded:
		return payment.EventKindSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		return payment.EventKindFailed
	default:
		return payment.EventKindCancelled
	}
}

// mapStripeSessionKind treats a completed session as paid only when Stripe
// says so. Delayed methods complete unpaid and settle with an async event.
func mapStripeSessionKind(t stripe.EventType, status stripe.CheckoutSessionPaymentStatus) payment.EventKind {
	switch t {
	case stripe.EventTypeCheckoutSessionCompleted:
		if status == stripe.CheckoutSessionPaymentStatusPaid {
			return payment.EventKindSucceeded
		}
		return payment.EventKindIgnored
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return payment.EventKindSucceeded
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		return payment.EventKindFailed
	default:
		return payment.EventKindCancelled
	}
}

// fillStripeAmount converts Stripe's minor-unit integer into a decimal amount.
// Zero-decimal currencies such as JPY are not scaled.
func fillStripeAmount(out *payment.WebhookEvent, minor int64, currency string) {
	if currency == "" {
		return
	}
	cur := valueobject.Currency(strings.ToUpper(currency))
	out.Currency = cur.String()
	out.Amount = valueobject.NewMoneyFromMinor(minor, cur).Amount()
}

var _ payment.Verifier = (*StripeVerifier)(nil)
