package payment

import (
	"context"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProviderHMAC names the shared-secret provider
const ProviderHMAC = "hmac"

// HMACVerifier verifies webhooks signed with a shared secret
type HMACVerifier struct {
	config *HMACConfig
}

// NewHMACVerifier creates a new HMACVerifier
func NewHMACVerifier(config *HMACConfig) (*HMACVerifier, error) {
	if config == nil {
		return nil, errNilConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &HMACVerifier{config: config}, nil
}

// Provider returns the provider name
func (v *HMACVerifier) Provider() string {
	return ProviderHMAC
}

// SignatureHeader returns the header carrying the signature
func (v *HMACVerifier) SignatureHeader() string {
	return v.config.HeaderName()
}

// Verify checks the signature over the raw body before decoding anything
func (v *HMACVerifier) Verify(_ context.Context, payload []byte, signatureHeader string) (*payment.WebhookEvent, error) {
	sig := strings.TrimSpace(signatureHeader)
	sig = strings.TrimPrefix(sig, "sha256=")
	if sig == "" {
		return nil, invalidSignature("missing signature")
	}
	given, err := hex.DecodeString(sig)
	if err != nil {
		return nil, invalidSignature("signature is not hex encoded")
	}
	expected, _ := hex.DecodeString(v.config.Sign(payload))
	if !hmac.Equal(given, expected) {
		return nil, invalidSignature("signature mismatch")
	}

	var n hmacNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, malformedPayload("body is not valid JSON")
	}
	if n.ID == "" || n.Type == "" {
		return nil, malformedPayload("event id and type are required")
	}

	event := &payment.WebhookEvent{
		ID:        n.ID,
		Type:      n.Type,
		Kind:      mapHMACEventKind(n.Type),
		Reference: n.Data.Reference,
		PaymentID: n.Data.PaymentID,
		Currency:  strings.ToUpper(n.Data.Currency),
		Provider:  ProviderHMAC,
	}
	if n.Data.Amount != "" {
		amount, err := decimal.NewFromString(n.Data.Amount)
		if err != nil {
			return nil, malformedPayload("amount is not a decimal")
		}
		event.Amount = amount
	}
	if event.Kind != payment.EventKindIgnored && event.Reference == "" {
		return nil, malformedPayload("payment reference is required")
	}
	return event, nil
}

func invalidSignature(reason string) error {
	return shared.NewDomainError(shared.ErrInvalidSignature.Code, "Webhook signature verification failed: "+reason)
}

func malformedPayload(reason string) error {
	return shared.NewDomainError(shared.ErrInvalidInput.Code, "Malformed webhook payload: "+reason)
}

var _ payment.Verifier = (*HMACVerifier)(nil)
