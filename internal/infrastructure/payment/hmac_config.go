package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DefaultHMACSignatureHeader carries the hex HMAC-SHA256 of the raw body
const DefaultHMACSignatureHeader = "X-Webhook-Signature"

// HMACConfig holds configuration for the shared-secret webhook provider
type HMACConfig struct {
	// Secret is the shared key used to sign webhook bodies
	Secret string `json:"-" mapstructure:"webhook_secret"`

	// Header overrides the signature header name
	Header string `json:"header" mapstructure:"signature_header"`
}

// Validate validates the configuration
func (c *HMACConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("hmac: webhook secret is required")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("hmac: webhook secret must be at least 16 characters")
	}
	return nil
}

// HeaderName returns the configured signature header or the default
func (c *HMACConfig) HeaderName() string {
	if c.Header == "" {
		return DefaultHMACSignatureHeader
	}
	return c.Header
}

// Sign returns the hex HMAC-SHA256 of payload. Providers and tests use the
// same function to produce the signature header value.
func (c *HMACConfig) Sign(payload []byte) string {
	h := hmac.New(sha256.New, []byte(c.Secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
