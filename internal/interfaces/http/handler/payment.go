package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	apppayment "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// DefaultMaxWebhookPayloadBytes bounds webhook bodies when no limit is configured
const DefaultMaxWebhookPayloadBytes int64 = 64 * 1024

// Reserver prices the session's cart and reserves its stock
type Reserver interface {
	PriceAndReserve(ctx context.Context, sessionID uuid.UUID, country, currency string) (*appcheckout.CheckoutResponse, error)
}

// WebhookProcessor applies signed payment provider notifications
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*apppayment.WebhookResult, error)
	SignatureHeader() string
}

// PaymentQuery selects the currency and destination country of a checkout
type PaymentQuery struct {
	Currency string `form:"currency" binding:"required,iso4217"`
	Country  string `form:"country" binding:"required,iso3166_1_alpha2"`
}

// PaymentIntentResponse carries what the client needs to start a payment
type PaymentIntentResponse struct {
	Reference string          `json:"reference"`
	PubKey    string          `json:"pub_key"`
	Currency  string          `json:"currency"`
	Country   string          `json:"country"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// PaymentHandler serves checkout payment intents and provider webhooks
type PaymentHandler struct {
	BaseHandler
	reserver        Reserver
	webhooks        WebhookProcessor
	publicKey       string
	maxPayloadBytes int64
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(reserver Reserver, webhooks WebhookProcessor, publicKey string, maxPayloadBytes int64) *PaymentHandler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = DefaultMaxWebhookPayloadBytes
	}
	return &PaymentHandler{
		reserver:        reserver,
		webhooks:        webhooks,
		publicKey:       publicKey,
		maxPayloadBytes: maxPayloadBytes,
	}
}

// CreatePayment godoc
//
//	@Summary		Price and reserve the cart
//	@Description	Price the session's cart for a currency and country, hold its stock and return a payment reference
//	@Tags			payment
//	@Produce		json
//	@Param			currency	query		string	true	"ISO 4217 currency"
//	@Param			country		query		string	true	"ISO 3166-1 alpha-2 country"
//	@Success		200			{object}	dto.Response{data=PaymentIntentResponse}
//	@Failure		400			{object}	dto.Response
//	@Failure		409			{object}	dto.Response	"Insufficient stock"
//	@Failure		422			{object}	dto.Response	"Empty cart or missing price"
//	@Security		BearerAuth
//	@Router			/payment [get]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var query PaymentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	co, err := h.reserver.PriceAndReserve(c.Request.Context(), sessionID, query.Country, query.Currency)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, PaymentIntentResponse{
		Reference: co.Reference,
		PubKey:    h.publicKey,
		Currency:  co.Currency,
		Country:   co.Country,
		Subtotal:  co.Subtotal,
		Shipping:  co.Shipping,
		Tax:       co.Tax,
		Total:     co.Total,
		ExpiresAt: co.ExpiresAt,
	})
}

// Webhook godoc
//
//	@Summary		Payment provider webhook
//	@Description	Receive a signed payment notification. Confirms or releases the reservations of its reference.
//	@Tags			payment
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=apppayment.WebhookResult}
//	@Failure		400	{object}	dto.Response	"Malformed payload"
//	@Failure		401	{object}	dto.Response	"Invalid signature"
//	@Failure		409	{object}	dto.Response	"Reservation expired"
//	@Failure		413	{object}	dto.Response	"Payload too large"
//	@Failure		500	{object}	dto.Response
//	@Router			/payment [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxPayloadBytes+1))
	if err != nil {
		h.rejectWebhook(c, len(body), "read_error", err)
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Failed to read request body")
		return
	}
	if int64(len(body)) > h.maxPayloadBytes {
		h.rejectWebhook(c, len(body), "payload_too_large", nil)
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Webhook payload too large")
		return
	}

	result, err := h.webhooks.HandleWebhook(c.Request.Context(), body, c.GetHeader(h.webhooks.SignatureHeader()))
	switch {
	case err == nil:
		h.Success(c, result)
	case result == nil && errors.Is(err, shared.ErrInvalidSignature):
		h.rejectWebhook(c, len(body), "invalid_signature", err)
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeInvalidSignature, "Invalid webhook signature")
	case result == nil:
		h.rejectWebhook(c, len(body), "malformed", err)
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Malformed webhook payload")
	case errors.Is(err, shared.ErrReservationExpired):
		h.Error(c, http.StatusConflict, dto.ErrCodeReservationExpired, err.Error())
	default:
		// Non-2xx makes the provider retry the delivery
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Failed to process webhook")
	}
}

// rejectWebhook logs a refused delivery without the body or any secret. The
// request-scoped logger already carries request_id.
func (h *PaymentHandler) rejectWebhook(c *gin.Context, payloadBytes int, reason string, err error) {
	fields := []zap.Field{
		zap.String("client_ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()),
		zap.Int("payload_bytes", payloadBytes),
		zap.String("reason", reason),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.GetGinLogger(c).Warn("Webhook rejected", fields...)
}
