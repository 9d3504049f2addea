package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabels(t *testing.T) {
	long := strings.Repeat("x", MaxLabelValueLength+10)

	got := sanitizeLabels(map[string]string{
		"Event-Kind": "payment.succeeded",
		"session_id": "4f1c",
		"operation":  OperationHandleWebhook,
		"empty":      "",
		"currency":   long,
		"!!":         "dropped",
	})

	assert.Equal(t, []string{
		"currency", long[:MaxLabelValueLength],
		"event_kind", "payment.succeeded",
		"operation", OperationHandleWebhook,
	}, got)
}

func TestOperationLabels(t *testing.T) {
	labels := OperationLabels(OperationPriceAndReserve, map[string]string{
		ProfilingLabelCurrency:  "GBP",
		ProfilingLabelOperation: "overridden",
	})
	assert.Equal(t, OperationPriceAndReserve, labels[ProfilingLabelOperation])
	assert.Equal(t, "GBP", labels[ProfilingLabelCurrency])
}

func TestWithProfilingLabels_RunsFn(t *testing.T) {
	ran := 0
	WithProfilingLabels(context.Background(), nil, func(context.Context) { ran++ })
	WithProfilingLabels(context.Background(), OperationLabels(OperationExpirySweep, nil), func(context.Context) { ran++ })
	assert.Equal(t, 2, ran)
}
