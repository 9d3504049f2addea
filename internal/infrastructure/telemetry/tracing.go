package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName scopes every span started by the application layer
const instrumentationName = "github.com/storefront/backend"

// Span attribute keys
var (
	SpanSessionID      = attribute.Key("checkout.session_id")
	SpanCurrency       = attribute.Key("checkout.currency")
	SpanCountry        = attribute.Key("checkout.country")
	SpanReference      = attribute.Key("payment.reference")
	SpanPaymentGateway = attribute.Key("payment.gateway")
	SpanEventID        = attribute.Key("payment.event_id")
	SpanEventType      = attribute.Key("payment.event_type")
)

// StartServiceSpan starts an internal span named "<service>.<method>" on the
// global tracer provider. The caller ends it.
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
