package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelRole      = "role"
	ProfilingLabelCurrency  = "currency"
	ProfilingLabelEventKind = "event_kind"
)

// Operation names for profiled hot paths
const (
	OperationPriceAndReserve = "price_and_reserve"
	OperationHandleWebhook   = "handle_webhook"
	OperationExpirySweep     = "expiry_sweep"
)

// MaxLabelValueLength caps label values to keep profile series small
const MaxLabelValueLength = 128

// HighCardinalityLabels are dropped from profiling labels. Do not modify at runtime.
var HighCardinalityLabels = map[string]bool{
	"session_id":        true,
	"payment_reference": true,
	"order_id":          true,
	"request_id":        true,
	"trace_id":          true,
	"span_id":           true,
}

// WithProfilingLabels runs fn with Pyroscope labels attached to its samples.
// The labels map is copied, so callers may reuse it afterwards.
//
//	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationHandleWebhook, map[string]string{
//	    telemetry.ProfilingLabelEventKind: string(event.Kind),
//	}), func(ctx context.Context) {
//	    result, err = s.dispatch(ctx, event)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(maps.Clone(labels))
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// OperationLabels creates labels for a named operation
func OperationLabels(operation string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	maps.Copy(labels, extra)
	labels[ProfilingLabelOperation] = operation
	return labels
}

// sanitizeLabels drops empty and high-cardinality labels, truncates long
// values and returns key/value pairs sorted by normalized key.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	clean := make(map[string]string, len(labels))
	for key, value := range labels {
		if key == "" || value == "" || HighCardinalityLabels[key] {
			continue
		}
		k := sanitizeLabelKey(key)
		if k == "" || HighCardinalityLabels[k] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		clean[k] = value
	}

	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, clean[k])
	}
	return pairs
}

// sanitizeLabelKey lowercases key and keeps only [a-z0-9_]
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
