package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

const maxSpanErrorLength = 256

// ExtractContext merges inbound trace headers into the request context.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

var allowedSpanKeys = map[attribute.Key]struct{}{
	"http.method":             {},
	"http.route":              {},
	"http.status_code":        {},
	"http.server_duration_ms": {},
	"request_id":              {},
	"tenant_id":               {},
	"view":                    {},
	"table":                   {},
	"stage":                   {},
	"driver":                  {},
	"rows":                    {},
	"correlation_id":          {},
}

// SafeAttributes strips span attributes that are not on the allowlist.
// Raw SQL, filters and identifiers beyond the tenant never reach spans.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedSpanKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

// SafeError returns a span-safe rendering of err. Messages are flattened
// to a single line and truncated so statement text cannot leak wholesale.
func SafeError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > maxSpanErrorLength {
		msg = msg[:maxSpanErrorLength]
	}
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
