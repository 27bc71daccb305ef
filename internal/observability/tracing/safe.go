package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var blockedKeys = []string{"email", "name", "password", "secret", "signature", "token", "birth"}

// SafeAttributes drops attributes whose key looks like personal or secret data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if blocked(string(attr.Key)) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

func blocked(key string) bool {
	key = strings.ToLower(key)
	for _, b := range blockedKeys {
		if strings.Contains(key, b) && !strings.HasSuffix(key, "event_name") {
			return true
		}
	}
	return false
}

// SafeError keeps only the outermost message so wrapped driver errors with
// query values are not exported.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if i := strings.Index(msg, ":"); i > 0 {
		msg = msg[:i]
	}
	return errors.New(strings.TrimSpace(msg))
}

// ExtractContext reads remote span context from carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// InjectContext writes the current span context into carrier.
func InjectContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}
