package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the meter provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
}

// Webhook outcomes.
const (
	OutcomeProcessed        = "processed"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeMissingSignature = "missing_signature"
	OutcomeFailed           = "failed"
)

// Metrics exposes the domain instruments.
type Metrics struct {
	webhookEvents   metric.Int64Counter
	webhookDuration metric.Float64Histogram
	relayFailures   metric.Int64Counter
	checkouts       metric.Int64Counter
}

// NewProvider installs the global meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}
	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

// New creates the instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "familyhub"
	}
	meter := provider.Meter(name)

	webhookEvents, err := meter.Int64Counter("familyhub_webhook_events_total",
		metric.WithDescription("Webhook deliveries by event name and outcome"))
	if err != nil {
		return nil, err
	}
	webhookDuration, err := meter.Float64Histogram("familyhub_webhook_duration_seconds",
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	relayFailures, err := meter.Int64Counter("familyhub_relay_failures_total")
	if err != nil {
		return nil, err
	}
	checkouts, err := meter.Int64Counter("familyhub_checkouts_created_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		webhookEvents:   webhookEvents,
		webhookDuration: webhookDuration,
		relayFailures:   relayFailures,
		checkouts:       checkouts,
	}, nil
}

// RecordWebhook counts one delivery. A nil receiver is a no-op.
func (m *Metrics) RecordWebhook(ctx context.Context, eventName, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if eventName == "" {
		eventName = "unknown"
	}
	attrs := metric.WithAttributes(FilterAttributes(
		attribute.String("event_name", eventName),
		attribute.String("outcome", outcome),
	)...)
	m.webhookEvents.Add(ctx, 1, attrs)
	m.webhookDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *Metrics) RecordRelayFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.relayFailures.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("reason", reason),
	)...))
}

func (m *Metrics) RecordCheckout(ctx context.Context, planID string) {
	if m == nil {
		return
	}
	m.checkouts.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("plan_id", planID),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"event_name":  {},
	"outcome":     {},
	"reason":      {},
	"plan_id":     {},
	"route":       {},
	"method":      {},
	"status_code": {},
}

// FilterAttributes keeps only low-cardinality labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
