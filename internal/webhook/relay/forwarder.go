package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/familyhub/internal/config"
	"github.com/smallbiznis/familyhub/internal/observability/logger"
	"github.com/smallbiznis/familyhub/internal/observability/metrics"
	"github.com/smallbiznis/familyhub/internal/observability/tracing"
	"github.com/smallbiznis/familyhub/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// Forwarder relays a verified payload downstream. It never reports failure.
type Forwarder interface {
	Forward(ctx context.Context, payload []byte)
}

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type HTTPForwarder struct {
	url     string
	client  *http.Client
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(p Params) Forwarder {
	return NewHTTPForwarder(p.Config.Webhook.RelayURL, p.Config.Webhook.RelayTimeout, p.Log, p.Metrics)
}

func NewHTTPForwarder(url string, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *HTTPForwarder {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPForwarder{
		url:     strings.TrimSpace(url),
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     log.Named("webhook.relay"),
		metrics: m,
	}
}

// Forward posts payload to the relay URL and waits at most the configured
// timeout. Errors are logged and counted.
func (f *HTTPForwarder) Forward(ctx context.Context, payload []byte) {
	if f.url == "" {
		return
	}
	log := logger.WithContext(ctx, f.log)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		log.Warn("relay request build failed", zap.Error(err))
		f.metrics.RecordRelayFailure(ctx, "request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	correlation.InjectHeader(ctx, req.Header)
	tracing.InjectContext(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		reason := "transport"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		log.Warn("relay call failed", zap.String("reason", reason), zap.Error(err))
		f.metrics.RecordRelayFailure(ctx, reason)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("relay rejected payload", zap.Int("status", resp.StatusCode))
		f.metrics.RecordRelayFailure(ctx, "status")
		return
	}
	log.Debug("relay delivered",
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
}
