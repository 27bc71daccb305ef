package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/clock"
	"github.com/smallbiznis/familyhub/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/familyhub/internal/observability/metrics"
	"github.com/smallbiznis/familyhub/internal/observability/tracing"
	subscriptiondomain "github.com/smallbiznis/familyhub/internal/subscription/domain"
	"github.com/smallbiznis/familyhub/internal/webhook/domain"
	"github.com/smallbiznis/familyhub/internal/webhook/relay"
	"github.com/smallbiznis/familyhub/internal/webhook/signature"
	webhooklogdomain "github.com/smallbiznis/familyhub/internal/webhooklog/domain"
	"github.com/smallbiznis/familyhub/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Verifier      signature.Verifier
	Logs          webhooklogdomain.Service
	Subscriptions subscriptiondomain.Service
	Forwarder     relay.Forwarder
	Clock         clock.Clock
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	verifier   signature.Verifier
	logs       webhooklogdomain.Service
	subs       subscriptiondomain.Service
	forwarder  relay.Forwarder
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		log:        p.Log.Named("webhook.service"),
		verifier:   p.Verifier,
		logs:       p.Logs,
		subs:       p.Subscriptions,
		forwarder:  p.Forwarder,
		clock:      clk,
		obsMetrics: p.ObsMetrics,
	}
}

// HandleWebhook runs one delivery through audit, verification, dispatch and
// relay. The returned error is already recorded on the audit row.
func (s *Service) HandleWebhook(ctx context.Context, sig string, payload []byte) (err error) {
	start := time.Now()
	ctx, _ = correlation.EnsureCorrelationID(ctx)
	eventName := domain.PeekEventName(payload)

	ctx, span := otel.Tracer("familyhub/webhook").Start(ctx, "webhook.handle")
	span.SetAttributes(tracing.SafeAttributes(attribute.String("event_name", eventName))...)
	defer func() {
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, "webhook failed")
		}
		span.End()
	}()

	log := logger.WithContext(ctx, s.log).With(zap.String("event_name", eventName))

	logID, err := s.logs.LogIncoming(ctx, eventName, payload)
	if err != nil {
		log.Error("webhook audit insert failed", zap.Error(err))
		s.obsMetrics.RecordWebhook(ctx, eventName, obsmetrics.OutcomeFailed, time.Since(start))
		return fmt.Errorf("log webhook: %w", err)
	}
	log = log.With(zap.String("webhook_log_id", logID.String()))

	if strings.TrimSpace(sig) == "" {
		return s.fail(ctx, log, logID, eventName, domain.ErrMissingSignature, obsmetrics.OutcomeMissingSignature, start)
	}
	if !s.verifier.Verify(sig, payload) {
		return s.fail(ctx, log, logID, eventName, domain.ErrInvalidSignature, obsmetrics.OutcomeInvalidSignature, start)
	}

	event, err := domain.ParseEvent(payload)
	if err != nil {
		return s.fail(ctx, log, logID, eventName, err, obsmetrics.OutcomeFailed, start)
	}
	if err := s.dispatch(ctx, log, event); err != nil {
		return s.fail(ctx, log, logID, eventName, err, obsmetrics.OutcomeFailed, start)
	}

	s.forwarder.Forward(ctx, payload)

	if err := s.logs.MarkSuccess(ctx, logID); err != nil {
		// state is already applied; a redelivery converges on the same rows
		log.Warn("webhook audit close failed", zap.Error(err))
	}
	s.obsMetrics.RecordWebhook(ctx, eventName, obsmetrics.OutcomeProcessed, time.Since(start))
	log.Info("webhook processed", zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

func (s *Service) fail(
	ctx context.Context,
	log *zap.Logger,
	logID snowflake.ID,
	eventName string,
	cause error,
	outcome string,
	start time.Time,
) error {
	message := domain.Message(cause)
	if err := s.logs.MarkError(ctx, logID, eventName, message); err != nil {
		log.Warn("webhook audit error annotation failed", zap.Error(err))
	}
	s.obsMetrics.RecordWebhook(ctx, eventName, outcome, time.Since(start))

	if errors.Is(cause, domain.ErrMissingSignature) || errors.Is(cause, domain.ErrInvalidSignature) {
		log.Warn("webhook rejected", zap.String("reason", message))
	} else {
		log.Error("webhook failed", zap.Error(cause))
	}
	return cause
}

func (s *Service) dispatch(ctx context.Context, log *zap.Logger, event domain.Event) error {
	var err error
	switch e := event.(type) {
	case domain.SubscriptionCreated:
		err = s.onCreated(ctx, e)
	case domain.SubscriptionUpdated:
		err = s.onUpdated(ctx, log, e)
	case domain.SubscriptionCancelled:
		err = s.subs.Cancel(ctx, e.SubscriptionID)
	case domain.SubscriptionResumed:
		err = s.onResumed(ctx, e)
	case domain.SubscriptionExpired:
		err = s.onExpired(ctx, e)
	case domain.UnknownEvent:
		log.Info("unhandled webhook event ignored")
		return nil
	default:
		return fmt.Errorf("unsupported event type %T", event)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", event.Name(), err)
	}
	return nil
}

func (s *Service) onCreated(ctx context.Context, e domain.SubscriptionCreated) error {
	attrs := e.Attributes
	_, err := s.subs.Create(ctx, subscriptiondomain.CreateRequest{
		SubscriptionID:     e.SubscriptionID,
		UserID:             e.UserID,
		CustomerID:         attrs.CustomerID.String(),
		PlanID:             e.PlanID,
		VariantID:          attrs.VariantID.String(),
		CurrentPeriodStart: attrs.CreatedAt.Time,
		CurrentPeriodEnd:   attrs.RenewsAt.Time,
		CardBrand:          attrs.CardBrand,
		CardLastFour:       attrs.CardLastFour,
		TrialEndsAt:        attrs.TrialEndsAt.Ptr(),
		BillingAnchor:      attrs.BillingAnchor,
	})
	return err
}

func (s *Service) onUpdated(ctx context.Context, log *zap.Logger, e domain.SubscriptionUpdated) error {
	attrs := e.Attributes
	patch := subscriptiondomain.Patch{
		CurrentPeriodEnd: attrs.RenewsAt.Ptr(),
		CancelAt:         attrs.EndsAt.Ptr(),
		CardBrand:        attrs.CardBrand,
		CardLastFour:     attrs.CardLastFour,
		TrialEndsAt:      attrs.TrialEndsAt.Ptr(),
		BillingAnchor:    attrs.BillingAnchor,
	}
	if attrs.Status != "" {
		if status, ok := subscriptiondomain.NormalizeProviderStatus(attrs.Status); ok {
			patch.Status = &status
		} else {
			log.Warn("provider status has no local equivalent", zap.String("provider_status", attrs.Status))
		}
	}
	patch.CustomerID = nonEmpty(attrs.CustomerID.String())
	patch.VariantID = nonEmpty(attrs.VariantID.String())
	patch.UpdatePaymentMethodURL = nonEmpty(attrs.URLs.UpdatePaymentMethod)

	return s.subs.Update(ctx, e.SubscriptionID, patch)
}

func (s *Service) onResumed(ctx context.Context, e domain.SubscriptionResumed) error {
	status := subscriptiondomain.StatusActive
	return s.subs.Update(ctx, e.SubscriptionID, subscriptiondomain.Patch{
		Status:           &status,
		ClearCancelAt:    true,
		CurrentPeriodEnd: e.Attributes.RenewsAt.Ptr(),
	})
}

func (s *Service) onExpired(ctx context.Context, e domain.SubscriptionExpired) error {
	status := subscriptiondomain.StatusExpired
	end := e.Attributes.EndsAt.Time
	if end.IsZero() {
		end = s.clock.Now()
	}
	return s.subs.Update(ctx, e.SubscriptionID, subscriptiondomain.Patch{
		Status:           &status,
		CurrentPeriodEnd: &end,
	})
}

func nonEmpty(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
