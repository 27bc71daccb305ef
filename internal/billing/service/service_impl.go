package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/familyhub/internal/billing/domain"
	"github.com/smallbiznis/familyhub/internal/config"
	obsmetrics "github.com/smallbiznis/familyhub/internal/observability/metrics"
	"github.com/smallbiznis/familyhub/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/familyhub/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config        config.Config
	Log           *zap.Logger
	Catalog       *config.PlanCatalog
	Provider      domain.Provider
	Subscriptions subscriptiondomain.Service
	Limiter       *ratelimit.BillingLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics       `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	catalog    *config.PlanCatalog
	provider   domain.Provider
	subs       subscriptiondomain.Service
	limiter    *ratelimit.BillingLimiter
	obsMetrics *obsmetrics.Metrics
	successURL string
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("billing.service"),
		catalog:    p.Catalog,
		provider:   p.Provider,
		subs:       p.Subscriptions,
		limiter:    p.Limiter,
		obsMetrics: p.ObsMetrics,
		successURL: p.Config.AppBaseURL + "/dashboard?checkout=success",
	}
}

func (s *Service) ListPlans() []config.Plan {
	return s.catalog.List()
}

func (s *Service) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return "", domain.ErrInvalidUser
	}
	plan, ok := s.catalog.Find(req.PlanID)
	if !ok {
		return "", domain.ErrInvalidPlan
	}

	result, err := s.limiter.AllowCheckout(ctx, userID)
	if err != nil {
		s.log.Warn("checkout rate limit unavailable", zap.Error(err))
	} else if !result.Allowed {
		return "", domain.ErrRateLimited
	}

	url, err := s.provider.CreateCheckout(ctx, domain.ProviderCheckout{
		VariantID:  plan.VariantID,
		Email:      req.Email,
		UserID:     userID,
		PlanID:     plan.ID,
		SuccessURL: s.successURL,
	})
	if err != nil {
		s.log.Error("checkout creation failed", zap.String("plan_id", plan.ID), zap.Error(err))
		return "", err
	}
	s.obsMetrics.RecordCheckout(ctx, plan.ID)
	return url, nil
}

func (s *Service) GetSubscription(ctx context.Context, userID string) (*domain.SubscriptionStatus, error) {
	sub, err := s.subs.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}
	return &domain.SubscriptionStatus{
		ID:                     sub.SubscriptionID,
		CustomerID:             sub.CustomerID,
		PlanID:                 sub.PlanID,
		Status:                 string(sub.Status),
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		CancelAt:               sub.CancelAt,
		CardBrand:              sub.CardBrand,
		CardLastFour:           sub.CardLastFour,
		UpdatePaymentMethodURL: sub.UpdatePaymentMethodURL,
	}, nil
}

// CancelSubscription cancels at the provider first and then locally, so a
// provider failure leaves the local row untouched.
func (s *Service) CancelSubscription(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUser
	}
	release, ok, err := s.limiter.LockCancel(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrCancelInProgress
	}
	defer release()

	sub, err := s.subs.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return domain.ErrNoSubscription
	}
	if sub.Status == subscriptiondomain.StatusCanceled || sub.Status == subscriptiondomain.StatusExpired {
		return domain.ErrAlreadyCanceled
	}

	if err := s.provider.CancelSubscription(ctx, sub.SubscriptionID); err != nil {
		s.log.Error("provider cancellation failed", zap.String("subscription_id", sub.SubscriptionID), zap.Error(err))
		return err
	}
	if err := s.subs.Cancel(ctx, sub.SubscriptionID); err != nil {
		return err
	}
	s.log.Info("subscription canceled", zap.String("subscription_id", sub.SubscriptionID), zap.String("user_id", userID))
	return nil
}
