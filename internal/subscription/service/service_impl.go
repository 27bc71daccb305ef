package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/clock"
	"github.com/smallbiznis/familyhub/internal/subscription/domain"
	"github.com/smallbiznis/familyhub/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
	Cache domain.Cache `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
	cache domain.Cache
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
		cache: p.Cache,
	}
}

// Create inserts the subscription or, when the provider id is already known,
// refreshes the existing row. Duplicate deliveries converge on one row.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Subscription, error) {
	req.SubscriptionID = strings.TrimSpace(req.SubscriptionID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.SubscriptionID == "" {
		return domain.Subscription{}, domain.ErrInvalidSubscription
	}
	if req.UserID == "" {
		return domain.Subscription{}, domain.ErrInvalidUser
	}

	now := s.clock.Now()
	existing, err := s.repo.FindBySubscriptionID(ctx, s.db, req.SubscriptionID)
	if err != nil {
		return domain.Subscription{}, domain.NewStoreError("find subscription", err)
	}
	if existing != nil {
		return s.refresh(ctx, *existing, req, now)
	}

	sub := domain.Subscription{
		ID:                 s.genID.Generate(),
		SubscriptionID:     req.SubscriptionID,
		UserID:             req.UserID,
		CustomerID:         req.CustomerID,
		PlanID:             req.PlanID,
		VariantID:          req.VariantID,
		Status:             domain.StatusActive,
		CurrentPeriodStart: orNow(req.CurrentPeriodStart, now),
		CurrentPeriodEnd:   orNow(req.CurrentPeriodEnd, now),
		CardBrand:          req.CardBrand,
		CardLastFour:       req.CardLastFour,
		TrialEndsAt:        req.TrialEndsAt,
		BillingAnchor:      req.BillingAnchor,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Insert(ctx, s.db, &sub); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.Subscription{}, domain.NewStoreError("insert subscription", err)
		}
		// lost the race against a concurrent delivery of the same event
		existing, findErr := s.repo.FindBySubscriptionID(ctx, s.db, req.SubscriptionID)
		if findErr != nil || existing == nil {
			return domain.Subscription{}, domain.NewStoreError("insert subscription", err)
		}
		return s.refresh(ctx, *existing, req, now)
	}

	s.invalidate(ctx, sub.UserID)
	s.log.Info("subscription created",
		zap.String("subscription_id", sub.SubscriptionID),
		zap.String("user_id", sub.UserID),
		zap.String("plan_id", sub.PlanID),
	)
	return sub, nil
}

func (s *Service) refresh(ctx context.Context, sub domain.Subscription, req domain.CreateRequest, now time.Time) (domain.Subscription, error) {
	previousUser := sub.UserID

	sub.UserID = req.UserID
	sub.UpdatedAt = now
	fields := map[string]any{
		"user_id":    sub.UserID,
		"updated_at": now,
	}
	// a late created event never reopens a terminated subscription
	if !isTerminal(sub.Status) {
		sub.Status = domain.StatusActive
		sub.CurrentPeriodStart = orNow(req.CurrentPeriodStart, now)
		sub.CurrentPeriodEnd = orNow(req.CurrentPeriodEnd, now)
		fields["status"] = string(sub.Status)
		fields["current_period_start"] = sub.CurrentPeriodStart
		fields["current_period_end"] = sub.CurrentPeriodEnd
	}
	if req.CustomerID != "" {
		sub.CustomerID = req.CustomerID
		fields["customer_id"] = req.CustomerID
	}
	if req.PlanID != "" {
		sub.PlanID = req.PlanID
		fields["plan_id"] = req.PlanID
	}
	if req.VariantID != "" {
		sub.VariantID = req.VariantID
		fields["variant_id"] = req.VariantID
	}
	if req.CardBrand != nil {
		sub.CardBrand = req.CardBrand
		fields["card_brand"] = *req.CardBrand
	}
	if req.CardLastFour != nil {
		sub.CardLastFour = req.CardLastFour
		fields["card_last_four"] = *req.CardLastFour
	}
	if req.TrialEndsAt != nil {
		sub.TrialEndsAt = req.TrialEndsAt
		fields["trial_ends_at"] = *req.TrialEndsAt
	}
	if req.BillingAnchor != nil {
		sub.BillingAnchor = req.BillingAnchor
		fields["billing_anchor"] = *req.BillingAnchor
	}

	if _, err := s.repo.UpdateFields(ctx, s.db, sub.SubscriptionID, fields); err != nil {
		return domain.Subscription{}, domain.NewStoreError("refresh subscription", err)
	}

	s.invalidate(ctx, previousUser)
	if previousUser != sub.UserID {
		s.invalidate(ctx, sub.UserID)
	}
	s.log.Info("subscription refreshed", zap.String("subscription_id", sub.SubscriptionID))
	return sub, nil
}

// Update merges patch into the row identified by subscriptionID.
func (s *Service) Update(ctx context.Context, subscriptionID string, patch domain.Patch) error {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return domain.ErrInvalidSubscription
	}

	existing, err := s.repo.FindBySubscriptionID(ctx, s.db, subscriptionID)
	if err != nil {
		return domain.NewStoreError("find subscription", err)
	}
	if existing == nil {
		return domain.ErrSubscriptionNotFound
	}

	if patch.IsEmpty() {
		return nil
	}

	fields := patchFields(patch)
	fields["updated_at"] = s.clock.Now()
	if _, err := s.repo.UpdateFields(ctx, s.db, subscriptionID, fields); err != nil {
		return domain.NewStoreError("update subscription", err)
	}

	s.invalidate(ctx, existing.UserID)
	return nil
}

// GetByUser returns the newest subscription of the user, or nil.
func (s *Service) GetByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	fill := false
	var version int64
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.log.Warn("subscription cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
		// the version is read before the row so a concurrent write voids the fill
		if version, err = s.cache.Version(ctx, userID); err != nil {
			s.log.Warn("subscription cache version read failed", zap.Error(err))
		} else {
			fill = true
		}
	}

	sub, err := s.repo.FindLatestByUser(ctx, s.db, userID)
	if err != nil {
		return nil, domain.NewStoreError("get subscription by user", err)
	}
	if sub != nil && fill {
		if err := s.cache.Set(ctx, *sub, version); err != nil {
			s.log.Warn("subscription cache write failed", zap.Error(err))
		}
	}
	return sub, nil
}

// Cancel marks the subscription canceled as of now.
func (s *Service) Cancel(ctx context.Context, subscriptionID string) error {
	status := domain.StatusCanceled
	now := s.clock.Now()
	return s.Update(ctx, subscriptionID, domain.Patch{
		Status:   &status,
		CancelAt: &now,
	})
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil || userID == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("subscription cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func patchFields(p domain.Patch) map[string]any {
	fields := map[string]any{}
	if p.Status != nil {
		fields["status"] = string(*p.Status)
	}
	if p.CustomerID != nil {
		fields["customer_id"] = *p.CustomerID
	}
	if p.VariantID != nil {
		fields["variant_id"] = *p.VariantID
	}
	if p.CurrentPeriodEnd != nil {
		fields["current_period_end"] = *p.CurrentPeriodEnd
	}
	switch {
	case p.ClearCancelAt:
		fields["cancel_at"] = nil
	case p.CancelAt != nil:
		fields["cancel_at"] = *p.CancelAt
	}
	if p.CardBrand != nil {
		fields["card_brand"] = *p.CardBrand
	}
	if p.CardLastFour != nil {
		fields["card_last_four"] = *p.CardLastFour
	}
	if p.TrialEndsAt != nil {
		fields["trial_ends_at"] = *p.TrialEndsAt
	}
	if p.BillingAnchor != nil {
		fields["billing_anchor"] = *p.BillingAnchor
	}
	if p.UpdatePaymentMethodURL != nil {
		fields["update_payment_method_url"] = *p.UpdatePaymentMethodURL
	}
	return fields
}

func isTerminal(status domain.Status) bool {
	return status == domain.StatusCanceled || status == domain.StatusExpired
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}
