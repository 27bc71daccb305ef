package repository

import (
	"context"

	"github.com/smallbiznis/familyhub/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `id, subscription_id, user_id, customer_id, plan_id, variant_id, status,
	current_period_start, current_period_end, cancel_at, card_brand, card_last_four,
	trial_ends_at, billing_anchor, update_payment_method_url, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.SubscriptionID,
		s.UserID,
		s.CustomerID,
		s.PlanID,
		s.VariantID,
		string(s.Status),
		s.CurrentPeriodStart,
		s.CurrentPeriodEnd,
		s.CancelAt,
		s.CardBrand,
		s.CardLastFour,
		s.TrialEndsAt,
		s.BillingAnchor,
		s.UpdatePaymentMethodURL,
		s.CreatedAt,
		s.UpdatedAt,
	).Error
}

func (r *repo) FindBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM subscriptions WHERE subscription_id = ? LIMIT 1`,
		subscriptionID,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) FindLatestByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM subscriptions WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, subscriptionID string, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("subscription_id = ?", subscriptionID).
		Updates(fields)
	return result.RowsAffected, result.Error
}
