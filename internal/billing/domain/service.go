package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/familyhub/internal/config"
)

type Service interface {
	ListPlans() []config.Plan
	CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error)
	GetSubscription(ctx context.Context, userID string) (*SubscriptionStatus, error)
	CancelSubscription(ctx context.Context, userID string) error
}

type CheckoutRequest struct {
	UserID string
	Email  string
	PlanID string
}

// SubscriptionStatus is the view of the current subscription shown to its
// owner.
type SubscriptionStatus struct {
	ID                     string     `json:"id"`
	CustomerID             string     `json:"customer_id"`
	PlanID                 string     `json:"plan_id"`
	Status                 string     `json:"status"`
	CurrentPeriodEnd       time.Time  `json:"current_period_end"`
	CancelAt               *time.Time `json:"cancel_at,omitempty"`
	CardBrand              *string    `json:"card_brand,omitempty"`
	CardLastFour           *string    `json:"card_last_four,omitempty"`
	UpdatePaymentMethodURL *string    `json:"update_payment_method_url,omitempty"`
}

// Provider is the payment provider API used for checkout and cancellation.
type Provider interface {
	CreateCheckout(ctx context.Context, req ProviderCheckout) (string, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

type ProviderCheckout struct {
	VariantID  string
	Email      string
	UserID     string
	PlanID     string
	SuccessURL string
}

var (
	ErrInvalidPlan           = errors.New("invalid_plan")
	ErrInvalidUser           = errors.New("invalid_user")
	ErrNoSubscription        = errors.New("no_subscription")
	ErrAlreadyCanceled       = errors.New("subscription_already_canceled")
	ErrRateLimited           = errors.New("rate_limited")
	ErrCancelInProgress      = errors.New("cancel_in_progress")
	ErrProviderNotConfigured = errors.New("provider_not_configured")
	ErrCheckoutURLMissing    = errors.New("checkout_url_missing")
)
