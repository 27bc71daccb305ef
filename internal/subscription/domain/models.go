package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusPastDue  Status = "past_due"
	StatusExpired  Status = "expired"
)

// Subscription is one billing relationship for one user. SubscriptionID is
// the provider-assigned natural key and never changes after insert.
type Subscription struct {
	ID                     snowflake.ID `json:"id" gorm:"primaryKey"`
	SubscriptionID         string       `json:"subscription_id" gorm:"type:text;not null;uniqueIndex"`
	UserID                 string       `json:"user_id" gorm:"type:uuid;not null;index"`
	CustomerID             string       `json:"customer_id" gorm:"type:text"`
	PlanID                 string       `json:"plan_id" gorm:"type:text"`
	VariantID              string       `json:"variant_id" gorm:"type:text"`
	Status                 Status       `json:"status" gorm:"type:text;not null"`
	CurrentPeriodStart     time.Time    `json:"current_period_start"`
	CurrentPeriodEnd       time.Time    `json:"current_period_end"`
	CancelAt               *time.Time   `json:"cancel_at,omitempty"`
	CardBrand              *string      `json:"card_brand,omitempty"`
	CardLastFour           *string      `json:"card_last_four,omitempty"`
	TrialEndsAt            *time.Time   `json:"trial_ends_at,omitempty"`
	BillingAnchor          *int         `json:"billing_anchor,omitempty"`
	UpdatePaymentMethodURL *string      `json:"update_payment_method_url,omitempty"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// CreateRequest carries the fields of a subscription_created event.
type CreateRequest struct {
	SubscriptionID     string
	UserID             string
	CustomerID         string
	PlanID             string
	VariantID          string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CardBrand          *string
	CardLastFour       *string
	TrialEndsAt        *time.Time
	BillingAnchor      *int
}

// Patch is a partial update. Nil fields are left as they are;
// ClearCancelAt writes NULL into cancel_at.
type Patch struct {
	Status                 *Status
	CustomerID             *string
	VariantID              *string
	CurrentPeriodEnd       *time.Time
	CancelAt               *time.Time
	ClearCancelAt          bool
	CardBrand              *string
	CardLastFour           *string
	TrialEndsAt            *time.Time
	BillingAnchor          *int
	UpdatePaymentMethodURL *string
}

func (p Patch) IsEmpty() bool {
	return p.Status == nil &&
		p.CustomerID == nil &&
		p.VariantID == nil &&
		p.CurrentPeriodEnd == nil &&
		p.CancelAt == nil &&
		!p.ClearCancelAt &&
		p.CardBrand == nil &&
		p.CardLastFour == nil &&
		p.TrialEndsAt == nil &&
		p.BillingAnchor == nil &&
		p.UpdatePaymentMethodURL == nil
}

// NormalizeProviderStatus maps a billing provider status onto the local set.
// ok is false for values that have no local equivalent, such as paused.
func NormalizeProviderStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "active", "on_trial":
		return StatusActive, true
	case "past_due", "unpaid":
		return StatusPastDue, true
	case "cancelled", "canceled":
		return StatusCanceled, true
	case "expired":
		return StatusExpired, true
	default:
		return "", false
	}
}
