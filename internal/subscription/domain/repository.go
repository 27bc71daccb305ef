package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID string) (*Subscription, error)
	FindLatestByUser(ctx context.Context, db *gorm.DB, userID string) (*Subscription, error)
	UpdateFields(ctx context.Context, db *gorm.DB, subscriptionID string, fields map[string]any) (int64, error)
}

// Cache holds the latest subscription per user. Every Invalidate bumps the
// user's version; Set writes only while the version it was given is still
// current, so a fill read before a write cannot outlive that write.
type Cache interface {
	Get(ctx context.Context, userID string) (*Subscription, bool, error)
	Version(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, subscription Subscription, version int64) error
	Invalidate(ctx context.Context, userID string) error
}
