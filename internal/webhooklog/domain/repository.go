package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *WebhookLog) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*WebhookLog, error)
	FindLatestOpenByEvent(ctx context.Context, db *gorm.DB, eventName string) (*WebhookLog, error)
	// Close sets processed_at and error on an open row and reports whether
	// a row was changed.
	Close(ctx context.Context, db *gorm.DB, id snowflake.ID, errMsg *string, at time.Time) (bool, error)
}
