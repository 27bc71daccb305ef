package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository scopes every lookup by the owning profile.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, children ...Child) error
	ListByProfile(ctx context.Context, db *gorm.DB, profileID string) ([]Child, error)
	FindByID(ctx context.Context, db *gorm.DB, profileID string, id snowflake.ID) (*Child, error)
	UpdateFields(ctx context.Context, db *gorm.DB, profileID string, id snowflake.ID, fields map[string]any) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, profileID string, id snowflake.ID) (int64, error)
	DeleteByProfile(ctx context.Context, db *gorm.DB, profileID string) error
}
