package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Profile) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Profile, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id string) error
}
