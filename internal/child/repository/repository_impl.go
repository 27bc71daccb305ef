package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/child/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `id, profile_id, first_name, last_name, school_grade, date_of_birth, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, children ...domain.Child) error {
	if len(children) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&children).Error
}

func (r *repo) ListByProfile(ctx context.Context, db *gorm.DB, profileID string) ([]domain.Child, error) {
	var items []domain.Child
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM children WHERE profile_id = ? ORDER BY created_at ASC, id ASC`,
		profileID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, profileID string, id snowflake.ID) (*domain.Child, error) {
	var c domain.Child
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM children WHERE profile_id = ? AND id = ?`,
		profileID, id,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, profileID string, id snowflake.ID, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Child{}).
		Where("profile_id = ? AND id = ?", profileID, id).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, profileID string, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM children WHERE profile_id = ? AND id = ?`,
		profileID, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteByProfile(ctx context.Context, db *gorm.DB, profileID string) error {
	return db.WithContext(ctx).Exec(`DELETE FROM children WHERE profile_id = ?`, profileID).Error
}
