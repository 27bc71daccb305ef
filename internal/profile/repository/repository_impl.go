package repository

import (
	"context"

	"github.com/smallbiznis/familyhub/internal/profile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `id, parent_first_name, parent_last_name, email, phone_number, emergency_contact,
	street_address, apartment, city, state_province, name, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO profiles (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.ParentFirstName,
		p.ParentLastName,
		p.Email,
		p.PhoneNumber,
		p.EmergencyContact,
		p.StreetAddress,
		p.Apartment,
		p.City,
		p.StateProvince,
		p.Name,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM profiles WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Exec(`DELETE FROM profiles WHERE id = ?`, id).Error
}
