package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Child belongs to the profile identified by ProfileID.
type Child struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	ProfileID   string       `json:"profile_id" gorm:"type:uuid;not null;index"`
	FirstName   string       `json:"first_name" gorm:"type:text;not null"`
	LastName    string       `json:"last_name" gorm:"type:text;not null"`
	SchoolGrade string       `json:"school_grade" gorm:"type:text;not null"`
	DateOfBirth Date         `json:"date_of_birth" gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Child) TableName() string { return "children" }

type CreateRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	SchoolGrade string `json:"school_grade"`
	DateOfBirth string `json:"date_of_birth"`
}

// Build validates r and returns the row to insert.
func (r CreateRequest) Build(id snowflake.ID, profileID string, now time.Time) (Child, error) {
	first := strings.TrimSpace(r.FirstName)
	last := strings.TrimSpace(r.LastName)
	if first == "" || last == "" {
		return Child{}, ErrInvalidChild
	}
	dob, err := ParseDate(r.DateOfBirth)
	if err != nil {
		return Child{}, err
	}
	return Child{
		ID:          id,
		ProfileID:   profileID,
		FirstName:   first,
		LastName:    last,
		SchoolGrade: strings.TrimSpace(r.SchoolGrade),
		DateOfBirth: dob,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type Patch struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	SchoolGrade *string `json:"school_grade"`
	DateOfBirth *string `json:"date_of_birth"`
}

// Fields converts p into column updates.
func (p Patch) Fields() (map[string]any, error) {
	fields := map[string]any{}
	if p.FirstName != nil {
		v := strings.TrimSpace(*p.FirstName)
		if v == "" {
			return nil, ErrInvalidChild
		}
		fields["first_name"] = v
	}
	if p.LastName != nil {
		v := strings.TrimSpace(*p.LastName)
		if v == "" {
			return nil, ErrInvalidChild
		}
		fields["last_name"] = v
	}
	if p.SchoolGrade != nil {
		fields["school_grade"] = strings.TrimSpace(*p.SchoolGrade)
	}
	if p.DateOfBirth != nil {
		dob, err := ParseDate(*p.DateOfBirth)
		if err != nil {
			return nil, err
		}
		fields["date_of_birth"] = dob
	}
	return fields, nil
}
