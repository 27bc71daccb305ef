package domain

import (
	"strings"
	"time"

	childdomain "github.com/smallbiznis/familyhub/internal/child/domain"
)

// Profile is keyed by the auth user id.
type Profile struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid"`
	ParentFirstName  string    `json:"parent_first_name" gorm:"type:text;not null"`
	ParentLastName   string    `json:"parent_last_name" gorm:"type:text;not null"`
	Email            string    `json:"email" gorm:"type:text;not null"`
	PhoneNumber      string    `json:"phone_number" gorm:"type:text;not null"`
	EmergencyContact string    `json:"emergency_contact" gorm:"type:text;not null"`
	StreetAddress    string    `json:"street_address" gorm:"type:text;not null"`
	Apartment        *string   `json:"apartment,omitempty" gorm:"type:text"`
	City             string    `json:"city" gorm:"type:text;not null"`
	StateProvince    string    `json:"state_province" gorm:"type:text;not null"`
	Name             string    `json:"name" gorm:"type:text;not null"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// Patch is a partial profile update. Apartment set to "" clears it.
type Patch struct {
	ParentFirstName  *string `json:"parent_first_name"`
	ParentLastName   *string `json:"parent_last_name"`
	Email            *string `json:"email"`
	PhoneNumber      *string `json:"phone_number"`
	EmergencyContact *string `json:"emergency_contact"`
	StreetAddress    *string `json:"street_address"`
	Apartment        *string `json:"apartment"`
	City             *string `json:"city"`
	StateProvince    *string `json:"state_province"`
	Name             *string `json:"name"`
}

func (p Patch) Fields() map[string]any {
	fields := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			fields[column] = strings.TrimSpace(*v)
		}
	}
	set("parent_first_name", p.ParentFirstName)
	set("parent_last_name", p.ParentLastName)
	set("email", p.Email)
	set("phone_number", p.PhoneNumber)
	set("emergency_contact", p.EmergencyContact)
	set("street_address", p.StreetAddress)
	set("city", p.City)
	set("state_province", p.StateProvince)
	set("name", p.Name)
	if p.Apartment != nil {
		if v := strings.TrimSpace(*p.Apartment); v != "" {
			fields["apartment"] = v
		} else {
			fields["apartment"] = nil
		}
	}
	return fields
}

// RegistrationRequest completes an account after sign-up with the auth
// provider.
type RegistrationRequest struct {
	Email            string                      `json:"email"`
	ParentFirstName  string                      `json:"parent_first_name"`
	ParentLastName   string                      `json:"parent_last_name"`
	PhoneNumber      string                      `json:"phone_number"`
	EmergencyContact string                      `json:"emergency_contact"`
	StreetAddress    string                      `json:"street_address"`
	Apartment        string                      `json:"apartment"`
	City             string                      `json:"city"`
	StateProvince    string                      `json:"state_province"`
	Children         []childdomain.CreateRequest `json:"children"`
}

func (r RegistrationRequest) Patch() Patch {
	name := strings.TrimSpace(strings.TrimSpace(r.ParentFirstName) + " " + strings.TrimSpace(r.ParentLastName))
	return Patch{
		ParentFirstName:  &r.ParentFirstName,
		ParentLastName:   &r.ParentLastName,
		Email:            &r.Email,
		PhoneNumber:      &r.PhoneNumber,
		EmergencyContact: &r.EmergencyContact,
		StreetAddress:    &r.StreetAddress,
		Apartment:        &r.Apartment,
		City:             &r.City,
		StateProvince:    &r.StateProvince,
		Name:             &name,
	}
}

type Registration struct {
	Profile  Profile             `json:"profile"`
	Children []childdomain.Child `json:"children"`
}
