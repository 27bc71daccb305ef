package domain

import (
	"context"
	"errors"
)

type Service interface {
	Exists(ctx context.Context, userID string) (bool, error)
	// Get returns the profile, creating an empty one on first access.
	Get(ctx context.Context, userID string) (*Profile, error)
	Update(ctx context.Context, userID string, patch Patch) (*Profile, error)
	Register(ctx context.Context, userID string, req RegistrationRequest) (*Registration, error)
	// Delete removes the auth user and the local profile with its children.
	Delete(ctx context.Context, userID string) error
}

// UserDeleter removes a user from the auth provider.
type UserDeleter interface {
	DeleteUser(ctx context.Context, userID string) error
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrProfileNotFound     = errors.New("profile_not_found")
	ErrInvalidRegistration = errors.New("invalid_registration")
)
