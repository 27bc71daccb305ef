package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context, profileID string) ([]Child, error)
	Add(ctx context.Context, profileID string, req CreateRequest) (*Child, error)
	Update(ctx context.Context, profileID string, id snowflake.ID, patch Patch) (*Child, error)
	Delete(ctx context.Context, profileID string, id snowflake.ID) error
}

var (
	ErrNotFound           = errors.New("child_not_found")
	ErrInvalidChild       = errors.New("invalid_child")
	ErrInvalidDateOfBirth = errors.New("invalid_date_of_birth")
	ErrInvalidProfile     = errors.New("invalid_profile")
)
