package domain

import (
	"context"
	"errors"
	"fmt"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Subscription, error)
	Update(ctx context.Context, subscriptionID string, patch Patch) error
	GetByUser(ctx context.Context, userID string) (*Subscription, error)
	Cancel(ctx context.Context, subscriptionID string) error
}

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrInvalidUser          = errors.New("invalid_user")
)

// StoreError wraps a persistence failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("subscription store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError returns nil for a nil err.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
