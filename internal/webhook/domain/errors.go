package domain

import (
	"context"
	"errors"
)

var (
	ErrMissingSignature      = errors.New("missing_signature")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrMissingUserID         = errors.New("missing_user_id")
	ErrInvalidUserID         = errors.New("invalid_user_id")
	ErrMissingSubscriptionID = errors.New("missing_subscription_id")
)

var messages = map[error]string{
	ErrMissingSignature:      "Missing signature",
	ErrInvalidSignature:      "Invalid webhook signature",
	ErrInvalidPayload:        "Invalid webhook payload",
	ErrMissingUserID:         "Missing user_id in custom data",
	ErrInvalidUserID:         "Invalid user_id in custom data",
	ErrMissingSubscriptionID: "Missing subscription id",
}

// Message is the text written to the audit row and the HTTP response.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for sentinel, msg := range messages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

type Service interface {
	// HandleWebhook audits, verifies, applies and relays one delivery.
	HandleWebhook(ctx context.Context, signature string, payload []byte) error
}
