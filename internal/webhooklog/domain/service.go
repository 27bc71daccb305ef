package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	LogIncoming(ctx context.Context, eventName string, payload []byte) (snowflake.ID, error)
	MarkSuccess(ctx context.Context, id snowflake.ID) error
	// MarkError closes the row with message. With a zero id the newest open
	// row of eventName is used.
	MarkError(ctx context.Context, id snowflake.ID, eventName, message string) error
}

var (
	ErrLogNotFound = errors.New("webhook_log_not_found")
	ErrLogClosed   = errors.New("webhook_log_closed")
)
