package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/webhooklog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, l *domain.WebhookLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO webhook_logs (id, event_name, payload, error, processed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.EventName,
		l.Payload,
		l.Error,
		l.ProcessedAt,
		l.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.WebhookLog, error) {
	var l domain.WebhookLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_name, payload, error, processed_at, created_at
		 FROM webhook_logs WHERE id = ?`,
		id,
	).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == 0 {
		return nil, nil
	}
	return &l, nil
}

func (r *repo) FindLatestOpenByEvent(ctx context.Context, db *gorm.DB, eventName string) (*domain.WebhookLog, error) {
	var l domain.WebhookLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_name, payload, error, processed_at, created_at
		 FROM webhook_logs
		 WHERE event_name = ? AND processed_at IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		eventName,
	).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == 0 {
		return nil, nil
	}
	return &l, nil
}

func (r *repo) Close(ctx context.Context, db *gorm.DB, id snowflake.ID, errMsg *string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE webhook_logs SET error = ?, processed_at = ?
		 WHERE id = ? AND processed_at IS NULL`,
		errMsg,
		at,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
