package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// WebhookLog is the audit row of one inbound delivery. It is written before
// verification and closed exactly once by setting ProcessedAt.
type WebhookLog struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	EventName   string         `json:"event_name" gorm:"type:text;not null;index"`
	Payload     datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Error       *string        `json:"error,omitempty" gorm:"type:text"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null"`
}

func (WebhookLog) TableName() string { return "webhook_logs" }

func (l WebhookLog) IsOpen() bool { return l.ProcessedAt == nil }
