package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/clock"
	"github.com/smallbiznis/familyhub/internal/webhooklog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("webhooklog.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) LogIncoming(ctx context.Context, eventName string, payload []byte) (snowflake.ID, error) {
	entry := domain.WebhookLog{
		ID:        s.genID.Generate(),
		EventName: strings.TrimSpace(eventName),
		Payload:   auditablePayload(payload),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		return 0, fmt.Errorf("insert webhook log: %w", err)
	}
	return entry.ID, nil
}

func (s *Service) MarkSuccess(ctx context.Context, id snowflake.ID) error {
	return s.close(ctx, id, nil)
}

func (s *Service) MarkError(ctx context.Context, id snowflake.ID, eventName, message string) error {
	if id == 0 {
		open, err := s.repo.FindLatestOpenByEvent(ctx, s.db, strings.TrimSpace(eventName))
		if err != nil {
			return fmt.Errorf("find open webhook log: %w", err)
		}
		if open == nil {
			s.log.Warn("no open webhook log to annotate", zap.String("event_name", eventName))
			return domain.ErrLogNotFound
		}
		id = open.ID
	}
	return s.close(ctx, id, &message)
}

func (s *Service) close(ctx context.Context, id snowflake.ID, errMsg *string) error {
	changed, err := s.repo.Close(ctx, s.db, id, errMsg, s.clock.Now())
	if err != nil {
		return fmt.Errorf("close webhook log: %w", err)
	}
	if changed {
		return nil
	}
	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("find webhook log: %w", err)
	}
	if existing == nil {
		return domain.ErrLogNotFound
	}
	return domain.ErrLogClosed
}

// auditablePayload keeps valid JSON as is and stores anything else as a
// JSON string so the row can always be written.
func auditablePayload(payload []byte) datatypes.JSON {
	if len(payload) > 0 && json.Valid(payload) {
		return datatypes.JSON(payload)
	}
	encoded, _ := json.Marshal(string(payload))
	return datatypes.JSON(encoded)
}
