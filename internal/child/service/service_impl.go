package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/child/domain"
	"github.com/smallbiznis/familyhub/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
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

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("child.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) List(ctx context.Context, profileID string) ([]domain.Child, error) {
	profileID, err := normalizeProfile(profileID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByProfile(ctx, s.db, profileID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	if items == nil {
		items = []domain.Child{}
	}
	return items, nil
}

func (s *Service) Add(ctx context.Context, profileID string, req domain.CreateRequest) (*domain.Child, error) {
	profileID, err := normalizeProfile(profileID)
	if err != nil {
		return nil, err
	}
	c, err := req.Build(s.genID.Generate(), profileID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, s.db, c); err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	s.log.Info("child added", zap.String("profile_id", profileID), zap.String("child_id", c.ID.String()))
	return &c, nil
}

func (s *Service) Update(ctx context.Context, profileID string, id snowflake.ID, patch domain.Patch) (*domain.Child, error) {
	profileID, err := normalizeProfile(profileID)
	if err != nil {
		return nil, err
	}
	fields, err := patch.Fields()
	if err != nil {
		return nil, err
	}
	fields["updated_at"] = s.clock.Now()

	affected, err := s.repo.UpdateFields(ctx, s.db, profileID, id, fields)
	if err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}

	c, err := s.repo.FindByID(ctx, s.db, profileID, id)
	if err != nil {
		return nil, fmt.Errorf("find child: %w", err)
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, profileID string, id snowflake.ID) error {
	profileID, err := normalizeProfile(profileID)
	if err != nil {
		return err
	}
	affected, err := s.repo.Delete(ctx, s.db, profileID, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("child deleted", zap.String("profile_id", profileID), zap.String("child_id", id.String()))
	return nil
}

func normalizeProfile(profileID string) (string, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return "", domain.ErrInvalidProfile
	}
	return profileID, nil
}
