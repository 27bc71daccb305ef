package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	childdomain "github.com/smallbiznis/familyhub/internal/child/domain"
	"github.com/smallbiznis/familyhub/internal/clock"
	"github.com/smallbiznis/familyhub/internal/profile/domain"
	"github.com/smallbiznis/familyhub/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	ChildRepo childdomain.Repository
	Users     domain.UserDeleter
	Clock     clock.Clock
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	childRepo childdomain.Repository
	users     domain.UserDeleter
	clock     clock.Clock
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("profile.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		childRepo: p.ChildRepo,
		users:     p.Users,
		clock:     clk,
	}
}

func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return false, err
	}
	p, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return false, fmt.Errorf("find profile: %w", err)
	}
	return p != nil, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	return s.ensure(ctx, s.db, userID)
}

func (s *Service) Update(ctx context.Context, userID string, patch domain.Patch) (*domain.Profile, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	fields := patch.Fields()
	fields["updated_at"] = s.clock.Now()

	affected, err := s.repo.UpdateFields(ctx, s.db, userID, fields)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrProfileNotFound
	}
	return s.load(ctx, s.db, userID)
}

func (s *Service) Register(ctx context.Context, userID string, req domain.RegistrationRequest) (*domain.Registration, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ParentFirstName) == "" || strings.TrimSpace(req.ParentLastName) == "" {
		return nil, domain.ErrInvalidRegistration
	}

	now := s.clock.Now()
	children := make([]childdomain.Child, 0, len(req.Children))
	for _, c := range req.Children {
		built, err := c.Build(s.genID.Generate(), userID, now)
		if err != nil {
			return nil, err
		}
		children = append(children, built)
	}

	var result domain.Registration
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ensure(ctx, tx, userID); err != nil {
			return err
		}
		fields := req.Patch().Fields()
		fields["updated_at"] = now
		if _, err := s.repo.UpdateFields(ctx, tx, userID, fields); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if err := s.childRepo.Insert(ctx, tx, children...); err != nil {
			return fmt.Errorf("insert children: %w", err)
		}
		p, err := s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		result.Profile = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Children = children
	s.log.Info("registration completed", zap.String("user_id", userID), zap.Int("children", len(children)))
	return &result, nil
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	userID, err := normalizeUser(userID)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete auth user: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.childRepo.DeleteByProfile(ctx, tx, userID); err != nil {
			return fmt.Errorf("delete children: %w", err)
		}
		if err := s.repo.Delete(ctx, tx, userID); err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("profile deleted", zap.String("user_id", userID))
	return nil
}

func (s *Service) ensure(ctx context.Context, conn *gorm.DB, userID string) (*domain.Profile, error) {
	existing, err := s.repo.FindByID(ctx, conn, userID)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	p := domain.Profile{ID: userID, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Insert(ctx, conn, &p); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		return s.load(ctx, conn, userID)
	}
	s.log.Info("profile created", zap.String("user_id", userID))
	return &p, nil
}

func (s *Service) load(ctx context.Context, conn *gorm.DB, userID string) (*domain.Profile, error) {
	p, err := s.repo.FindByID(ctx, conn, userID)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if p == nil {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func normalizeUser(userID string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return "", domain.ErrInvalidUser
	}
	return parsed.String(), nil
}
