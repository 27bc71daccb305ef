package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gosimple/slug"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Plan is one purchasable entry of the pricing page.
type Plan struct {
	ID          string   `mapstructure:"id" json:"id"`
	VariantID   string   `mapstructure:"variantId" json:"variant_id"`
	Name        string   `mapstructure:"name" json:"name"`
	Description string   `mapstructure:"description" json:"description"`
	PriceCents  int64    `mapstructure:"priceCents" json:"price_cents"`
	Interval    string   `mapstructure:"interval" json:"interval"`
	Features    []string `mapstructure:"features" json:"features"`
}

const (
	IntervalMonthly    = "monthly"
	IntervalYearly     = "yearly"
	IntervalSemiAnnual = "semi-annual"
	IntervalOnceOff    = "once-off"
)

func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:          "basic-monthly",
			VariantID:   "615476",
			Name:        "Basic Monthly",
			Description: "Perfect for small families",
			PriceCents:  999,
			Interval:    IntervalMonthly,
			Features:    []string{"Up to 2 children", "Basic activity tracking", "Email support"},
		},
		{
			ID:          "basic-yearly",
			VariantID:   "615482",
			Name:        "Basic Yearly",
			Description: "Perfect for small families",
			PriceCents:  9999,
			Interval:    IntervalYearly,
			Features:    []string{"Up to 2 children", "Basic activity tracking", "Email support", "2 months free"},
		},
		{
			ID:          "premium-monthly",
			VariantID:   "615487",
			Name:        "Premium Monthly",
			Description: "Ideal for growing families",
			PriceCents:  1999,
			Interval:    IntervalMonthly,
			Features:    []string{"Unlimited children", "Advanced activity tracking", "Priority support", "Custom reports"},
		},
		{
			ID:          "premium-yearly",
			VariantID:   "615477",
			Name:        "Premium Yearly",
			Description: "Ideal for growing families",
			PriceCents:  19999,
			Interval:    IntervalYearly,
			Features:    []string{"Unlimited children", "Advanced activity tracking", "Priority support", "Custom reports", "2 months free"},
		},
	}
}

// PlanCatalog holds the current plan list and swaps it when plans.yml changes.
type PlanCatalog struct {
	current atomic.Value // holds []Plan
}

// NewPlanCatalogFromPlans builds a static catalog.
func NewPlanCatalogFromPlans(plans []Plan) (*PlanCatalog, error) {
	normalized, err := normalizePlans(plans)
	if err != nil {
		return nil, err
	}
	catalog := &PlanCatalog{}
	catalog.current.Store(normalized)
	return catalog, nil
}

// NewPlanCatalog reads plans.yml when present and watches it for changes.
// Without a file the default plans are served.
func NewPlanCatalog(cfg Config, log *zap.Logger) (*PlanCatalog, error) {
	log = log.Named("config.plans")
	v := viper.New()

	if cfg.PlansConfigPath != "" {
		v.SetConfigFile(cfg.PlansConfigPath)
	} else {
		v.SetConfigName("plans")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/familyhub")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("plans config not found, serving defaults")
		return NewPlanCatalogFromPlans(DefaultPlans())
	}

	plans, err := decodePlans(v)
	if err != nil {
		return nil, err
	}
	catalog := &PlanCatalog{}
	catalog.current.Store(plans)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePlans(v)
		if err != nil {
			log.Warn("plans reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		catalog.current.Store(updated)
		log.Info("plans reloaded", zap.String("file", e.Name), zap.Int("count", len(updated)))
	})

	return catalog, nil
}

// List returns a copy of the current plans.
func (c *PlanCatalog) List() []Plan {
	plans, _ := c.current.Load().([]Plan)
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// Find looks a plan up by id.
func (c *PlanCatalog) Find(id string) (Plan, bool) {
	id = strings.TrimSpace(id)
	for _, plan := range c.List() {
		if plan.ID == id {
			return plan, true
		}
	}
	return Plan{}, false
}

func decodePlans(v *viper.Viper) ([]Plan, error) {
	var plans []Plan
	if err := v.UnmarshalKey("plans", &plans); err != nil {
		return nil, err
	}
	return normalizePlans(plans)
}

func normalizePlans(plans []Plan) ([]Plan, error) {
	if len(plans) == 0 {
		return nil, errors.New("plans cannot be empty")
	}
	seen := make(map[string]struct{}, len(plans))
	out := make([]Plan, 0, len(plans))
	for i, plan := range plans {
		plan.Name = strings.TrimSpace(plan.Name)
		plan.ID = strings.TrimSpace(plan.ID)
		if plan.ID == "" {
			plan.ID = slug.Make(plan.Name)
		}
		if plan.ID == "" {
			return nil, fmt.Errorf("plans[%d]: id or name is required", i)
		}
		plan.VariantID = strings.TrimSpace(plan.VariantID)
		if plan.VariantID == "" {
			return nil, fmt.Errorf("plans[%d]: variantId is required", i)
		}
		switch plan.Interval {
		case IntervalMonthly, IntervalYearly, IntervalSemiAnnual, IntervalOnceOff:
		default:
			return nil, fmt.Errorf("plans[%d]: unsupported interval %q", i, plan.Interval)
		}
		if _, dup := seen[plan.ID]; dup {
			return nil, fmt.Errorf("plans[%d]: duplicate id %q", i, plan.ID)
		}
		seen[plan.ID] = struct{}{}
		out = append(out, plan)
	}
	return out, nil
}
