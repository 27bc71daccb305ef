package billing

import (
	"github.com/smallbiznis/familyhub/internal/billing/lemonsqueezy"
	"github.com/smallbiznis/familyhub/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(lemonsqueezy.NewClient),
	fx.Provide(service.NewService),
)
