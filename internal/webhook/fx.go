package webhook

import (
	"github.com/smallbiznis/familyhub/internal/webhook/relay"
	"github.com/smallbiznis/familyhub/internal/webhook/service"
	"github.com/smallbiznis/familyhub/internal/webhook/signature"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(signature.New),
	fx.Provide(relay.New),
	fx.Provide(service.NewService),
)
