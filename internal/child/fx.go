package child

import (
	"github.com/smallbiznis/familyhub/internal/child/repository"
	"github.com/smallbiznis/familyhub/internal/child/service"
	"go.uber.org/fx"
)

var Module = fx.Module("child.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
