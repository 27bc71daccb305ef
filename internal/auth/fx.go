package auth

import "go.uber.org/fx"

var Module = fx.Module("auth.token",
	fx.Provide(NewVerifier),
)
