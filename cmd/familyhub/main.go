package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/auth"
	"github.com/smallbiznis/familyhub/internal/backend"
	"github.com/smallbiznis/familyhub/internal/billing"
	"github.com/smallbiznis/familyhub/internal/cache"
	"github.com/smallbiznis/familyhub/internal/child"
	"github.com/smallbiznis/familyhub/internal/clock"
	"github.com/smallbiznis/familyhub/internal/config"
	"github.com/smallbiznis/familyhub/internal/migration"
	"github.com/smallbiznis/familyhub/internal/observability"
	"github.com/smallbiznis/familyhub/internal/profile"
	"github.com/smallbiznis/familyhub/internal/ratelimit"
	"github.com/smallbiznis/familyhub/internal/server"
	"github.com/smallbiznis/familyhub/internal/subscription"
	"github.com/smallbiznis/familyhub/internal/webhook"
	"github.com/smallbiznis/familyhub/internal/webhooklog"
	"github.com/smallbiznis/familyhub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,

		// Functional Domains
		subscription.Module,
		webhooklog.Module,
		webhook.Module,
		child.Module,
		profile.Module,
		backend.Module,
		billing.Module,
		auth.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
