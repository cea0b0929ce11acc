package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/audit"
	"github.com/smallbiznis/estatehub/internal/authorization"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/config"
	"github.com/smallbiznis/estatehub/internal/listing"
	"github.com/smallbiznis/estatehub/internal/migration"
	"github.com/smallbiznis/estatehub/internal/notification"
	"github.com/smallbiznis/estatehub/internal/observability"
	"github.com/smallbiznis/estatehub/internal/packagecatalog"
	"github.com/smallbiznis/estatehub/internal/payment"
	"github.com/smallbiznis/estatehub/internal/providers"
	"github.com/smallbiznis/estatehub/internal/ratelimit"
	"github.com/smallbiznis/estatehub/internal/scheduler"
	"github.com/smallbiznis/estatehub/internal/server"
	"github.com/smallbiznis/estatehub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		providers.Module,

		authorization.Module,
		audit.Module,
		packagecatalog.Module,
		listing.Module,
		payment.Module,
		notification.Module,
		ratelimit.Module,

		// Cron runs in apps/scheduler. The engines stay wired so the
		// admin endpoints can still trigger a run manually.
		scheduler.Module,
		fx.Decorate(disableCron),

		server.Module,
	)
	app.Run()
}

func disableCron(cfg config.Config) config.Config {
	cfg.Scheduler.Enabled = false
	return cfg
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
