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

// Single-process deployment: HTTP API and expiry scheduler together.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		providers.Module,

		// Functional Domains
		authorization.Module,
		audit.Module,
		packagecatalog.Module,
		listing.Module,
		payment.Module,
		notification.Module,
		ratelimit.Module,
		scheduler.Module,

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
