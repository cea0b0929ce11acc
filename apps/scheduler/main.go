package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/audit"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/config"
	"github.com/smallbiznis/estatehub/internal/listing"
	"github.com/smallbiznis/estatehub/internal/notification"
	"github.com/smallbiznis/estatehub/internal/observability"
	"github.com/smallbiznis/estatehub/internal/packagecatalog"
	"github.com/smallbiznis/estatehub/internal/payment"
	"github.com/smallbiznis/estatehub/internal/providers"
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
		providers.Module,

		// Domain services required by the expiry engines
		audit.Module,
		packagecatalog.Module,
		listing.Module,
		payment.Module,
		notification.Module,
		scheduler.Module,

		// Health and metrics only, no API routes.
		server.ProbeModule,
	)
	app.Run()
}

// Node 2 keeps ids minted here disjoint from the API process.
func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
