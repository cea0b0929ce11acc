package scheduler

import (
	"context"

	"github.com/smallbiznis/estatehub/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(NewPostExpiryEngine),
	fx.Provide(NewPaymentExpiryEngine),
	fx.Provide(New),
	fx.Invoke(RegisterLifecycle),
)

// RegisterLifecycle starts the cron driver with the app. Processes that only
// serve HTTP disable it through config and still get manual triggers.
func RegisterLifecycle(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.Scheduler.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sched.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return sched.Stop(ctx)
		},
	})
}
