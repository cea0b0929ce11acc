package amqp

import (
	"context"

	"github.com/smallbiznis/estatehub/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.amqp",
	fx.Provide(NewFromConfig),
)

// NewFromConfig dials the broker when AMQP_URL is set and falls back to a
// no-op publisher otherwise. A broker that is down at startup is logged, not
// fatal: notifications are still stored.
func NewFromConfig(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	if cfg.Notification.AMQPURL == "" {
		return NoOpPublisher{}
	}

	publisher, err := NewRabbitPublisher(Config{
		URL:      cfg.Notification.AMQPURL,
		Exchange: cfg.Notification.Exchange,
	}, log)
	if err != nil {
		log.Warn("amqp publisher disabled", zap.Error(err))
		return NoOpPublisher{}
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher
}
