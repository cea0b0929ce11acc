package notification

import (
	"github.com/smallbiznis/estatehub/internal/notification/domain"
	"github.com/smallbiznis/estatehub/internal/notification/repository"
	"github.com/smallbiznis/estatehub/internal/notification/service"
	"github.com/smallbiznis/estatehub/internal/providers/amqp"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(p amqp.Publisher) domain.Publisher { return p }),
	fx.Provide(service.NewService),
	fx.Provide(func(s domain.Service) domain.Notifier { return s }),
)
