package providers

import (
	"github.com/smallbiznis/estatehub/internal/providers/amqp"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	amqp.Module,
)
