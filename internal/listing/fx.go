package listing

import (
	"github.com/smallbiznis/estatehub/internal/listing/repository"
	"github.com/smallbiznis/estatehub/internal/listing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("listing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
