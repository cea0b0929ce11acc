package packagecatalog

import (
	"github.com/smallbiznis/estatehub/internal/packagecatalog/domain"
	"github.com/smallbiznis/estatehub/internal/packagecatalog/service"
	"github.com/smallbiznis/estatehub/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("packagecatalog",
	fx.Provide(repository.ProvideStore[domain.Package]),
	fx.Provide(service.NewService),
)
