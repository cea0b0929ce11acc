package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/estatehub/internal/cache"
	"github.com/smallbiznis/estatehub/internal/packagecatalog/domain"
	"github.com/smallbiznis/estatehub/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const packageTTL = 5 * time.Minute

type Params struct {
	fx.In

	Log   *zap.Logger
	Store repository.Repository[domain.Package]
}

type Service struct {
	log   *zap.Logger
	store repository.Repository[domain.Package]
	cache cache.Cache[string, domain.Package]
}

func NewService(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("packagecatalog.service"),
		store: p.Store,
		cache: cache.NewTTLCache[string, domain.Package](),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Package, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	if cached, ok := s.cache.Get(cache.Key("package", id)); ok {
		return &cached, nil
	}

	pkg, err := s.store.FindOne(ctx, &domain.Package{ID: id})
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	if pkg == nil {
		return nil, domain.ErrNotFound
	}
	s.cache.Set(cache.Key("package", id), *pkg, packageTTL)
	return pkg, nil
}

func (s *Service) GetActive(ctx context.Context, id string) (*domain.Package, error) {
	pkg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, domain.ErrInactive
	}
	return pkg, nil
}

// DurationDays reports the current catalog duration. Inactive packages still
// resolve so listings bought before withdrawal can be approved.
func (s *Service) DurationDays(ctx context.Context, id string) (int, error) {
	pkg, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return pkg.DurationDays, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Package, error) {
	items, err := s.store.Find(ctx, &domain.Package{IsActive: true}, repository.OrderBy("duration_days asc"))
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	out := make([]domain.Package, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}
