package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/estatehub/internal/audit/domain"
	"github.com/smallbiznis/estatehub/internal/authorization"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/config"
	"github.com/smallbiznis/estatehub/internal/listing/domain"
	notificationdomain "github.com/smallbiznis/estatehub/internal/notification/domain"
	"github.com/smallbiznis/estatehub/internal/observability/metrics"
	packagedomain "github.com/smallbiznis/estatehub/internal/packagecatalog/domain"
	"github.com/smallbiznis/estatehub/internal/ratelimit"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const transitionSource = "action"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Packages packagedomain.Service
	Notifier notificationdomain.Notifier   `optional:"true"`
	AuditSvc auditdomain.Service           `optional:"true"`
	Limiter  *ratelimit.OwnerActionLimiter `optional:"true"`
	Metrics  *metrics.Metrics              `optional:"true"`
	Policy   *config.ExpiryPolicyHolder    `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	packages packagedomain.Service
	notifier notificationdomain.Notifier
	auditSvc auditdomain.Service
	limiter  *ratelimit.OwnerActionLimiter
	metrics  *metrics.Metrics
	policy   *config.ExpiryPolicyHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("listing.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		packages: p.Packages,
		notifier: p.Notifier,
		auditSvc: p.AuditSvc,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
		policy:   p.Policy,
	}
}

func (s *Service) Create(ctx context.Context, actor authorization.Actor, req domain.CreateRequest) (*domain.Listing, error) {
	if actor.ID == 0 {
		return nil, domain.ErrForbidden
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.Price < 0 {
		return nil, domain.ErrInvalidPrice
	}

	var packageID *string
	if req.PackageID != nil && strings.TrimSpace(*req.PackageID) != "" {
		pkg, err := s.packages.GetActive(ctx, *req.PackageID)
		if err != nil {
			return nil, err
		}
		packageID = &pkg.ID
	}

	status := domain.StatusPending
	if req.Draft {
		status = domain.StatusDraft
	}

	now := s.clock.Now().UTC()
	id := s.genID.Generate()
	listing := domain.Listing{
		ID:          id,
		AuthorID:    actor.ID,
		Title:       title,
		Slug:        slug.Make(title) + "-" + id.Base36(),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Address:     strings.TrimSpace(req.Address),
		Status:      status,
		PackageID:   packageID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return &listing, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Listing, error) {
	listing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrNotFound
	}
	return listing, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Status != "" && !req.Status.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}
	cursor, err := req.Position()
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageSize := req.Size()
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Status:   req.Status,
		AuthorID: req.AuthorID,
		Cursor:   cursor,
		Limit:    pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(l *domain.Listing) string {
		return pagination.TokenFor(l.ID, l.CreatedAt)
	})

	listings := make([]domain.Listing, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		listings = append(listings, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Listings: listings}, nil
}

func (s *Service) Approve(ctx context.Context, actor authorization.Actor, id snowflake.ID) (*domain.Listing, error) {
	if !actor.IsStaff() {
		return nil, domain.ErrForbidden
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	days, err := s.approvalDuration(ctx, current)
	if err != nil {
		return nil, err
	}

	listing, from, err := s.transition(ctx, id, func(l *domain.Listing, now time.Time) error {
		return l.Approve(actor.ID, now, days)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, from, listing.Status)
	s.audit(ctx, actor, auditdomain.ActionListingApproved, listing, map[string]any{
		"from":       string(from),
		"expired_at": listing.ExpiredAt,
	})
	s.notify(ctx, listing.AuthorID, notificationdomain.PostApproved{
		PostID:     listing.ID,
		PostTitle:  listing.Title,
		ActionLink: actionLink(listing.ID),
	})
	return listing, nil
}

func (s *Service) Reject(ctx context.Context, actor authorization.Actor, id snowflake.ID, reason string) (*domain.Listing, error) {
	if !actor.IsStaff() {
		return nil, domain.ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}

	listing, from, err := s.transition(ctx, id, func(l *domain.Listing, now time.Time) error {
		return l.Reject(actor.ID, now, reason)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, from, listing.Status)
	s.audit(ctx, actor, auditdomain.ActionListingRejected, listing, map[string]any{
		"from":   string(from),
		"reason": reason,
	})
	s.notify(ctx, listing.AuthorID, notificationdomain.PostRejected{
		PostID:     listing.ID,
		PostTitle:  listing.Title,
		Reason:     reason,
		ActionLink: actionLink(listing.ID),
	})
	return listing, nil
}

func (s *Service) Update(ctx context.Context, actor authorization.Actor, id snowflake.ID, fields domain.Fields) (*domain.Listing, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if err := s.limiter.Allow(ctx, actor.ID, ratelimit.ActionEdit); err != nil {
		return nil, err
	}

	listing, from, err := s.transition(ctx, id, func(l *domain.Listing, now time.Time) error {
		if l.AuthorID != actor.ID {
			return domain.ErrForbidden
		}
		return l.Edit(fields, now)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, from, listing.Status)
	return listing, nil
}

func (s *Service) Resubmit(ctx context.Context, actor authorization.Actor, id snowflake.ID, fields domain.Fields) (*domain.Listing, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if err := s.limiter.Allow(ctx, actor.ID, ratelimit.ActionResubmit); err != nil {
		return nil, err
	}

	listing, from, err := s.transition(ctx, id, func(l *domain.Listing, now time.Time) error {
		if l.AuthorID != actor.ID {
			return domain.ErrForbidden
		}
		return l.Resubmit(fields, now)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, from, listing.Status)
	return listing, nil
}

func (s *Service) Extend(ctx context.Context, actor authorization.Actor, id snowflake.ID, packageID string) (*domain.Listing, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return nil, domain.ErrPackageRequired
	}
	if err := s.limiter.Allow(ctx, actor.ID, ratelimit.ActionExtend); err != nil {
		return nil, err
	}

	pkg, err := s.packages.GetActive(ctx, packageID)
	if err != nil {
		return nil, err
	}

	listing, from, err := s.transition(ctx, id, func(l *domain.Listing, now time.Time) error {
		if l.AuthorID != actor.ID && !actor.IsAdmin() {
			return domain.ErrForbidden
		}
		return l.Extend(pkg.ID, pkg.DurationDays, now)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, from, listing.Status)
	s.audit(ctx, actor, auditdomain.ActionListingExtended, listing, map[string]any{
		"from":          string(from),
		"package_id":    pkg.ID,
		"duration_days": pkg.DurationDays,
		"expired_at":    listing.ExpiredAt,
	})
	return listing, nil
}

func (s *Service) Delete(ctx context.Context, actor authorization.Actor, id snowflake.ID) (*domain.Listing, error) {
	listing, from, err := s.transition(ctx, id, func(l *domain.Listing, now time.Time) error {
		if l.AuthorID != actor.ID && !actor.IsAdmin() {
			return domain.ErrForbidden
		}
		return l.Delete(now)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, from, listing.Status)
	s.audit(ctx, actor, auditdomain.ActionListingDeleted, listing, map[string]any{"from": string(from)})
	return listing, nil
}

// ChangeStatus is the moderator catch-all. Moves into active from pending and
// into rejected go through Approve and Reject so their side effects apply.
func (s *Service) ChangeStatus(ctx context.Context, actor authorization.Actor, id snowflake.ID, req domain.ChangeStatusRequest) (*domain.Listing, error) {
	if !actor.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if !req.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case req.Status == domain.StatusActive && current.Status == domain.StatusPending:
		return s.Approve(ctx, actor, id)
	case req.Status == domain.StatusRejected:
		return s.Reject(ctx, actor, id, req.Reason)
	}

	listing, from, err := s.transition(ctx, id, func(l *domain.Listing, now time.Time) error {
		return l.ChangeStatus(req.Status, now)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, from, listing.Status)
	s.audit(ctx, actor, auditdomain.ActionListingStatusChanged, listing, map[string]any{
		"from":   string(from),
		"to":     string(listing.Status),
		"reason": strings.TrimSpace(req.Reason),
	})
	return listing, nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	now := s.clock.Now().UTC()

	byStatus, err := s.repo.CountByStatus(ctx, s.db)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count listings: %w", err)
	}
	activeButExpired, err := s.repo.CountActiveExpiredBefore(ctx, s.db, now)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count stale listings: %w", err)
	}

	var total int64
	for _, count := range byStatus {
		total += count
	}

	return domain.Stats{
		ByStatus:         byStatus,
		Total:            total,
		ActiveButExpired: activeButExpired,
		ValidActive:      byStatus[domain.StatusActive] - activeButExpired,
		NeedsAttention:   activeButExpired > 0,
	}, nil
}

// transition locks the listing row, applies fn and persists the result in
// one transaction. It returns the updated listing and its previous status.
func (s *Service) transition(ctx context.Context, id snowflake.ID, fn func(l *domain.Listing, now time.Time) error) (*domain.Listing, domain.ListingStatus, error) {
	var (
		updated *domain.Listing
		from    domain.ListingStatus
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if listing == nil {
			return domain.ErrNotFound
		}

		from = listing.Status
		if err := fn(listing, s.clock.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, listing); err != nil {
			return fmt.Errorf("update listing: %w", err)
		}
		updated = listing
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return updated, from, nil
}

// approvalDuration prefers the duration recorded on the listing, then the
// catalog, then the policy fallback.
func (s *Service) approvalDuration(ctx context.Context, listing *domain.Listing) (int, error) {
	if listing.PackageID == nil {
		return 0, nil
	}
	if listing.OriginalPackageDuration != nil && *listing.OriginalPackageDuration > 0 {
		return *listing.OriginalPackageDuration, nil
	}

	days, err := s.packages.DurationDays(ctx, *listing.PackageID)
	switch {
	case err == nil && days > 0:
		return days, nil
	case err == nil, errors.Is(err, packagedomain.ErrNotFound):
		s.log.Warn("package duration unavailable, using fallback",
			zap.String("listing_id", listing.ID.String()),
			zap.String("package_id", *listing.PackageID),
		)
		return s.fallbackDays(), nil
	default:
		return 0, fmt.Errorf("resolve package duration: %w", err)
	}
}

func (s *Service) fallbackDays() int {
	if s.policy != nil {
		if days := s.policy.Get().FallbackPackageDays; days > 0 {
			return days
		}
	}
	return config.DefaultExpiryPolicy().FallbackPackageDays
}

func (s *Service) notify(ctx context.Context, userID snowflake.ID, payload notificationdomain.Payload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, payload); err != nil {
		s.log.Warn("failed to emit notification",
			zap.String("type", string(payload.Type())),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) audit(ctx context.Context, actor authorization.Actor, action string, listing *domain.Listing, metadata map[string]any) {
	if s.auditSvc == nil || listing == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		ActorType:  actor.Type(),
		ActorID:    actor.IDString(),
		Action:     action,
		TargetType: "listing",
		TargetID:   listing.ID.String(),
		Metadata:   metadata,
	})
}

func (s *Service) recordTransition(ctx context.Context, from, to domain.ListingStatus) {
	if from == to {
		return
	}
	s.metrics.RecordListingTransition(ctx, string(from), string(to), transitionSource, 1)
}

func validateFields(fields domain.Fields) error {
	if fields.Title != nil && strings.TrimSpace(*fields.Title) == "" {
		return domain.ErrInvalidTitle
	}
	if fields.Price != nil && *fields.Price < 0 {
		return domain.ErrInvalidPrice
	}
	return nil
}

func actionLink(id snowflake.ID) string {
	return "/dashboard/posts/" + id.String()
}
