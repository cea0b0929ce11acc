package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/estatehub/internal/audit/domain"
	"github.com/smallbiznis/estatehub/internal/authorization"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/config"
	notificationdomain "github.com/smallbiznis/estatehub/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/estatehub/internal/observability/metrics"
	packagedomain "github.com/smallbiznis/estatehub/internal/packagecatalog/domain"
	paymentdomain "github.com/smallbiznis/estatehub/internal/payment/domain"
	pkgdb "github.com/smallbiznis/estatehub/pkg/db"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "VND"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       paymentdomain.Repository
	Packages   packagedomain.Service
	Notifier   notificationdomain.Notifier `optional:"true"`
	AuditSvc   auditdomain.Service         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics         `optional:"true"`
	Policy     *config.ExpiryPolicyHolder  `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	packages   packagedomain.Service
	notifier   notificationdomain.Notifier
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
	policy     *config.ExpiryPolicyHolder
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		packages:   p.Packages,
		notifier:   p.Notifier,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
		policy:     p.Policy,
	}
}

// Create opens a pending payment for a package purchase. The amount is taken
// from the catalog, never from the caller.
func (s *Service) Create(ctx context.Context, actor authorization.Actor, req paymentdomain.CreateRequest) (*paymentdomain.Payment, error) {
	if actor.ID == 0 {
		return nil, authorization.ErrInvalidActor
	}

	pkg, err := s.packages.GetActive(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg.Price < 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}

	id := s.genID.Generate()
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		orderID = "ORD-" + id.String()
	}
	if len(orderID) > 64 {
		return nil, paymentdomain.ErrInvalidOrderID
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	now := s.clock.Now().UTC()
	payment := paymentdomain.Payment{
		ID:        id,
		OrderID:   orderID,
		UserID:    actor.ID,
		ListingID: req.ListingID,
		PackageID: pkg.ID,
		Amount:    pkg.Price,
		Currency:  currency,
		Status:    paymentdomain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &payment); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, paymentdomain.ErrDuplicateOrderID
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &payment, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*paymentdomain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

// Complete records the gateway confirmation.
func (s *Service) Complete(ctx context.Context, actor authorization.Actor, id snowflake.ID) (*paymentdomain.Payment, error) {
	payment, err := s.transition(ctx, id, func(p *paymentdomain.Payment, now time.Time) error {
		return p.Complete(now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment completed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID),
		zap.String("actor_type", actor.Type()),
	)
	return payment, nil
}

// Cancel is the manual admin path. The caller's reason replaces the
// automatic one used by the expiry engine.
func (s *Service) Cancel(ctx context.Context, actor authorization.Actor, id snowflake.ID, reason string) (*paymentdomain.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, paymentdomain.ErrReasonRequired
	}

	payment, err := s.transition(ctx, id, func(p *paymentdomain.Payment, now time.Time) error {
		return p.Cancel(reason, now)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPaymentCancel(ctx, "manual", 1)
	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(ctx, auditdomain.Entry{
			ActorType:  actor.Type(),
			ActorID:    actor.IDString(),
			Action:     auditdomain.ActionPaymentCancelled,
			TargetType: "payment",
			TargetID:   payment.ID.String(),
			Metadata: map[string]any{
				"order_id": payment.OrderID,
				"reason":   reason,
			},
		})
	}
	if s.notifier != nil {
		err := s.notifier.Notify(ctx, payment.UserID, notificationdomain.PaymentCancelled{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Reason:    reason,
		})
		if err != nil {
			s.log.Warn("failed to emit payment cancelled notification",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
		}
	}
	return payment, nil
}

func (s *Service) ListPending(ctx context.Context, req paymentdomain.ListPendingRequest) (paymentdomain.ListPendingResponse, error) {
	cursor, err := req.Position()
	if err != nil {
		return paymentdomain.ListPendingResponse{}, err
	}

	pageSize := req.Size()
	items, err := s.repo.List(ctx, s.db, paymentdomain.ListFilter{
		Status: paymentdomain.StatusPending,
		Cursor: cursor,
		Limit:  pageSize,
	})
	if err != nil {
		return paymentdomain.ListPendingResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(p *paymentdomain.Payment) string {
		return pagination.TokenFor(p.ID, p.CreatedAt)
	})

	now := s.clock.Now().UTC()
	windows := paymentdomain.WindowsFromPolicy(s.expiryPolicy())
	payments := make([]paymentdomain.PendingPayment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		annotated := paymentdomain.Classify(now, item.CreatedAt, windows)
		annotated.Payment = *item
		payments = append(payments, annotated)
	}

	return paymentdomain.ListPendingResponse{PageInfo: pageInfo, Payments: payments}, nil
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, fn func(p *paymentdomain.Payment, now time.Time) error) (*paymentdomain.Payment, error) {
	var updated *paymentdomain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrNotFound
		}
		if err := fn(payment, s.clock.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}
		updated = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) expiryPolicy() config.ExpiryPolicy {
	if s.policy == nil {
		return config.DefaultExpiryPolicy()
	}
	return s.policy.Get()
}
