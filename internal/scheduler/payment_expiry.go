package scheduler

import (
	"context"
	"fmt"

	auditdomain "github.com/smallbiznis/estatehub/internal/audit/domain"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/config"
	obsmetrics "github.com/smallbiznis/estatehub/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/estatehub/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentExpiryResult struct {
	CancelledCount int    `json:"cancelledCount"`
	Message        string `json:"message"`
}

type PaymentExpiryParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     paymentdomain.Repository
	Policy   *config.ExpiryPolicyHolder `optional:"true"`
	AuditSvc auditdomain.Service        `optional:"true"`
	Metrics  *obsmetrics.Metrics        `optional:"true"`
}

// PaymentExpiryEngine cancels payments left pending past the grace window.
type PaymentExpiryEngine struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     paymentdomain.Repository
	policy   *config.ExpiryPolicyHolder
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func NewPaymentExpiryEngine(p PaymentExpiryParams) *PaymentExpiryEngine {
	return &PaymentExpiryEngine{
		db:       p.DB,
		log:      p.Log.Named("scheduler.payment_expiry"),
		clock:    p.Clock,
		repo:     p.Repo,
		policy:   p.Policy,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (e *PaymentExpiryEngine) Run(ctx context.Context) (PaymentExpiryResult, error) {
	now := e.clock.Now().UTC()
	cutoff := now.Add(-e.expiryPolicy().PaymentGraceWindow)

	cancelled, err := e.repo.CancelExpired(ctx, e.db, now, cutoff, paymentdomain.AutoCancelReason)
	if err != nil {
		return PaymentExpiryResult{}, fmt.Errorf("cancel expired payments: %w", err)
	}
	if len(cancelled) == 0 {
		return PaymentExpiryResult{Message: "No expired payments found"}, nil
	}

	e.metrics.RecordPaymentCancel(ctx, "scheduler", len(cancelled))
	if e.auditSvc != nil {
		orders := make([]string, 0, len(cancelled))
		for _, row := range cancelled {
			orders = append(orders, row.OrderID)
		}
		_ = e.auditSvc.AuditLog(ctx, auditdomain.Entry{
			ActorType:  string(auditdomain.ActorTypeSystem),
			Action:     auditdomain.ActionPaymentsExpired,
			TargetType: "payment",
			Metadata: map[string]any{
				"count":     len(cancelled),
				"order_ids": orders,
				"cutoff":    cutoff,
			},
		})
	}

	return PaymentExpiryResult{
		CancelledCount: len(cancelled),
		Message:        fmt.Sprintf("Cancelled %d expired payment(s)", len(cancelled)),
	}, nil
}

// Stats buckets pending payments by the time left in their grace window.
func (e *PaymentExpiryEngine) Stats(ctx context.Context) (paymentdomain.ExpiryStats, error) {
	now := e.clock.Now().UTC()
	policy := e.expiryPolicy()
	cutoff := now.Add(-policy.PaymentGraceWindow)

	expired, err := e.repo.CountPendingCreatedBefore(ctx, e.db, cutoff)
	if err != nil {
		return paymentdomain.ExpiryStats{}, fmt.Errorf("count expired payments: %w", err)
	}
	in6, err := e.repo.CountPendingCreatedBetween(ctx, e.db, cutoff, cutoff.Add(policy.ExpiringSoonWindow))
	if err != nil {
		return paymentdomain.ExpiryStats{}, fmt.Errorf("count expiring payments: %w", err)
	}
	in12, err := e.repo.CountPendingCreatedBetween(ctx, e.db, cutoff, cutoff.Add(policy.ExpiringWindow))
	if err != nil {
		return paymentdomain.ExpiryStats{}, fmt.Errorf("count expiring payments: %w", err)
	}

	return paymentdomain.ExpiryStats{
		ExpiredCount:      expired,
		ExpiringIn6Hours:  in6,
		ExpiringIn12Hours: in12,
	}, nil
}

func (e *PaymentExpiryEngine) expiryPolicy() config.ExpiryPolicy {
	if e.policy == nil {
		return config.DefaultExpiryPolicy()
	}
	return e.policy.Get()
}
