package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/estatehub/internal/config"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusCancelled PaymentStatus = "cancelled"
)

// AutoCancelReason is stamped on payments cancelled by the expiry engine.
const AutoCancelReason = "auto-cancelled: payment window exceeded"

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

func (p *Payment) Complete(now time.Time) error {
	if p.Status != StatusPending {
		return ErrNotPending
	}
	p.Status = StatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now
	return nil
}

func (p *Payment) Fail(now time.Time) error {
	if p.Status != StatusPending {
		return ErrNotPending
	}
	p.Status = StatusFailed
	p.UpdatedAt = now
	return nil
}

// Cancel records the caller's reason. Only pending payments can be cancelled.
func (p *Payment) Cancel(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	if p.Status != StatusPending {
		return ErrNotPending
	}
	p.Status = StatusCancelled
	p.CancelledAt = &now
	p.CancelReason = &reason
	p.UpdatedAt = now
	return nil
}

type Category string

const (
	CategoryNormal       Category = "normal"
	CategoryExpiring     Category = "expiring"
	CategoryExpiringSoon Category = "expiring_soon"
	CategoryExpired      Category = "expired"
)

// Windows are the thresholds used to classify pending payments.
type Windows struct {
	Grace        time.Duration
	Expiring     time.Duration
	ExpiringSoon time.Duration
}

// Classify places a pending payment created at createdAt inside the grace window.
func Classify(now, createdAt time.Time, w Windows) PendingPayment {
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := w.Grace - elapsed

	category := CategoryNormal
	switch {
	case elapsed >= w.Grace:
		category = CategoryExpired
		remaining = 0
	case remaining <= w.ExpiringSoon:
		category = CategoryExpiringSoon
	case remaining <= w.Expiring:
		category = CategoryExpiring
	}

	return PendingPayment{
		Category:      category,
		HoursElapsed:  float64(int64(elapsed.Hours()*100)) / 100,
		TimeRemaining: formatRemaining(remaining),
	}
}

func formatRemaining(d time.Duration) string {
	d = d.Truncate(time.Minute)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// WindowsFromPolicy reads the classification thresholds from the expiry policy.
func WindowsFromPolicy(p config.ExpiryPolicy) Windows {
	return Windows{
		Grace:        p.PaymentGraceWindow,
		Expiring:     p.ExpiringWindow,
		ExpiringSoon: p.ExpiringSoonWindow,
	}
}
