// Package testing moves listing and payment timestamps so expiry jobs can be
// exercised without waiting for real time to pass.
package testing

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/clock"
	listingdomain "github.com/smallbiznis/estatehub/internal/listing/domain"
	paymentdomain "github.com/smallbiznis/estatehub/internal/payment/domain"
	"gorm.io/gorm"
)

type TimeAccelerator struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewTimeAccelerator(db *gorm.DB, c clock.Clock) *TimeAccelerator {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &TimeAccelerator{db: db, clock: c}
}

// ExpireListing moves expired_at of an active listing just behind now.
func (ta *TimeAccelerator) ExpireListing(ctx context.Context, listingID snowflake.ID) error {
	now := ta.clock.Now().UTC()
	return ta.db.WithContext(ctx).Exec(
		`UPDATE listings
		 SET expired_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		now.Add(-1*time.Minute),
		now,
		listingID,
		listingdomain.StatusActive,
	).Error
}

// SetListingExpiry sets expired_at regardless of status.
func (ta *TimeAccelerator) SetListingExpiry(ctx context.Context, listingID snowflake.ID, expiredAt *time.Time) error {
	var value any
	if expiredAt != nil {
		value = expiredAt.UTC()
	}
	return ta.db.WithContext(ctx).Exec(
		`UPDATE listings SET expired_at = ?, updated_at = ? WHERE id = ?`,
		value,
		ta.clock.Now().UTC(),
		listingID,
	).Error
}

// AgePayment rewrites created_at of a payment to now minus age.
func (ta *TimeAccelerator) AgePayment(ctx context.Context, paymentID snowflake.ID, age time.Duration) error {
	return ta.db.WithContext(ctx).Exec(
		`UPDATE payments SET created_at = ? WHERE id = ?`,
		ta.clock.Now().UTC().Add(-age),
		paymentID,
	).Error
}

// ListingInfo shows the expiry state of a listing for debugging.
type ListingInfo struct {
	ID           snowflake.ID
	Status       listingdomain.ListingStatus
	ExpiredAt    *time.Time
	TimeUntilDue time.Duration
	DueForExpiry bool
}

func (ta *TimeAccelerator) GetListingInfo(ctx context.Context, listingID snowflake.ID) (*ListingInfo, error) {
	var row struct {
		ID        snowflake.ID
		Status    listingdomain.ListingStatus
		ExpiredAt *time.Time
	}
	err := ta.db.WithContext(ctx).Raw(
		`SELECT id, status, expired_at FROM listings WHERE id = ?`,
		listingID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	info := &ListingInfo{ID: row.ID, Status: row.Status, ExpiredAt: row.ExpiredAt}
	if row.ExpiredAt != nil {
		now := ta.clock.Now().UTC()
		info.TimeUntilDue = row.ExpiredAt.Sub(now)
		info.DueForExpiry = row.Status == listingdomain.StatusActive && row.ExpiredAt.Before(now)
	}
	return info, nil
}

// CountPending returns how many payments are still pending.
func (ta *TimeAccelerator) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := ta.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM payments WHERE status = ?`,
		paymentdomain.StatusPending,
	).Scan(&count).Error
	return count, err
}
