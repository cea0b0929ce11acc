package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	if payment == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, order_id, user_id, listing_id, package_id, amount, currency, status,
			completed_at, cancelled_at, cancel_reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.OrderID,
		payment.UserID,
		payment.ListingID,
		payment.PackageID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.CompletedAt,
		payment.CancelledAt,
		payment.CancelReason,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return r.findByID(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return r.findByID(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) findByID(db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// Update writes the status columns only. The pending guard keeps a payment
// from leaving pending twice even without a row lock.
func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	if payment == nil {
		return nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, completed_at = ?, cancelled_at = ?, cancel_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		payment.Status,
		payment.CompletedAt,
		payment.CancelledAt,
		payment.CancelReason,
		payment.UpdatedAt,
		payment.ID,
		domain.StatusPending,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotPending
	}
	return nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Payment, error) {
	var items []*domain.Payment
	stmt := db.WithContext(ctx).Model(&domain.Payment{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}
	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CancelExpired(ctx context.Context, db *gorm.DB, now, cutoff time.Time, reason string) ([]domain.CancelledPayment, error) {
	var rows []domain.CancelledPayment
	err := db.WithContext(ctx).Raw(
		`UPDATE payments
		 SET status = ?, cancelled_at = ?, cancel_reason = ?, updated_at = ?
		 WHERE status = ?
		   AND created_at < ?
		 RETURNING id, order_id, user_id`,
		domain.StatusCancelled,
		now,
		reason,
		now,
		domain.StatusPending,
		cutoff,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountPendingCreatedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM payments
		 WHERE status = ?
		   AND created_at < ?`,
		domain.StatusPending,
		cutoff,
	).Scan(&count).Error
	return count, err
}

// CountPendingCreatedBetween counts pending payments with from <= created_at <= to.
func (r *repo) CountPendingCreatedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM payments
		 WHERE status = ?
		   AND created_at >= ?
		   AND created_at <= ?`,
		domain.StatusPending,
		from,
		to,
	).Scan(&count).Error
	return count, err
}
