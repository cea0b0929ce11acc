package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status PaymentStatus
	Cursor *pagination.Position
	Limit  int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Payment, error)
	// CancelExpired cancels every pending payment created before cutoff in a
	// single conditional statement and returns the rows it changed.
	CancelExpired(ctx context.Context, db *gorm.DB, now, cutoff time.Time, reason string) ([]CancelledPayment, error)
	CountPendingCreatedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
	CountPendingCreatedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, error)
}
