package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status   ListingStatus
	AuthorID snowflake.ID
	Cursor   *pagination.Position
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, listing *Listing) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Listing, error)
	// FindByIDForUpdate locks the row for the rest of the transaction where
	// the database supports row locks.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Listing, error)
	Update(ctx context.Context, db *gorm.DB, listing *Listing) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Listing, error)
	// ExpireDue flips every active listing whose expiry is before now in a
	// single conditional statement and returns the rows it changed.
	ExpireDue(ctx context.Context, db *gorm.DB, now time.Time) ([]ExpiredListing, error)
	CountByStatus(ctx context.Context, db *gorm.DB) (map[ListingStatus]int64, error)
	CountActiveExpiredBefore(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}
