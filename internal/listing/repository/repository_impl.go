package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/listing/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, listing *domain.Listing) error {
	if listing == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO listings (
			id, author_id, title, slug, description, price, address, status,
			package_id, original_package_duration, expired_at,
			approved_at, approved_by, rejected_at, rejected_by, rejected_reason,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listing.ID,
		listing.AuthorID,
		listing.Title,
		listing.Slug,
		listing.Description,
		listing.Price,
		listing.Address,
		listing.Status,
		listing.PackageID,
		listing.OriginalPackageDuration,
		listing.ExpiredAt,
		listing.ApprovedAt,
		listing.ApprovedBy,
		listing.RejectedAt,
		listing.RejectedBy,
		listing.RejectedReason,
		listing.CreatedAt,
		listing.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Listing, error) {
	return r.findByID(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Listing, error) {
	return r.findByID(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) findByID(db *gorm.DB, id snowflake.ID) (*domain.Listing, error) {
	var listing domain.Listing
	err := db.Where("id = ?", id).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, listing *domain.Listing) error {
	if listing == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE listings SET
			title = ?, description = ?, price = ?, address = ?, status = ?,
			package_id = ?, original_package_duration = ?, expired_at = ?,
			approved_at = ?, approved_by = ?,
			rejected_at = ?, rejected_by = ?, rejected_reason = ?,
			updated_at = ?
		 WHERE id = ?`,
		listing.Title,
		listing.Description,
		listing.Price,
		listing.Address,
		listing.Status,
		listing.PackageID,
		listing.OriginalPackageDuration,
		listing.ExpiredAt,
		listing.ApprovedAt,
		listing.ApprovedBy,
		listing.RejectedAt,
		listing.RejectedBy,
		listing.RejectedReason,
		listing.UpdatedAt,
		listing.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	stmt := db.WithContext(ctx).Model(&domain.Listing{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	} else {
		stmt = stmt.Where("status <> ?", domain.StatusDeleted)
	}
	if filter.AuthorID != 0 {
		stmt = stmt.Where("author_id = ?", filter.AuthorID)
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

	if err := stmt.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *repo) ExpireDue(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.ExpiredListing, error) {
	var rows []domain.ExpiredListing
	err := db.WithContext(ctx).Raw(
		`UPDATE listings
		 SET status = ?, updated_at = ?
		 WHERE status = ?
		   AND expired_at IS NOT NULL
		   AND expired_at < ?
		 RETURNING id, author_id, title`,
		domain.StatusExpired,
		now,
		domain.StatusActive,
		now,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[domain.ListingStatus]int64, error) {
	var rows []struct {
		Status domain.ListingStatus
		Count  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS count
		 FROM listings
		 GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.ListingStatus]int64, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repo) CountActiveExpiredBefore(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM listings
		 WHERE status = ?
		   AND expired_at IS NOT NULL
		   AND expired_at < ?`,
		domain.StatusActive,
		now,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
