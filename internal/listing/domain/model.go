package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Listing is a real-estate advertisement owned by its author.
type Listing struct {
	ID                      snowflake.ID  `json:"id" gorm:"primaryKey"`
	AuthorID                snowflake.ID  `json:"author_id"`
	Title                   string        `json:"title"`
	Slug                    string        `json:"slug"`
	Description             string        `json:"description"`
	Price                   int64         `json:"price"`
	Address                 string        `json:"address"`
	Status                  ListingStatus `json:"status"`
	PackageID               *string       `json:"package_id,omitempty"`
	OriginalPackageDuration *int          `json:"original_package_duration,omitempty"`
	ExpiredAt               *time.Time    `json:"expired_at,omitempty"`
	ApprovedAt              *time.Time    `json:"approved_at,omitempty"`
	ApprovedBy              *snowflake.ID `json:"approved_by,omitempty"`
	RejectedAt              *time.Time    `json:"rejected_at,omitempty"`
	RejectedBy              *snowflake.ID `json:"rejected_by,omitempty"`
	RejectedReason          *string       `json:"rejected_reason,omitempty"`
	CreatedAt               time.Time     `json:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at"`
}

func (Listing) TableName() string { return "listings" }

// ExpiredListing is a row transitioned by the expiry engine.
type ExpiredListing struct {
	ID       snowflake.ID `json:"id"`
	AuthorID snowflake.ID `json:"author_id"`
	Title    string       `json:"title"`
}

// Stats summarizes listings for the expiry dashboard.
type Stats struct {
	ByStatus         map[ListingStatus]int64 `json:"by_status"`
	Total            int64                   `json:"total"`
	ActiveButExpired int64                   `json:"activeButExpired"`
	ValidActive      int64                   `json:"validActive"`
	NeedsAttention   bool                    `json:"needsAttention"`
}

// Fields holds owner-editable content. Nil fields are left unchanged.
type Fields struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Address     *string `json:"address"`
}

func (f Fields) Apply(l *Listing) {
	if f.Title != nil {
		l.Title = *f.Title
	}
	if f.Description != nil {
		l.Description = *f.Description
	}
	if f.Price != nil {
		l.Price = *f.Price
	}
	if f.Address != nil {
		l.Address = *f.Address
	}
}
