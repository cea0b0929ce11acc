package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/authorization"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
)

var (
	ErrNotFound          = errors.New("listing_not_found")
	ErrForbidden         = errors.New("listing_forbidden")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrReasonRequired    = errors.New("invalid_reason")
	ErrPackageRequired   = errors.New("invalid_package_id")
	ErrInvalidDuration   = errors.New("invalid_duration")
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrVisibilityElapsed = errors.New("visibility_window_elapsed")
)

type CreateRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       int64   `json:"price"`
	Address     string  `json:"address"`
	PackageID   *string `json:"package_id"`
	Draft       bool    `json:"draft"`
}

type ListRequest struct {
	pagination.Pagination
	Status   ListingStatus
	AuthorID snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	Listings []Listing `json:"listings"`
}

type ChangeStatusRequest struct {
	Status ListingStatus `json:"status"`
	Reason string        `json:"reason"`
}

// Service is the synchronous action surface over listings.
type Service interface {
	Create(ctx context.Context, actor authorization.Actor, req CreateRequest) (*Listing, error)
	Get(ctx context.Context, id snowflake.ID) (*Listing, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Approve(ctx context.Context, actor authorization.Actor, id snowflake.ID) (*Listing, error)
	Reject(ctx context.Context, actor authorization.Actor, id snowflake.ID, reason string) (*Listing, error)
	Update(ctx context.Context, actor authorization.Actor, id snowflake.ID, fields Fields) (*Listing, error)
	Resubmit(ctx context.Context, actor authorization.Actor, id snowflake.ID, fields Fields) (*Listing, error)
	Extend(ctx context.Context, actor authorization.Actor, id snowflake.ID, packageID string) (*Listing, error)
	Delete(ctx context.Context, actor authorization.Actor, id snowflake.ID) (*Listing, error)
	ChangeStatus(ctx context.Context, actor authorization.Actor, id snowflake.ID, req ChangeStatusRequest) (*Listing, error)
	Stats(ctx context.Context) (Stats, error)
}
