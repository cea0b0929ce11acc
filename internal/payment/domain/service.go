package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/authorization"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
)

var (
	ErrNotFound         = errors.New("payment_not_found")
	ErrNotPending       = errors.New("payment_not_pending")
	ErrReasonRequired   = errors.New("invalid_reason")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidOrderID   = errors.New("invalid_order_id")
	ErrDuplicateOrderID = errors.New("duplicate_order_id")
)

type CreateRequest struct {
	OrderID   string        `json:"order_id"`
	ListingID *snowflake.ID `json:"listing_id"`
	PackageID string        `json:"package_id"`
	Currency  string        `json:"currency"`
}

type ListPendingRequest struct {
	pagination.Pagination
}

type ListPendingResponse struct {
	pagination.PageInfo
	Payments []PendingPayment `json:"payments"`
}

type Service interface {
	Create(ctx context.Context, actor authorization.Actor, req CreateRequest) (*Payment, error)
	Get(ctx context.Context, id snowflake.ID) (*Payment, error)
	Complete(ctx context.Context, actor authorization.Actor, id snowflake.ID) (*Payment, error)
	Cancel(ctx context.Context, actor authorization.Actor, id snowflake.ID, reason string) (*Payment, error)
	ListPending(ctx context.Context, req ListPendingRequest) (ListPendingResponse, error)
}
