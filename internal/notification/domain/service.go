package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
)

var (
	ErrNotFound         = errors.New("notification_not_found")
	ErrInvalidUser      = errors.New("invalid_user_id")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)

// RoutingKeyCreated is the topic every stored notification is published on.
const RoutingKeyCreated = "notification.created"

// Notifier is the write-only sink used by the listing surface and the
// expiry engines.
type Notifier interface {
	Notify(ctx context.Context, userID snowflake.ID, payload Payload) error
}

// Publisher fans stored notifications out to other services.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any, headers map[string]string) error
}

// Event is the message published for a stored notification.
type Event struct {
	NotificationID snowflake.ID `json:"notification_id"`
	UserID         snowflake.ID `json:"user_id"`
	Type           Type         `json:"type"`
	Title          string       `json:"title"`
	Message        string       `json:"message"`
	Data           any          `json:"data,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

type ListRequest struct {
	pagination.Pagination
	UnreadOnly bool
}

type ListResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}

type Service interface {
	Notifier
	List(ctx context.Context, userID snowflake.ID, req ListRequest) (ListResponse, error)
	MarkRead(ctx context.Context, userID, id snowflake.ID) (*Notification, error)
}
