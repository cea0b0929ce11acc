package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/notification/domain"
	"github.com/smallbiznis/estatehub/internal/observability/metrics"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
	"github.com/smallbiznis/estatehub/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Publisher domain.Publisher `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	publisher domain.Publisher
	metrics   *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("notification.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

// Notify stores the notification and publishes it. Only the store write is
// reported back; publish failures are logged.
func (s *Service) Notify(ctx context.Context, userID snowflake.ID, payload domain.Payload) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	if payload == nil {
		return domain.ErrInvalidPayload
	}

	content := payload.Render()
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}

	record := domain.Notification{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Type:      payload.Type(),
		Title:     content.Title,
		Message:   content.Message,
		Data:      datatypes.JSON(data),
		CreatedAt: s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		s.metrics.RecordNotification(ctx, string(record.Type), err)
		return fmt.Errorf("store notification: %w", err)
	}
	s.metrics.RecordNotification(ctx, string(record.Type), nil)

	s.publish(ctx, record, payload)
	return nil
}

func (s *Service) publish(ctx context.Context, record domain.Notification, payload domain.Payload) {
	if s.publisher == nil {
		return
	}

	ctx, _ = correlation.EnsureCorrelationID(ctx)
	event := domain.Event{
		NotificationID: record.ID,
		UserID:         record.UserID,
		Type:           record.Type,
		Title:          record.Title,
		Message:        record.Message,
		Data:           payload,
		CreatedAt:      record.CreatedAt,
	}
	headers := correlation.EventHeaders(ctx, s.clock.Now().UTC())
	if err := s.publisher.Publish(ctx, domain.RoutingKeyCreated, event, headers); err != nil {
		s.log.Warn("failed to publish notification",
			zap.String("notification_id", record.ID.String()),
			zap.String("type", string(record.Type)),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, userID snowflake.ID, req domain.ListRequest) (domain.ListResponse, error) {
	if userID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidUser
	}

	cursor, err := req.Position()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}

	pageSize := req.Size()
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		UserID:     userID,
		UnreadOnly: req.UnreadOnly,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	unread, err := s.repo.CountUnread(ctx, s.db, userID)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(n *domain.Notification) string {
		return pagination.TokenFor(n.ID, n.CreatedAt)
	})

	notifications := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		notifications = append(notifications, *item)
	}

	return domain.ListResponse{
		PageInfo:      pageInfo,
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

// MarkRead is idempotent; marking an already read notification returns it unchanged.
func (s *Service) MarkRead(ctx context.Context, userID, id snowflake.ID) (*domain.Notification, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	if _, err := s.repo.MarkRead(ctx, s.db, userID, id, s.clock.Now().UTC()); err != nil {
		return nil, err
	}

	n, err := s.repo.FindByID(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, domain.ErrNotFound
	}
	return n, nil
}
