package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/notification/domain"
	"github.com/smallbiznis/estatehub/internal/notification/repository"
	"github.com/smallbiznis/estatehub/internal/notification/service"
	"github.com/smallbiznis/estatehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, body any, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, body)
	return p.err
}

func newService(t *testing.T, publisher domain.Publisher) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := testutil.OpenDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := service.NewService(service.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     testutil.Node(t),
		Clock:     clk,
		Repo:      repository.Provide(),
		Publisher: publisher,
	})
	return svc, db, clk
}

func TestNotifyStoresRenderedPayload(t *testing.T) {
	publisher := &recordingPublisher{}
	svc, _, _ := newService(t, publisher)
	ctx := context.Background()
	userID := snowflake.ID(42)

	err := svc.Notify(ctx, userID, domain.PostRejected{
		PostID:    7,
		PostTitle: "Căn hộ Quận 1",
		Reason:    "thiếu ảnh",
	})
	require.NoError(t, err)

	resp, err := svc.List(ctx, userID, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)

	n := resp.Notifications[0]
	assert.Equal(t, domain.TypePostRejected, n.Type)
	assert.Equal(t, "Tin đăng bị từ chối", n.Title)
	assert.Contains(t, n.Message, "thiếu ảnh")
	assert.False(t, n.IsRead)
	assert.EqualValues(t, 1, resp.UnreadCount)

	var data map[string]any
	require.NoError(t, json.Unmarshal(n.Data, &data))
	assert.Equal(t, "thiếu ảnh", data["reason"])
	assert.Equal(t, "7", data["postId"])

	require.Len(t, publisher.keys, 1)
	assert.Equal(t, domain.RoutingKeyCreated, publisher.keys[0])
}

func TestNotifyIgnoresPublishFailure(t *testing.T) {
	svc, _, _ := newService(t, &recordingPublisher{err: errors.New("broker down")})

	err := svc.Notify(context.Background(), 1, domain.PaymentCancelled{PaymentID: 3, OrderID: "ORD-3", Reason: "x"})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), 1, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Notifications, 1)
}

func TestNotifyValidatesInput(t *testing.T) {
	svc, _, _ := newService(t, nil)

	assert.ErrorIs(t, svc.Notify(context.Background(), 0, domain.Generic{Kind: "x"}), domain.ErrInvalidUser)
	assert.ErrorIs(t, svc.Notify(context.Background(), 1, nil), domain.ErrInvalidPayload)
}

func TestMarkRead(t *testing.T) {
	svc, _, clk := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, 9, domain.Generic{Kind: "welcome", Title: "Xin chào", Message: "Chào mừng"}))
	resp, err := svc.List(ctx, 9, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)
	id := resp.Notifications[0].ID

	clk.Advance(time.Minute)
	n, err := svc.MarkRead(ctx, 9, id)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)

	_, err = svc.MarkRead(ctx, 10, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	resp, err = svc.List(ctx, 9, domain.ListRequest{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Notifications)
	assert.Zero(t, resp.UnreadCount)
}

func TestListPaginates(t *testing.T) {
	svc, _, clk := newService(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(ctx, 5, domain.Generic{Kind: "k", Title: "t", Message: "m"}))
		clk.Advance(time.Second)
	}

	req := domain.ListRequest{}
	req.PageSize = 2
	first, err := svc.List(ctx, 5, req)
	require.NoError(t, err)
	assert.Len(t, first.Notifications, 2)
	assert.True(t, first.HasMore)

	req.PageToken = first.NextPageToken
	second, err := svc.List(ctx, 5, req)
	require.NoError(t, err)
	assert.Len(t, second.Notifications, 1)
	assert.False(t, second.HasMore)
}
