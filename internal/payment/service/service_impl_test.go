package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estatehub/internal/authorization"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/config"
	notificationdomain "github.com/smallbiznis/estatehub/internal/notification/domain"
	packagedomain "github.com/smallbiznis/estatehub/internal/packagecatalog/domain"
	packageservice "github.com/smallbiznis/estatehub/internal/packagecatalog/service"
	paymentdomain "github.com/smallbiznis/estatehub/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/estatehub/internal/payment/repository"
	paymentservice "github.com/smallbiznis/estatehub/internal/payment/service"
	"github.com/smallbiznis/estatehub/internal/testutil"
	pkgrepository "github.com/smallbiznis/estatehub/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	buyer = authorization.Actor{ID: 11, Role: authorization.RoleUser}
	admin = authorization.Actor{ID: 99, Role: authorization.RoleAdmin}
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notificationdomain.Payload
}

func (f *fakeNotifier) Notify(ctx context.Context, userID snowflake.ID, payload notificationdomain.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	return nil
}

func newService(t *testing.T) (paymentdomain.Service, *clock.FakeClock, *fakeNotifier) {
	t.Helper()
	db := testutil.OpenDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	notifier := &fakeNotifier{}

	svc := paymentservice.NewService(paymentservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Clock: clk,
		Repo:  paymentrepo.Provide(),
		Packages: packageservice.NewService(packageservice.Params{
			Log:   zap.NewNop(),
			Store: pkgrepository.ProvideStore[packagedomain.Package](db),
		}),
		Notifier: notifier,
		Policy:   config.NewStaticExpiryPolicyHolder(config.DefaultExpiryPolicy()),
	})
	return svc, clk, notifier
}

func TestCreateUsesCatalogPrice(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	payment, err := svc.Create(ctx, buyer, paymentdomain.CreateRequest{PackageID: "standard"})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, payment.Status)
	assert.EqualValues(t, 90000, payment.Amount)
	assert.Equal(t, "VND", payment.Currency)
	assert.Equal(t, buyer.ID, payment.UserID)
	assert.NotEmpty(t, payment.OrderID)

	_, err = svc.Create(ctx, buyer, paymentdomain.CreateRequest{PackageID: "gold"})
	assert.ErrorIs(t, err, packagedomain.ErrNotFound)
}

func TestCreateRejectsDuplicateOrder(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, buyer, paymentdomain.CreateRequest{OrderID: "ORD-1", PackageID: "basic"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, buyer, paymentdomain.CreateRequest{OrderID: "ORD-1", PackageID: "basic"})
	assert.ErrorIs(t, err, paymentdomain.ErrDuplicateOrderID)
}

func TestCancelPendingPayment(t *testing.T) {
	svc, _, notifier := newService(t)
	ctx := context.Background()

	payment, err := svc.Create(ctx, buyer, paymentdomain.CreateRequest{OrderID: "ORD-7", PackageID: "basic"})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, admin, payment.ID, "khách đổi gói")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "khách đổi gói", *cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)

	stored, err := svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCancelled, stored.Status)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, notificationdomain.TypePaymentCancelled, notifier.sent[0].Type())

	_, err = svc.Cancel(ctx, admin, payment.ID, "again")
	assert.ErrorIs(t, err, paymentdomain.ErrNotPending)
}

func TestCancelErrors(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, admin, snowflake.ID(404), "x")
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)

	payment, err := svc.Create(ctx, buyer, paymentdomain.CreateRequest{PackageID: "basic"})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, admin, payment.ID, "")
	assert.ErrorIs(t, err, paymentdomain.ErrReasonRequired)

	_, err = svc.Complete(ctx, authorization.System, payment.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, admin, payment.ID, "late")
	assert.ErrorIs(t, err, paymentdomain.ErrNotPending)
}

func TestListPendingAnnotatesCategory(t *testing.T) {
	svc, clk, _ := newService(t)
	ctx := context.Background()

	old, err := svc.Create(ctx, buyer, paymentdomain.CreateRequest{PackageID: "basic"})
	require.NoError(t, err)
	clk.Advance(4 * time.Hour)
	mid, err := svc.Create(ctx, buyer, paymentdomain.CreateRequest{PackageID: "basic"})
	require.NoError(t, err)
	clk.Advance(16 * time.Hour)
	fresh, err := svc.Create(ctx, buyer, paymentdomain.CreateRequest{PackageID: "basic"})
	require.NoError(t, err)
	done, err := svc.Create(ctx, buyer, paymentdomain.CreateRequest{PackageID: "basic"})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, authorization.System, done.ID)
	require.NoError(t, err)

	resp, err := svc.ListPending(ctx, paymentdomain.ListPendingRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Payments, 3)

	byID := map[snowflake.ID]paymentdomain.PendingPayment{}
	for _, p := range resp.Payments {
		byID[p.ID] = p
	}
	assert.Equal(t, paymentdomain.CategoryExpiringSoon, byID[old.ID].Category)
	assert.Equal(t, 20.0, byID[old.ID].HoursElapsed)
	assert.Equal(t, "4h 0m", byID[old.ID].TimeRemaining)
	assert.Equal(t, paymentdomain.CategoryExpiring, byID[mid.ID].Category)
	assert.Equal(t, paymentdomain.CategoryNormal, byID[fresh.ID].Category)

	clk.Advance(5 * time.Hour)
	resp, err = svc.ListPending(ctx, paymentdomain.ListPendingRequest{})
	require.NoError(t, err)
	for _, p := range resp.Payments {
		if p.ID == old.ID {
			assert.Equal(t, paymentdomain.CategoryExpired, p.Category)
		}
	}
}
