package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	auditrepo "github.com/smallbiznis/estatehub/internal/audit/repository"
	auditservice "github.com/smallbiznis/estatehub/internal/audit/service"
	"github.com/smallbiznis/estatehub/internal/authorization"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/config"
	listingrepo "github.com/smallbiznis/estatehub/internal/listing/repository"
	listingservice "github.com/smallbiznis/estatehub/internal/listing/service"
	notificationrepo "github.com/smallbiznis/estatehub/internal/notification/repository"
	notificationservice "github.com/smallbiznis/estatehub/internal/notification/service"
	"github.com/smallbiznis/estatehub/internal/observability"
	obsmetrics "github.com/smallbiznis/estatehub/internal/observability/metrics"
	packagedomain "github.com/smallbiznis/estatehub/internal/packagecatalog/domain"
	packageservice "github.com/smallbiznis/estatehub/internal/packagecatalog/service"
	paymentrepo "github.com/smallbiznis/estatehub/internal/payment/repository"
	paymentservice "github.com/smallbiznis/estatehub/internal/payment/service"
	"github.com/smallbiznis/estatehub/internal/scheduler"
	"github.com/smallbiznis/estatehub/internal/testutil"
	pkgrepository "github.com/smallbiznis/estatehub/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	ownerActor    = authorization.Actor{ID: 1001, Role: authorization.RoleUser}
	strangerActor = authorization.Actor{ID: 1002, Role: authorization.RoleUser}
	employeeActor = authorization.Actor{ID: 2001, Role: authorization.RoleEmployee}
	adminActor    = authorization.Actor{ID: 3001, Role: authorization.RoleAdmin}
)

type testServer struct {
	engine *gin.Engine
	clock  *clock.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC))
	policy := config.NewStaticExpiryPolicyHolder(config.DefaultExpiryPolicy())

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide(),
	})
	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})

	packages := packageservice.NewService(packageservice.Params{
		Log:   log,
		Store: pkgrepository.ProvideStore[packagedomain.Package](db),
	})
	notifications := notificationservice.NewService(notificationservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: notificationrepo.Provide(),
	})

	listingRepo := listingrepo.Provide()
	paymentRepo := paymentrepo.Provide()
	listings := listingservice.NewService(listingservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: listingRepo,
		Packages: packages, Notifier: notifications, AuditSvc: audit, Policy: policy,
	})
	payments := paymentservice.NewService(paymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: paymentRepo,
		Packages: packages, Notifier: notifications, AuditSvc: audit, Policy: policy,
	})

	sched := scheduler.New(scheduler.Params{
		Log:   log,
		Clock: clk,
		GenID: node,
		PostExpiry: scheduler.NewPostExpiryEngine(scheduler.PostExpiryParams{
			DB: db, Log: log, Clock: clk, Repo: listingRepo, Notifier: notifications, AuditSvc: audit,
		}),
		PaymentExpiry: scheduler.NewPaymentExpiryEngine(scheduler.PaymentExpiryParams{
			DB: db, Log: log, Clock: clk, Repo: paymentRepo, Policy: policy, AuditSvc: audit,
		}),
		Metrics: obsmetrics.NewSchedulerMetricsForTest(prometheus.NewRegistry()),
	})

	engine := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:             engine,
		Log:             log,
		Clock:           clk,
		AuthzSvc:        authz,
		AuditSvc:        audit,
		ListingSvc:      listings,
		PaymentSvc:      payments,
		NotificationSvc: notifications,
		PackageSvc:      packages,
		Scheduler:       sched,
	})

	return &testServer{engine: engine, clock: clk}
}

type response struct {
	Code int
	Body map[string]any
}

func (ts *testServer) do(t *testing.T, actor *authorization.Actor, method, path string, body any, headers ...string) response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(HeaderUserID, actor.ID.String())
		req.Header.Set(HeaderUserRole, string(actor.Role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	out := response{Code: rec.Code}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.Body), rec.Body.String())
	}
	return out
}

func data(t *testing.T, r response) map[string]any {
	t.Helper()
	value, ok := r.Body["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", r.Body)
	return value
}

func errorType(r response) string {
	payload, _ := r.Body["error"].(map[string]any)
	value, _ := payload["type"].(string)
	return value
}

func (ts *testServer) createListing(t *testing.T, actor authorization.Actor, title string) string {
	t.Helper()
	resp := ts.do(t, &actor, http.MethodPost, "/api/listings", map[string]any{
		"title":      title,
		"price":      2500000000,
		"package_id": "basic",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	return data(t, resp)["id"].(string)
}

func TestRequestsWithoutActorAreRejected(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, nil, http.MethodGet, "/api/listings", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "unauthorized", errorType(resp))

	resp = ts.do(t, nil, http.MethodGet, "/api/listings", nil, HeaderUserID, "abc")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.do(t, nil, http.MethodGet, "/api/packages", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, resp.Body["data"], 3)
}

func TestListingModerationFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createListing(t, ownerActor, "Căn hộ Phú Mỹ Hưng")

	resp := ts.do(t, &ownerActor, http.MethodPost, "/api/admin/listings/"+id+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.do(t, &employeeActor, http.MethodPost, "/api/admin/listings/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	assert.Equal(t, "active", data(t, resp)["status"])
	assert.Equal(t, "Đã duyệt tin đăng", resp.Body["message"])
	assert.NotEmpty(t, data(t, resp)["expired_at"])

	resp = ts.do(t, &strangerActor, http.MethodPut, "/api/listings/"+id, map[string]any{"title": "Hack"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.do(t, &ownerActor, http.MethodPut, "/api/listings/"+id, map[string]any{"title": "Căn hộ Phú Mỹ Hưng 3PN"},
		"Accept-Language", "en-US,en;q=0.9")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	assert.Equal(t, "pending", data(t, resp)["status"])
	assert.Equal(t, "Listing updated and sent back for review", resp.Body["message"])

	resp = ts.do(t, &ownerActor, http.MethodPost, "/api/listings/"+id+"/resubmit", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_state", errorType(resp))

	resp = ts.do(t, &adminActor, http.MethodPatch, "/api/admin/listings/"+id+"/status", map[string]any{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "validation_error", errorType(resp))
}

func TestRejectRequiresReason(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createListing(t, ownerActor, "Đất nền Nhơn Trạch")

	resp := ts.do(t, &employeeActor, http.MethodPost, "/api/admin/listings/"+id+"/reject", map[string]any{"reason": "  "})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := resp.Body["error"].(map[string]any)
	errs := payload["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "reason", errs[0].(map[string]any)["field"])

	resp = ts.do(t, &ownerActor, http.MethodGet, "/api/listings/"+id, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "pending", data(t, resp)["status"])

	resp = ts.do(t, &employeeActor, http.MethodPost, "/api/admin/listings/"+id+"/reject", map[string]any{"reason": "thiếu ảnh"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "rejected", data(t, resp)["status"])
	assert.Equal(t, "thiếu ảnh", data(t, resp)["rejected_reason"])
}

func TestGetListingHidesOtherOwnersDrafts(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createListing(t, ownerActor, "Nhà phố Quận 3")

	resp := ts.do(t, &strangerActor, http.MethodGet, "/api/listings/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.do(t, &employeeActor, http.MethodGet, "/api/listings/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(t, &ownerActor, http.MethodGet, "/api/listings/not-an-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.do(t, &strangerActor, http.MethodGet, "/api/listings", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resp.Body["data"])
}

func TestPostExpiryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createListing(t, ownerActor, "Biệt thự Thủ Thiêm")
	resp := ts.do(t, &employeeActor, http.MethodPost, "/api/admin/listings/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(t, &employeeActor, http.MethodGet, "/api/admin/post-expiry/status", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	sched := resp.Body["scheduler"].(map[string]any)
	assert.Equal(t, false, sched["isRunning"])
	assert.EqualValues(t, 0, sched["tasksCount"])
	assert.NotEmpty(t, resp.Body["timestamp"])

	ts.clock.Advance(31 * 24 * time.Hour)

	resp = ts.do(t, &employeeActor, http.MethodGet, "/api/admin/post-expiry/stats", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, resp.Body["activeButExpired"])
	assert.Equal(t, true, resp.Body["needsAttention"])

	resp = ts.do(t, &employeeActor, http.MethodPost, "/api/admin/post-expiry/run-check", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.do(t, &adminActor, http.MethodPost, "/api/admin/post-expiry/run-check", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	assert.EqualValues(t, 1, resp.Body["updatedCount"])
	assert.Equal(t, "Marked 1 post(s) as expired", resp.Body["message"])

	resp = ts.do(t, &adminActor, http.MethodGet, "/api/admin/post-expiry/stats", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, resp.Body["expired"])
	assert.EqualValues(t, 0, resp.Body["activeButExpired"])

	resp = ts.do(t, &ownerActor, http.MethodGet, "/api/notifications?unread_only=true", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 2, resp.Body["unread_count"])
	items := resp.Body["data"].([]any)
	require.Len(t, items, 2)
	notificationID := items[0].(map[string]any)["id"].(string)

	resp = ts.do(t, &strangerActor, http.MethodPost, "/api/notifications/"+notificationID+"/read", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.do(t, &ownerActor, http.MethodPost, "/api/notifications/"+notificationID+"/read", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, true, data(t, resp)["is_read"])
}

func TestPaymentSchedulerEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, &ownerActor, http.MethodPost, "/api/payments", map[string]any{"package_id": "premium"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	paymentID := data(t, resp)["id"].(string)
	assert.EqualValues(t, 150000, data(t, resp)["amount"])

	resp = ts.do(t, &ownerActor, http.MethodPost, "/api/payments", map[string]any{"package_id": "basic"})
	require.Equal(t, http.StatusCreated, resp.Code)
	staleID := data(t, resp)["id"].(string)

	resp = ts.do(t, &employeeActor, http.MethodGet, "/api/payment-scheduler/stats", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.do(t, &adminActor, http.MethodPost, "/api/payment-scheduler/cancel/"+paymentID, map[string]any{"reason": ""})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "validation_error", errorType(resp))

	resp = ts.do(t, &adminActor, http.MethodPost, "/api/payment-scheduler/cancel/"+paymentID, map[string]any{"reason": "khách yêu cầu"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	assert.Equal(t, "cancelled", data(t, resp)["status"])

	resp = ts.do(t, &adminActor, http.MethodPost, "/api/payment-scheduler/cancel/"+paymentID, map[string]any{"reason": "lần nữa"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_state", errorType(resp))

	resp = ts.do(t, &adminActor, http.MethodPost, "/api/payment-scheduler/cancel/"+snowflake.ID(42).String(), map[string]any{"reason": "x"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	ts.clock.Advance(20 * time.Hour)

	resp = ts.do(t, &adminActor, http.MethodGet, "/api/payment-scheduler/pending", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	pending := resp.Body["data"].([]any)
	require.Len(t, pending, 1)
	assert.Equal(t, "expiring_soon", pending[0].(map[string]any)["category"])
	assert.Equal(t, "4h 0m", pending[0].(map[string]any)["timeRemaining"])

	resp = ts.do(t, &adminActor, http.MethodGet, "/api/payment-scheduler/stats", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 0, resp.Body["expiredCount"])
	assert.EqualValues(t, 1, resp.Body["expiringIn6Hours"])
	assert.EqualValues(t, 1, resp.Body["expiringIn12Hours"])

	ts.clock.Advance(5 * time.Hour)

	resp = ts.do(t, &adminActor, http.MethodPost, "/api/payment-scheduler/cancel-expired", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, resp.Body["cancelledCount"])
	assert.Equal(t, "Cancelled 1 expired payment(s)", resp.Body["message"])

	resp = ts.do(t, &adminActor, http.MethodPost, "/api/payments/"+staleID+"/complete", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_state", errorType(resp))
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", invalidRequestError(), http.StatusBadRequest, "validation_error"},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"inactive package", packagedomain.ErrInactive, http.StatusNotFound, "not_found"},
		{"unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"unknown", context.DeadlineExceeded, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
		})
	}
}
