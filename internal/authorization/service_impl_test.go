package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/estatehub/internal/audit/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAudit struct {
	entries []auditdomain.Entry
}

func (r *recordingAudit) AuditLog(_ context.Context, entry auditdomain.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAudit) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func newTestService(t *testing.T, audit auditdomain.Service) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer, AuditSvc: audit})
}

func TestAuthorizeRoleHierarchy(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	user := Actor{ID: snowflake.ID(1), Role: RoleUser}
	employee := Actor{ID: snowflake.ID(2), Role: RoleEmployee}
	admin := Actor{ID: snowflake.ID(3), Role: RoleAdmin}

	cases := []struct {
		name    string
		actor   Actor
		object  string
		action  string
		allowed bool
	}{
		{"user edits listing", user, ObjectListing, ActionListingEdit, true},
		{"user cannot approve", user, ObjectListing, ActionListingApprove, false},
		{"employee approves", employee, ObjectListing, ActionListingApprove, true},
		{"employee inherits owner actions", employee, ObjectListing, ActionListingCreate, true},
		{"employee cannot run payment scheduler", employee, ObjectPaymentScheduler, ActionPaymentSchedulerRun, false},
		{"admin runs payment scheduler", admin, ObjectPaymentScheduler, ActionPaymentSchedulerRun, true},
		{"admin inherits moderation", admin, ObjectListing, ActionListingReject, true},
		{"system expires listings", System, ObjectListing, ActionListingExpire, true},
		{"system cannot approve", System, ObjectListing, ActionListingApprove, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tc.actor, tc.object, tc.action)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizeRejectsInvalidActor(t *testing.T) {
	svc := newTestService(t, nil)
	err := svc.Authorize(context.Background(), Actor{Role: RoleUser}, ObjectListing, ActionListingView)
	assert.ErrorIs(t, err, ErrInvalidActor)

	err = svc.Authorize(context.Background(), Actor{ID: 1, Role: "owner"}, ObjectListing, ActionListingView)
	assert.ErrorIs(t, err, ErrInvalidActor)
}

func TestAuthorizeAuditsDeniedAndSensitiveGrants(t *testing.T) {
	audit := &recordingAudit{}
	svc := newTestService(t, audit)
	ctx := context.Background()

	require.ErrorIs(t, svc.Authorize(ctx, Actor{ID: 1, Role: RoleUser}, ObjectPayment, ActionPaymentCancel), ErrForbidden)
	require.NoError(t, svc.Authorize(ctx, Actor{ID: 2, Role: RoleAdmin}, ObjectPayment, ActionPaymentCancel))
	require.NoError(t, svc.Authorize(ctx, Actor{ID: 2, Role: RoleAdmin}, ObjectListing, ActionListingView))

	require.Len(t, audit.entries, 2)
	assert.Equal(t, "authorization.denied", audit.entries[0].Action)
	assert.Equal(t, "1", audit.entries[0].ActorID)
	assert.Equal(t, "authorization.granted", audit.entries[1].Action)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	role, err = ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)

	_, err = ParseRole("system")
	assert.ErrorIs(t, err, ErrInvalidActor)
}
