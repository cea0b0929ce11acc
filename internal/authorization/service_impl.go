package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/estatehub/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectListing          = "listing"
	ObjectPostExpiry       = "post_expiry"
	ObjectPayment          = "payment"
	ObjectPaymentScheduler = "payment_scheduler"
	ObjectNotification     = "notification"
	ObjectPackage          = "package"
	ObjectAuditLog         = "audit_log"
)

const (
	ActionListingCreate   = "listing.create"
	ActionListingView     = "listing.view"
	ActionListingEdit     = "listing.edit"
	ActionListingResubmit = "listing.resubmit"
	ActionListingExtend   = "listing.extend"
	ActionListingDelete   = "listing.delete"
	ActionListingApprove  = "listing.approve"
	ActionListingReject   = "listing.reject"
	ActionListingStatus   = "listing.status"
	ActionListingExpire   = "listing.expire"

	ActionPostExpiryView = "post_expiry.view"
	ActionPostExpiryRun  = "post_expiry.run"

	ActionPaymentCreate   = "payment.create"
	ActionPaymentView     = "payment.view"
	ActionPaymentComplete = "payment.complete"
	ActionPaymentCancel   = "payment.cancel"

	ActionPaymentSchedulerView = "payment_scheduler.view"
	ActionPaymentSchedulerRun  = "payment_scheduler.run"

	ActionNotificationView = "notification.view"
	ActionPackageView      = "package.view"
	ActionAuditLogView     = "audit_log.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

// NewEnforcer loads policies persisted in casbin_rule and seeds the defaults.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor Actor, object string, action string) error {
	if !actor.Role.Valid() {
		return ErrInvalidActor
	}
	if actor.Role != RoleSystem && actor.ID == 0 {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(roleSubject(actor.Role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("role", string(actor.Role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.audit(ctx, actor, "authorization.denied", object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.audit(ctx, actor, "authorization.granted", object, action)
	}
	return nil
}

func (s *ServiceImpl) audit(ctx context.Context, actor Actor, event string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		ActorType:  actor.Type(),
		ActorID:    actor.IDString(),
		Action:     event,
		TargetType: "authorization",
		TargetID:   object,
		Metadata: map[string]any{
			"object": object,
			"action": action,
			"role":   string(actor.Role),
		},
	})
}

func roleSubject(role Role) string {
	return fmt.Sprintf("role:%s", role)
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionPostExpiryRun, ActionPaymentSchedulerRun, ActionPaymentCancel:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Listing owners
		{"role:user", ObjectListing, ActionListingCreate},
		{"role:user", ObjectListing, ActionListingView},
		{"role:user", ObjectListing, ActionListingEdit},
		{"role:user", ObjectListing, ActionListingResubmit},
		{"role:user", ObjectListing, ActionListingExtend},
		{"role:user", ObjectListing, ActionListingDelete},
		{"role:user", ObjectPayment, ActionPaymentCreate},
		{"role:user", ObjectPayment, ActionPaymentView},
		{"role:user", ObjectNotification, ActionNotificationView},
		{"role:user", ObjectPackage, ActionPackageView},

		// Moderators
		{"role:employee", ObjectListing, ActionListingApprove},
		{"role:employee", ObjectListing, ActionListingReject},
		{"role:employee", ObjectListing, ActionListingStatus},
		{"role:employee", ObjectPostExpiry, ActionPostExpiryView},

		// Administrators
		{"role:admin", ObjectPostExpiry, ActionPostExpiryRun},
		{"role:admin", ObjectPaymentScheduler, ActionPaymentSchedulerView},
		{"role:admin", ObjectPaymentScheduler, ActionPaymentSchedulerRun},
		{"role:admin", ObjectPayment, ActionPaymentCancel},
		{"role:admin", ObjectPayment, ActionPaymentComplete},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},

		// Background jobs
		{"role:system", ObjectListing, ActionListingExpire},
		{"role:system", ObjectPaymentScheduler, ActionPaymentSchedulerRun},
		{"role:system", ObjectPayment, ActionPaymentComplete},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// Staff inherit owner capabilities; admins inherit moderator capabilities.
	groupings := [][]string{
		{"role:employee", "role:user"},
		{"role:admin", "role:employee"},
	}
	for _, grouping := range groupings {
		if _, err := enforcer.AddGroupingPolicy(grouping); err != nil {
			return err
		}
	}
	return nil
}
