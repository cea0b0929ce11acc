package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/estatehub/internal/audit/domain"
	"github.com/smallbiznis/estatehub/internal/authorization"
	"github.com/smallbiznis/estatehub/internal/clock"
	"github.com/smallbiznis/estatehub/internal/config"
	listingdomain "github.com/smallbiznis/estatehub/internal/listing/domain"
	notificationdomain "github.com/smallbiznis/estatehub/internal/notification/domain"
	"github.com/smallbiznis/estatehub/internal/observability"
	obsmiddleware "github.com/smallbiznis/estatehub/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/estatehub/internal/observability/metrics"
	obstracing "github.com/smallbiznis/estatehub/internal/observability/tracing"
	packagedomain "github.com/smallbiznis/estatehub/internal/packagecatalog/domain"
	paymentdomain "github.com/smallbiznis/estatehub/internal/payment/domain"
	"github.com/smallbiznis/estatehub/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the full API. Domain modules are composed by the binaries.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerServer),
	fx.Invoke(run),
)

// ProbeModule serves only /health and /metrics, for worker processes.
var ProbeModule = fx.Module("http.probe",
	fx.Provide(NewEngine),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger, shutdowner fx.Shutdowner) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	clock           clock.Clock
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	listingSvc      listingdomain.Service
	paymentSvc      paymentdomain.Service
	notificationSvc notificationdomain.Service
	packageSvc      packagedomain.Service
	scheduler       *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Clock           clock.Clock
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	ListingSvc      listingdomain.Service
	PaymentSvc      paymentdomain.Service
	NotificationSvc notificationdomain.Service
	PackageSvc      packagedomain.Service
	Scheduler       *scheduler.Scheduler `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		clock:           p.Clock,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		listingSvc:      p.ListingSvc,
		paymentSvc:      p.PaymentSvc,
		notificationSvc: p.NotificationSvc,
		packageSvc:      p.PackageSvc,
		scheduler:       p.Scheduler,
	}

	svc.registerRoutes()

	return svc
}

func registerServer(*Server) {}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api", ActorContext())

	api.GET("/packages", s.ListPackages)

	authed := api.Group("", RequireActor())

	// -------- Listings --------
	authed.POST("/listings", s.authorize(authorization.ObjectListing, authorization.ActionListingCreate), s.CreateListing)
	authed.GET("/listings", s.authorize(authorization.ObjectListing, authorization.ActionListingView), s.ListListings)
	authed.GET("/listings/:id", s.authorize(authorization.ObjectListing, authorization.ActionListingView), s.GetListing)
	authed.PUT("/listings/:id", s.authorize(authorization.ObjectListing, authorization.ActionListingEdit), s.UpdateListing)
	authed.POST("/listings/:id/resubmit", s.authorize(authorization.ObjectListing, authorization.ActionListingResubmit), s.ResubmitListing)
	authed.POST("/listings/:id/extend", s.authorize(authorization.ObjectListing, authorization.ActionListingExtend), s.ExtendListing)
	authed.DELETE("/listings/:id", s.authorize(authorization.ObjectListing, authorization.ActionListingDelete), s.DeleteListing)

	// -------- Payments --------
	authed.POST("/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentCreate), s.CreatePayment)
	authed.POST("/payments/:id/complete", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentComplete), s.CompletePayment)

	// -------- Notifications --------
	authed.GET("/notifications", s.authorize(authorization.ObjectNotification, authorization.ActionNotificationView), s.ListNotifications)
	authed.POST("/notifications/:id/read", s.authorize(authorization.ObjectNotification, authorization.ActionNotificationView), s.MarkNotificationRead)

	// -------- Payment scheduler --------
	payments := authed.Group("/payment-scheduler")
	payments.GET("/stats", s.authorize(authorization.ObjectPaymentScheduler, authorization.ActionPaymentSchedulerView), s.GetPaymentExpiryStats)
	payments.POST("/cancel-expired", s.authorize(authorization.ObjectPaymentScheduler, authorization.ActionPaymentSchedulerRun), s.CancelExpiredPayments)
	payments.GET("/pending", s.authorize(authorization.ObjectPaymentScheduler, authorization.ActionPaymentSchedulerView), s.ListPendingPayments)
	payments.POST("/cancel/:paymentId", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentCancel), s.CancelPayment)

	// -------- Admin --------
	admin := authed.Group("/admin")
	admin.GET("/post-expiry/status", s.authorize(authorization.ObjectPostExpiry, authorization.ActionPostExpiryView), s.GetPostExpiryStatus)
	admin.POST("/post-expiry/run-check", s.authorize(authorization.ObjectPostExpiry, authorization.ActionPostExpiryRun), s.RunPostExpiryCheck)
	admin.GET("/post-expiry/stats", s.authorize(authorization.ObjectPostExpiry, authorization.ActionPostExpiryView), s.GetPostExpiryStats)

	admin.POST("/listings/:id/approve", s.authorize(authorization.ObjectListing, authorization.ActionListingApprove), s.ApproveListing)
	admin.POST("/listings/:id/reject", s.authorize(authorization.ObjectListing, authorization.ActionListingReject), s.RejectListing)
	admin.PATCH("/listings/:id/status", s.authorize(authorization.ObjectListing, authorization.ActionListingStatus), s.ChangeListingStatus)

	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)

	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
