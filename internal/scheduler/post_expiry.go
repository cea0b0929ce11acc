package scheduler

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/estatehub/internal/audit/domain"
	"github.com/smallbiznis/estatehub/internal/clock"
	listingdomain "github.com/smallbiznis/estatehub/internal/listing/domain"
	notificationdomain "github.com/smallbiznis/estatehub/internal/notification/domain"
	obslogger "github.com/smallbiznis/estatehub/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/estatehub/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const expiredPostsLink = "/dashboard/posts?status=expired"

// PostExpiryResult is returned by every post expiry run.
type PostExpiryResult struct {
	UpdatedCount        int    `json:"updatedCount"`
	NotifiedOwners      int    `json:"notifiedOwners"`
	FailedNotifications int    `json:"failedNotifications"`
	Message             string `json:"message"`
}

type PostExpiryParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     listingdomain.Repository
	Notifier notificationdomain.Notifier `optional:"true"`
	AuditSvc auditdomain.Service         `optional:"true"`
	Metrics  *obsmetrics.Metrics         `optional:"true"`
}

// PostExpiryEngine moves active listings past their expiry to expired and
// tells each affected owner once per run.
type PostExpiryEngine struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     listingdomain.Repository
	notifier notificationdomain.Notifier
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func NewPostExpiryEngine(p PostExpiryParams) *PostExpiryEngine {
	return &PostExpiryEngine{
		db:       p.DB,
		log:      p.Log.Named("scheduler.post_expiry"),
		clock:    p.Clock,
		repo:     p.Repo,
		notifier: p.Notifier,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// Run selects and transitions in one conditional statement, so a listing
// re-approved or extended concurrently no longer matches and is left alone.
// Notification failures are logged per owner and never undo the transition.
func (e *PostExpiryEngine) Run(ctx context.Context) (PostExpiryResult, error) {
	now := e.clock.Now().UTC()

	expired, err := e.repo.ExpireDue(ctx, e.db, now)
	if err != nil {
		return PostExpiryResult{}, fmt.Errorf("expire listings: %w", err)
	}
	if len(expired) == 0 {
		return PostExpiryResult{Message: "No expired posts found"}, nil
	}

	e.metrics.RecordListingTransition(ctx,
		string(listingdomain.StatusActive),
		string(listingdomain.StatusExpired),
		"scheduler",
		len(expired),
	)
	e.audit(ctx, expired)

	notified, failed := e.notifyOwners(ctx, expired)
	return PostExpiryResult{
		UpdatedCount:        len(expired),
		NotifiedOwners:      notified,
		FailedNotifications: failed,
		Message:             fmt.Sprintf("Marked %d post(s) as expired", len(expired)),
	}, nil
}

func (e *PostExpiryEngine) notifyOwners(ctx context.Context, expired []listingdomain.ExpiredListing) (int, int) {
	if e.notifier == nil {
		return 0, 0
	}

	owners, byOwner := groupByOwner(expired)
	var notified, failed int
	for _, ownerID := range owners {
		payload := notificationdomain.PostsExpired{
			Posts:      byOwner[ownerID],
			ActionLink: expiredPostsLink,
		}
		if err := e.notifier.Notify(ctx, ownerID, payload); err != nil {
			failed++
			obslogger.WithContext(ctx, e.log).Warn("failed to notify owner of expired posts",
				zap.String("owner_id", ownerID.String()),
				zap.Int("post_count", len(payload.Posts)),
				zap.Error(err),
			)
			continue
		}
		notified++
	}
	return notified, failed
}

// groupByOwner keeps owners in the order they first appear.
func groupByOwner(expired []listingdomain.ExpiredListing) ([]snowflake.ID, map[snowflake.ID][]notificationdomain.ExpiredPost) {
	owners := make([]snowflake.ID, 0)
	byOwner := make(map[snowflake.ID][]notificationdomain.ExpiredPost)
	for _, row := range expired {
		if _, seen := byOwner[row.AuthorID]; !seen {
			owners = append(owners, row.AuthorID)
		}
		byOwner[row.AuthorID] = append(byOwner[row.AuthorID], notificationdomain.ExpiredPost{
			PostID:    row.ID,
			PostTitle: row.Title,
		})
	}
	return owners, byOwner
}

func (e *PostExpiryEngine) audit(ctx context.Context, expired []listingdomain.ExpiredListing) {
	if e.auditSvc == nil {
		return
	}
	ids := make([]string, 0, len(expired))
	for _, row := range expired {
		ids = append(ids, row.ID.String())
	}
	_ = e.auditSvc.AuditLog(ctx, auditdomain.Entry{
		ActorType:  string(auditdomain.ActorTypeSystem),
		Action:     auditdomain.ActionListingsExpired,
		TargetType: "listing",
		Metadata: map[string]any{
			"count":       len(expired),
			"listing_ids": ids,
		},
	})
}
