package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/estatehub/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) GetPostExpiryStatus(c *gin.Context) {
	if s.scheduler == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	status := s.scheduler.Status()
	c.JSON(http.StatusOK, gin.H{
		"scheduler": status,
		"timestamp": s.clock.Now().UTC(),
	})
}

func (s *Server) RunPostExpiryCheck(c *gin.Context) {
	if s.scheduler == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	ctx := c.Request.Context()
	result, err := s.scheduler.RunPostExpiryNow(ctx)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Error("manual post expiry check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: errorPayload{
			Type:    "job_failed",
			Message: localize(c, msgPostExpiryFailed),
		}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updatedCount": result.UpdatedCount,
		"message":      result.Message,
		"timestamp":    s.clock.Now().UTC(),
	})
}

// GetPostExpiryStats flattens per-status counts next to the health fields so
// the dashboard reads them as top-level keys.
func (s *Server) GetPostExpiryStats(c *gin.Context) {
	stats, err := s.listingSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{}
	for status, count := range stats.ByStatus {
		body[string(status)] = count
	}
	body["total"] = stats.Total
	body["activeButExpired"] = stats.ActiveButExpired
	body["validActive"] = stats.ValidActive
	body["needsAttention"] = stats.NeedsAttention
	body["timestamp"] = s.clock.Now().UTC()

	c.JSON(http.StatusOK, body)
}
