package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/estatehub/internal/notification/domain"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
)

type listNotificationsQuery struct {
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
	UnreadOnly string `form:"unread_only"`
}

func (s *Server) ListNotifications(c *gin.Context) {
	var query listNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	unreadOnly, err := parseOptionalBool(query.UnreadOnly)
	if err != nil {
		AbortWithError(c, newValidationError("unread_only", "invalid_unread_only", "invalid unread_only"))
		return
	}

	req := notificationdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	}
	if unreadOnly != nil {
		req.UnreadOnly = *unreadOnly
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), mustActor(c).ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":         resp.Notifications,
		"page_info":    resp.PageInfo,
		"unread_count": resp.UnreadCount,
	})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	notification, err := s.notificationSvc.MarkRead(c.Request.Context(), mustActor(c).ID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notification, "message": localize(c, msgNotificationRead)})
}
