package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/estatehub/internal/observability/logger"
	paymentdomain "github.com/smallbiznis/estatehub/internal/payment/domain"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
	"go.uber.org/zap"
)

type listPendingPaymentsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

type cancelPaymentRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) GetPaymentExpiryStats(c *gin.Context) {
	if s.scheduler == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	stats, err := s.scheduler.PaymentExpiryStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) CancelExpiredPayments(c *gin.Context) {
	if s.scheduler == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	ctx := c.Request.Context()
	result, err := s.scheduler.RunPaymentExpiryNow(ctx)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Error("manual payment expiry run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: errorPayload{
			Type:    "job_failed",
			Message: localize(c, msgPaymentExpiryFailed),
		}})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) ListPendingPayments(c *gin.Context) {
	var query listPendingPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.ListPending(c.Request.Context(), paymentdomain.ListPendingRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Payments, "page_info": resp.PageInfo})
}

func (s *Server) CancelPayment(c *gin.Context) {
	id, err := pathID(c, "paymentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req cancelPaymentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.paymentSvc.Cancel(c.Request.Context(), mustActor(c), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment, "message": localize(c, msgPaymentCancelled)})
}
