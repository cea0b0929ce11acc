package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

type messageKey string

const (
	msgListingCreated       messageKey = "listing.created"
	msgListingUpdated       messageKey = "listing.updated"
	msgListingResubmitted   messageKey = "listing.resubmitted"
	msgListingExtended      messageKey = "listing.extended"
	msgListingDeleted       messageKey = "listing.deleted"
	msgListingApproved      messageKey = "listing.approved"
	msgListingRejected      messageKey = "listing.rejected"
	msgListingStatusChanged messageKey = "listing.status_changed"
	msgPaymentCreated       messageKey = "payment.created"
	msgPaymentCompleted     messageKey = "payment.completed"
	msgPaymentCancelled     messageKey = "payment.cancelled"
	msgNotificationRead     messageKey = "notification.read"
	msgPostExpiryFailed     messageKey = "post_expiry.failed"
	msgPaymentExpiryFailed  messageKey = "payment_expiry.failed"
)

const defaultLanguage = "vi"

var messages = map[string]map[messageKey]string{
	"vi": {
		msgListingCreated:       "Đăng tin thành công, tin đang chờ duyệt",
		msgListingUpdated:       "Cập nhật tin đăng thành công, tin đang chờ duyệt lại",
		msgListingResubmitted:   "Đã gửi lại tin đăng để duyệt",
		msgListingExtended:      "Gia hạn tin đăng thành công",
		msgListingDeleted:       "Đã xoá tin đăng",
		msgListingApproved:      "Đã duyệt tin đăng",
		msgListingRejected:      "Đã từ chối tin đăng",
		msgListingStatusChanged: "Cập nhật trạng thái tin đăng thành công",
		msgPaymentCreated:       "Đã tạo đơn thanh toán",
		msgPaymentCompleted:     "Thanh toán thành công",
		msgPaymentCancelled:     "Đã huỷ thanh toán",
		msgNotificationRead:     "Đã đánh dấu thông báo là đã đọc",
		msgPostExpiryFailed:     "Kiểm tra tin hết hạn thất bại",
		msgPaymentExpiryFailed:  "Huỷ thanh toán quá hạn thất bại",
	},
	"en": {
		msgListingCreated:       "Listing submitted for review",
		msgListingUpdated:       "Listing updated and sent back for review",
		msgListingResubmitted:   "Listing resubmitted for review",
		msgListingExtended:      "Listing extended",
		msgListingDeleted:       "Listing deleted",
		msgListingApproved:      "Listing approved",
		msgListingRejected:      "Listing rejected",
		msgListingStatusChanged: "Listing status updated",
		msgPaymentCreated:       "Payment created",
		msgPaymentCompleted:     "Payment completed",
		msgPaymentCancelled:     "Payment cancelled",
		msgNotificationRead:     "Notification marked as read",
		msgPostExpiryFailed:     "Post expiry check failed",
		msgPaymentExpiryFailed:  "Payment expiry run failed",
	},
}

// localize picks the message for the first supported language in
// Accept-Language, falling back to Vietnamese.
func localize(c *gin.Context, key messageKey) string {
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		lang := strings.SplitN(tag, "-", 2)[0]
		if catalog, ok := messages[lang]; ok {
			return catalog[key]
		}
	}
	return messages[defaultLanguage][key]
}
