package domain

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypePostApproved     Type = "post_approved"
	TypePostRejected     Type = "post_rejected"
	TypePostExpired      Type = "post_expired"
	TypePaymentCancelled Type = "payment_cancelled"
	TypeGeneric          Type = "generic"
)

// Payload is the typed body of a notification. Each variant carries only the
// fields its type needs and knows how to render itself.
type Payload interface {
	Type() Type
	Render() Content
}

// Content is the human readable part of a notification.
type Content struct {
	Title   string
	Message string
}

type PostApproved struct {
	PostID     snowflake.ID `json:"postId"`
	PostTitle  string       `json:"postTitle"`
	ActionLink string       `json:"actionLink,omitempty"`
}

func (PostApproved) Type() Type { return TypePostApproved }

func (p PostApproved) Render() Content {
	return Content{
		Title:   "Tin đăng đã được duyệt",
		Message: fmt.Sprintf("Tin đăng %q của bạn đã được duyệt và đang hiển thị.", p.PostTitle),
	}
}

type PostRejected struct {
	PostID     snowflake.ID `json:"postId"`
	PostTitle  string       `json:"postTitle"`
	Reason     string       `json:"reason"`
	ActionLink string       `json:"actionLink,omitempty"`
}

func (PostRejected) Type() Type { return TypePostRejected }

func (p PostRejected) Render() Content {
	return Content{
		Title:   "Tin đăng bị từ chối",
		Message: fmt.Sprintf("Tin đăng %q của bạn bị từ chối. Lý do: %s", p.PostTitle, p.Reason),
	}
}

type ExpiredPost struct {
	PostID    snowflake.ID `json:"postId"`
	PostTitle string       `json:"postTitle"`
}

// PostsExpired groups every listing of one owner expired in the same run.
type PostsExpired struct {
	Posts      []ExpiredPost `json:"posts"`
	ActionLink string        `json:"actionLink,omitempty"`
}

func (PostsExpired) Type() Type { return TypePostExpired }

func (p PostsExpired) Render() Content {
	if len(p.Posts) == 1 {
		title := p.Posts[0].PostTitle
		return Content{
			Title:   fmt.Sprintf("Tin đăng %q đã hết hạn", title),
			Message: fmt.Sprintf("Tin đăng %q đã hết thời gian hiển thị. Gia hạn để tiếp tục hiển thị tin.", title),
		}
	}

	titles := make([]string, 0, len(p.Posts))
	for _, post := range p.Posts {
		titles = append(titles, fmt.Sprintf("%q", post.PostTitle))
	}
	return Content{
		Title:   fmt.Sprintf("%d tin đăng đã hết hạn", len(p.Posts)),
		Message: fmt.Sprintf("Các tin đăng sau đã hết thời gian hiển thị: %s. Gia hạn để tiếp tục hiển thị tin.", strings.Join(titles, ", ")),
	}
}

type PaymentCancelled struct {
	PaymentID snowflake.ID `json:"paymentId"`
	OrderID   string       `json:"orderId"`
	Reason    string       `json:"reason"`
}

func (PaymentCancelled) Type() Type { return TypePaymentCancelled }

func (p PaymentCancelled) Render() Content {
	return Content{
		Title:   "Thanh toán đã bị huỷ",
		Message: fmt.Sprintf("Giao dịch %s đã bị huỷ. Lý do: %s", p.OrderID, p.Reason),
	}
}

// Generic carries notifications that have no dedicated variant.
type Generic struct {
	Kind    string         `json:"kind"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (Generic) Type() Type { return TypeGeneric }

func (p Generic) Render() Content {
	return Content{Title: p.Title, Message: p.Message}
}
