package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Payment is a package purchase. It is created pending when checkout starts
// and leaves pending exactly once.
type Payment struct {
	ID           snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrderID      string        `json:"order_id"`
	UserID       snowflake.ID  `json:"user_id"`
	ListingID    *snowflake.ID `json:"listing_id,omitempty"`
	PackageID    string        `json:"package_id"`
	Amount       int64         `json:"amount"`
	Currency     string        `json:"currency"`
	Status       PaymentStatus `json:"status"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason *string       `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// CancelledPayment is a row transitioned by the expiry engine.
type CancelledPayment struct {
	ID      snowflake.ID `json:"id"`
	OrderID string       `json:"order_id"`
	UserID  snowflake.ID `json:"user_id"`
}

// PendingPayment annotates a pending payment with its position in the grace window.
type PendingPayment struct {
	Payment
	Category      Category `json:"category"`
	HoursElapsed  float64  `json:"hoursElapsed"`
	TimeRemaining string   `json:"timeRemaining"`
}

// ExpiryStats counts pending payments by how close they are to cancellation.
// The 12 hour bucket includes the 6 hour one.
type ExpiryStats struct {
	ExpiredCount      int64 `json:"expiredCount"`
	ExpiringIn6Hours  int64 `json:"expiringIn6Hours"`
	ExpiringIn12Hours int64 `json:"expiringIn12Hours"`
}
