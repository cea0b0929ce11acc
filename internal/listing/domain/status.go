package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ListingStatus string

const (
	StatusDraft    ListingStatus = "draft"
	StatusPending  ListingStatus = "pending"
	StatusActive   ListingStatus = "active"
	StatusRejected ListingStatus = "rejected"
	StatusExpired  ListingStatus = "expired"
	StatusInactive ListingStatus = "inactive"
	StatusDeleted  ListingStatus = "deleted"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []ListingStatus{
	StatusDraft,
	StatusPending,
	StatusActive,
	StatusRejected,
	StatusExpired,
	StatusInactive,
	StatusDeleted,
}

func (s ListingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusActive, StatusRejected, StatusExpired, StatusInactive, StatusDeleted:
		return true
	default:
		return false
	}
}

func ParseStatus(value string) (ListingStatus, error) {
	status := ListingStatus(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// statusTransitions is the table used by the moderator status endpoint.
// Approve, reject and extend have dedicated transitions below.
var statusTransitions = map[ListingStatus][]ListingStatus{
	StatusDraft:    {StatusPending, StatusDeleted},
	StatusPending:  {StatusActive, StatusRejected, StatusDeleted},
	StatusActive:   {StatusInactive, StatusExpired, StatusDeleted},
	StatusInactive: {StatusActive, StatusDeleted},
	StatusRejected: {StatusPending, StatusDeleted},
	StatusExpired:  {StatusPending, StatusInactive, StatusDeleted},
}

func CanTransition(from, to ListingStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Approve moves a pending listing to active. durationDays is used only when
// the listing carries a package and has no future expiry yet.
func (l *Listing) Approve(by snowflake.ID, now time.Time, durationDays int) error {
	if l.Status != StatusPending {
		return ErrInvalidTransition
	}

	l.Status = StatusActive
	l.ApprovedAt = timePtr(now)
	l.ApprovedBy = idPtr(by)
	l.clearRejection()
	l.RejectedReason = nil

	if l.PackageID != nil && (l.ExpiredAt == nil || !l.ExpiredAt.After(now)) && durationDays > 0 {
		l.ExpiredAt = timePtr(now.AddDate(0, 0, durationDays))
		if l.OriginalPackageDuration == nil {
			l.OriginalPackageDuration = intPtr(durationDays)
		}
	}
	l.UpdatedAt = now
	return nil
}

// Reject moves a pending listing to rejected and drops its visibility window.
func (l *Listing) Reject(by snowflake.ID, now time.Time, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	if l.Status != StatusPending {
		return ErrInvalidTransition
	}

	l.Status = StatusRejected
	l.RejectedAt = timePtr(now)
	l.RejectedBy = idPtr(by)
	l.RejectedReason = &reason
	l.clearApproval()
	l.ExpiredAt = nil
	l.UpdatedAt = now
	return nil
}

// Edit applies owner changes. Non-draft listings go back to moderation;
// the previous rejection stays visible to moderators.
func (l *Listing) Edit(fields Fields, now time.Time) error {
	if l.Status == StatusDeleted {
		return ErrInvalidTransition
	}

	fields.Apply(l)
	if l.Status != StatusDraft {
		l.Status = StatusPending
		l.clearApproval()
	}
	l.UpdatedAt = now
	return nil
}

// Resubmit sends a rejected or expired listing back to moderation. The
// rejection reason is kept as history.
func (l *Listing) Resubmit(fields Fields, now time.Time) error {
	if l.Status != StatusRejected && l.Status != StatusExpired {
		return ErrInvalidTransition
	}

	fields.Apply(l)
	l.Status = StatusPending
	l.clearApproval()
	l.RejectedAt = nil
	l.RejectedBy = nil
	l.UpdatedAt = now
	return nil
}

// Extend adds a package duration to an active or expired listing.
func (l *Listing) Extend(packageID string, durationDays int, now time.Time) error {
	if l.Status != StatusActive && l.Status != StatusExpired {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(packageID) == "" {
		return ErrPackageRequired
	}
	if durationDays <= 0 {
		return ErrInvalidDuration
	}

	expiry := ComputeExtendedExpiry(now, l.ExpiredAt, durationDays)
	l.ExpiredAt = &expiry
	l.Status = StatusActive
	l.PackageID = &packageID
	l.OriginalPackageDuration = intPtr(durationDays)
	l.UpdatedAt = now
	return nil
}

// Delete soft-deletes the listing.
func (l *Listing) Delete(now time.Time) error {
	if l.Status == StatusDeleted {
		return ErrInvalidTransition
	}
	l.Status = StatusDeleted
	l.UpdatedAt = now
	return nil
}

// ChangeStatus applies a moderator status change that has no dedicated
// transition. Reactivation requires a visibility window that has not elapsed.
func (l *Listing) ChangeStatus(to ListingStatus, now time.Time) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if !CanTransition(l.Status, to) {
		return ErrInvalidTransition
	}

	switch to {
	case StatusActive:
		if l.Status == StatusPending {
			return ErrInvalidTransition
		}
		if l.ExpiredAt != nil && !l.ExpiredAt.After(now) {
			return ErrVisibilityElapsed
		}
	case StatusRejected:
		return ErrInvalidTransition
	case StatusPending:
		l.clearApproval()
		l.RejectedAt = nil
		l.RejectedBy = nil
	}

	l.Status = to
	l.UpdatedAt = now
	return nil
}

// ComputeExtendedExpiry returns max(now, current) plus days.
func ComputeExtendedExpiry(now time.Time, current *time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, 0, days)
}

// IsVisible reports whether the listing is publicly visible at now.
func (l *Listing) IsVisible(now time.Time) bool {
	return l.Status == StatusActive && (l.ExpiredAt == nil || l.ExpiredAt.After(now))
}

func (l *Listing) clearApproval() {
	l.ApprovedAt = nil
	l.ApprovedBy = nil
}

func (l *Listing) clearRejection() {
	l.RejectedAt = nil
	l.RejectedBy = nil
}

func timePtr(t time.Time) *time.Time { return &t }

func idPtr(id snowflake.ID) *snowflake.ID {
	if id == 0 {
		return nil
	}
	return &id
}

func intPtr(v int) *int { return &v }
