package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

func pending() *Listing {
	pkg := "basic"
	return &Listing{ID: 1, AuthorID: 2, Title: "Nhà phố", Status: StatusPending, PackageID: &pkg}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Active ")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, status)

	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestApproveSetsExpiryAndAudit(t *testing.T) {
	l := pending()
	reason := "old"
	l.RejectedReason = &reason
	l.RejectedAt = &now
	l.RejectedBy = idPtr(9)

	require.NoError(t, l.Approve(snowflake.ID(7), now, 30))

	assert.Equal(t, StatusActive, l.Status)
	require.NotNil(t, l.ExpiredAt)
	assert.Equal(t, now.AddDate(0, 0, 30), *l.ExpiredAt)
	require.NotNil(t, l.OriginalPackageDuration)
	assert.Equal(t, 30, *l.OriginalPackageDuration)
	assert.Equal(t, snowflake.ID(7), *l.ApprovedBy)
	assert.Nil(t, l.RejectedAt)
	assert.Nil(t, l.RejectedBy)
	assert.Nil(t, l.RejectedReason)
}

func TestApproveKeepsFutureExpiry(t *testing.T) {
	l := pending()
	future := now.Add(48 * time.Hour)
	l.ExpiredAt = &future

	require.NoError(t, l.Approve(7, now, 30))
	assert.Equal(t, future, *l.ExpiredAt)
}

func TestApproveWithoutPackageNeverExpires(t *testing.T) {
	l := pending()
	l.PackageID = nil

	require.NoError(t, l.Approve(7, now, 30))
	assert.Nil(t, l.ExpiredAt)
}

func TestApproveRequiresPending(t *testing.T) {
	for _, status := range []ListingStatus{StatusDraft, StatusActive, StatusRejected, StatusExpired, StatusInactive, StatusDeleted} {
		l := pending()
		l.Status = status
		assert.ErrorIs(t, l.Approve(7, now, 30), ErrInvalidTransition, status)
		assert.Equal(t, status, l.Status)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	l := pending()

	assert.ErrorIs(t, l.Reject(7, now, "   "), ErrReasonRequired)
	assert.Equal(t, StatusPending, l.Status)

	require.NoError(t, l.Reject(7, now, "thiếu ảnh"))
	assert.Equal(t, StatusRejected, l.Status)
	assert.Equal(t, "thiếu ảnh", *l.RejectedReason)
	assert.Nil(t, l.ApprovedAt)
	assert.Nil(t, l.ExpiredAt)
}

func TestEditKeepsRejectionHistory(t *testing.T) {
	l := pending()
	require.NoError(t, l.Reject(7, now, "thiếu ảnh"))

	title := "Nhà phố mới"
	require.NoError(t, l.Edit(Fields{Title: &title}, now.Add(time.Hour)))

	assert.Equal(t, StatusPending, l.Status)
	assert.Equal(t, title, l.Title)
	require.NotNil(t, l.RejectedReason)
	assert.Equal(t, "thiếu ảnh", *l.RejectedReason)
	assert.NotNil(t, l.RejectedAt)
}

func TestEditDraftStaysDraft(t *testing.T) {
	l := pending()
	l.Status = StatusDraft

	require.NoError(t, l.Edit(Fields{}, now))
	assert.Equal(t, StatusDraft, l.Status)
}

func TestResubmitGuard(t *testing.T) {
	for _, status := range []ListingStatus{StatusDraft, StatusPending, StatusActive, StatusInactive, StatusDeleted} {
		l := pending()
		l.Status = status
		assert.ErrorIs(t, l.Resubmit(Fields{}, now), ErrInvalidTransition, status)
	}

	for _, status := range []ListingStatus{StatusRejected, StatusExpired} {
		l := pending()
		l.Status = status
		reason := "thiếu ảnh"
		l.RejectedReason = &reason
		l.RejectedAt = &now

		require.NoError(t, l.Resubmit(Fields{}, now))
		assert.Equal(t, StatusPending, l.Status)
		assert.Nil(t, l.RejectedAt)
		assert.Equal(t, "thiếu ảnh", *l.RejectedReason)
	}
}

func TestComputeExtendedExpiry(t *testing.T) {
	future := now.Add(5 * 24 * time.Hour)
	past := now.Add(-5 * 24 * time.Hour)

	assert.Equal(t, now.AddDate(0, 0, 30), ComputeExtendedExpiry(now, nil, 30))
	assert.Equal(t, future.AddDate(0, 0, 30), ComputeExtendedExpiry(now, &future, 30))
	assert.Equal(t, now.AddDate(0, 0, 30), ComputeExtendedExpiry(now, &past, 30))
}

func TestExtendReactivatesExpired(t *testing.T) {
	l := pending()
	l.Status = StatusExpired
	past := now.Add(-time.Hour)
	l.ExpiredAt = &past

	require.NoError(t, l.Extend("premium", 90, now))
	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, now.AddDate(0, 0, 90), *l.ExpiredAt)
	assert.Equal(t, "premium", *l.PackageID)
	assert.Equal(t, 90, *l.OriginalPackageDuration)
}

func TestExtendGuards(t *testing.T) {
	l := pending()
	assert.ErrorIs(t, l.Extend("basic", 30, now), ErrInvalidTransition)

	l.Status = StatusActive
	assert.ErrorIs(t, l.Extend("", 30, now), ErrPackageRequired)
	assert.ErrorIs(t, l.Extend("basic", 0, now), ErrInvalidDuration)
}

func TestChangeStatus(t *testing.T) {
	l := pending()
	l.Status = StatusActive
	require.NoError(t, l.ChangeStatus(StatusInactive, now))
	assert.Equal(t, StatusInactive, l.Status)

	past := now.Add(-time.Minute)
	l.ExpiredAt = &past
	assert.ErrorIs(t, l.ChangeStatus(StatusActive, now), ErrVisibilityElapsed)

	l = pending()
	assert.ErrorIs(t, l.ChangeStatus(StatusActive, now), ErrInvalidTransition)
	assert.ErrorIs(t, l.ChangeStatus(StatusRejected, now), ErrInvalidTransition)
	assert.ErrorIs(t, l.ChangeStatus("archived", now), ErrInvalidStatus)

	l.Status = StatusDeleted
	assert.ErrorIs(t, l.ChangeStatus(StatusPending, now), ErrInvalidTransition)
}

func TestIsVisible(t *testing.T) {
	l := pending()
	l.Status = StatusActive
	assert.True(t, l.IsVisible(now))

	past := now.Add(-time.Second)
	l.ExpiredAt = &past
	assert.False(t, l.IsVisible(now))
}
