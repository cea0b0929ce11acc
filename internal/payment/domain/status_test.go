package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var windows = Windows{Grace: 24 * time.Hour, Expiring: 12 * time.Hour, ExpiringSoon: 6 * time.Hour}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		age       time.Duration
		category  Category
		remaining string
	}{
		{"fresh", time.Hour, CategoryNormal, "23h 0m"},
		{"just under twelve remaining", 12*time.Hour + time.Minute, CategoryExpiring, "11h 59m"},
		{"twelve remaining", 12 * time.Hour, CategoryExpiring, "12h 0m"},
		{"six remaining", 18 * time.Hour, CategoryExpiringSoon, "6h 0m"},
		{"last minute", 23*time.Hour + 59*time.Minute, CategoryExpiringSoon, "0h 1m"},
		{"window elapsed", 24 * time.Hour, CategoryExpired, "0h 0m"},
		{"long gone", 72 * time.Hour, CategoryExpired, "0h 0m"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(now, now.Add(-tc.age), windows)
			assert.Equal(t, tc.category, got.Category)
			assert.Equal(t, tc.remaining, got.TimeRemaining)
		})
	}
}

func TestClassifyHoursElapsed(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	got := Classify(now, now.Add(-(90 * time.Minute)), windows)
	assert.Equal(t, 1.5, got.HoursElapsed)
}

func TestCancel(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &Payment{Status: StatusPending}

	assert.ErrorIs(t, p.Cancel(" ", now), ErrReasonRequired)
	assert.Equal(t, StatusPending, p.Status)

	require.NoError(t, p.Cancel("khách yêu cầu", now))
	assert.Equal(t, StatusCancelled, p.Status)
	assert.Equal(t, now, *p.CancelledAt)
	assert.Equal(t, "khách yêu cầu", *p.CancelReason)

	assert.ErrorIs(t, p.Cancel("again", now), ErrNotPending)
	assert.ErrorIs(t, p.Complete(now), ErrNotPending)
	assert.ErrorIs(t, p.Fail(now), ErrNotPending)
}

func TestComplete(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &Payment{Status: StatusPending}

	require.NoError(t, p.Complete(now))
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Nil(t, p.CancelledAt)
}
