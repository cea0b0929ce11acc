package pagination

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

func TestTokenRoundTripKeepsSubSecondPrecision(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	token := TokenFor(snowflake.ID(42), createdAt)

	pos, err := Pagination{PageToken: token}.Position()
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, snowflake.ID(42), pos.ID)
	assert.True(t, createdAt.Equal(pos.CreatedAt))
}

func TestPositionRejectsGarbage(t *testing.T) {
	_, err := Pagination{PageToken: "not-a-token"}.Position()
	assert.ErrorIs(t, err, ErrInvalidPageToken)

	pos, err := Pagination{}.Position()
	assert.NoError(t, err)
	assert.Nil(t, pos)
}

func TestSizeClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10000}.Size())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Size())
}

func TestBuildCursorPageInfo(t *testing.T) {
	now := time.Now().UTC()
	rows := []*row{{ID: 3, CreatedAt: now}, {ID: 2, CreatedAt: now}, {ID: 1, CreatedAt: now}}

	page, info := BuildCursorPageInfo(rows, 2, func(r *row) string { return TokenFor(r.ID, r.CreatedAt) })
	require.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, TokenFor(2, now), info.NextPageToken)

	page, info = BuildCursorPageInfo(rows, 3, func(r *row) string { return TokenFor(r.ID, r.CreatedAt) })
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
