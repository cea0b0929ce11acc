package correlation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "run-1")
	ctx, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "run-1", cid)
	assert.Equal(t, "run-1", ExtractCorrelationID(ctx))
}

func TestEventHeadersGeneratesID(t *testing.T) {
	at := time.Date(2025, 5, 1, 2, 0, 0, 0, time.UTC)
	headers := EventHeaders(context.Background(), at)
	require.NotEmpty(t, headers["correlation_id"])
	assert.Len(t, headers["correlation_id"], 26)
	assert.Equal(t, "2025-05-01T02:00:00Z", headers["published_at"])
	_, hasTrace := headers["trace_id"]
	assert.False(t, hasTrace)
}
