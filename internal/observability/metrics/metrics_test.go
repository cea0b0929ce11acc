package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("from", "active"),
		attribute.String("listing_id", "456"),
		attribute.String("to", "expired"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "listing_id" {
			t.Fatalf("expected listing_id to be dropped")
		}
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordListingTransition(ctx, "pending", "active", "action", 1)
	m.RecordPaymentCancel(ctx, "engine", 2)
	m.RecordNotification(ctx, "post_expired", errors.New("boom"))
	m.RecordRateLimitAllowed(ctx, "extend")
	m.RecordRateLimitDenied(ctx, "extend", "exhausted")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	require.NotNil(t, m)
	m.RecordListingTransition(context.Background(), "active", "expired", "engine", 3)
}
