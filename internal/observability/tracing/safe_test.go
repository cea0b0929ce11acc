package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsFreeText(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/admin/listings/:id/reject"),
		attribute.String("rejected_reason", "thiếu ảnh"),
		attribute.Int("http.status_code", 200),
	)
	assert.Len(t, attrs, 2)
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("rejected_reason"), attr.Key)
	}
}

func TestSafeErrorKeepsCode(t *testing.T) {
	err := fmt.Errorf("listing_not_found: %w", errors.New("select failed for user 42"))
	assert.EqualError(t, SafeError(err), "listing_not_found")
	assert.NoError(t, SafeError(nil))
}
