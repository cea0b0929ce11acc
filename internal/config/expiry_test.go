package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExpiryPolicy(t *testing.T) {
	require.NoError(t, validateExpiryPolicy(DefaultExpiryPolicy()))

	t.Run("zero grace window", func(t *testing.T) {
		p := DefaultExpiryPolicy()
		p.PaymentGraceWindow = 0
		assert.Error(t, validateExpiryPolicy(p))
	})

	t.Run("fallback days must be positive", func(t *testing.T) {
		p := DefaultExpiryPolicy()
		p.FallbackPackageDays = 0
		assert.Error(t, validateExpiryPolicy(p))
	})

	t.Run("windows out of order", func(t *testing.T) {
		p := DefaultExpiryPolicy()
		p.ExpiringWindow = 3 * time.Hour
		assert.Error(t, validateExpiryPolicy(p))
	})
}

func TestExpiryPolicyHolderDefaults(t *testing.T) {
	var nilHolder *ExpiryPolicyHolder
	assert.Equal(t, DefaultExpiryPolicy(), nilHolder.Get())

	holder := NewStaticExpiryPolicyHolder(ExpiryPolicy{
		PaymentGraceWindow:  48 * time.Hour,
		ExpiringWindow:      12 * time.Hour,
		ExpiringSoonWindow:  6 * time.Hour,
		FallbackPackageDays: 15,
	})
	assert.Equal(t, 48*time.Hour, holder.Get().PaymentGraceWindow)
	assert.Equal(t, 15, holder.Get().FallbackPackageDays)
}
