package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ExpiryPolicy holds the time windows used by the expiry engines and the action surface.
type ExpiryPolicy struct {
	PaymentGraceWindow  time.Duration `mapstructure:"paymentGraceWindow"`
	ExpiringWindow      time.Duration `mapstructure:"expiringWindow"`
	ExpiringSoonWindow  time.Duration `mapstructure:"expiringSoonWindow"`
	FallbackPackageDays int           `mapstructure:"fallbackPackageDays"`
}

func DefaultExpiryPolicy() ExpiryPolicy {
	return ExpiryPolicy{
		PaymentGraceWindow:  24 * time.Hour,
		ExpiringWindow:      12 * time.Hour,
		ExpiringSoonWindow:  6 * time.Hour,
		FallbackPackageDays: 30,
	}
}

type ExpiryPolicyHolder struct {
	current atomic.Value // holds ExpiryPolicy
}

// NewStaticExpiryPolicyHolder returns a holder that never reloads.
func NewStaticExpiryPolicyHolder(policy ExpiryPolicy) *ExpiryPolicyHolder {
	holder := &ExpiryPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewExpiryPolicyHolder(log *zap.Logger) (*ExpiryPolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.expiry")

	v := viper.New()
	v.SetConfigName("expiry")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/estatehub")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ESTATEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultExpiryPolicy()
	v.SetDefault("expiry.paymentGraceWindow", defaults.PaymentGraceWindow)
	v.SetDefault("expiry.expiringWindow", defaults.ExpiringWindow)
	v.SetDefault("expiry.expiringSoonWindow", defaults.ExpiringSoonWindow)
	v.SetDefault("expiry.fallbackPackageDays", defaults.FallbackPackageDays)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var policy ExpiryPolicy
	if err := v.UnmarshalKey("expiry", &policy); err != nil {
		return nil, err
	}
	if err := validateExpiryPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticExpiryPolicyHolder(policy)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ExpiryPolicy
		if err := v.UnmarshalKey("expiry", &updated); err != nil {
			log.Warn("expiry policy reload failed", zap.Error(err))
			return
		}
		if err := validateExpiryPolicy(updated); err != nil {
			log.Warn("invalid expiry policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("expiry policy reloaded",
			zap.String("file", e.Name),
			zap.Duration("payment_grace_window", updated.PaymentGraceWindow),
			zap.Int("fallback_package_days", updated.FallbackPackageDays),
		)
	})

	return holder, nil
}

func (h *ExpiryPolicyHolder) Get() ExpiryPolicy {
	if h == nil {
		return DefaultExpiryPolicy()
	}
	policy, ok := h.current.Load().(ExpiryPolicy)
	if !ok {
		return DefaultExpiryPolicy()
	}
	return policy
}

func validateExpiryPolicy(p ExpiryPolicy) error {
	if p.PaymentGraceWindow <= 0 {
		return errors.New("expiry.paymentGraceWindow must be positive")
	}
	if p.FallbackPackageDays <= 0 {
		return errors.New("expiry.fallbackPackageDays must be positive")
	}
	if p.ExpiringSoonWindow <= 0 || p.ExpiringWindow < p.ExpiringSoonWindow {
		return errors.New("expiry.expiringWindow must be >= expiringSoonWindow > 0")
	}
	if p.ExpiringWindow >= p.PaymentGraceWindow {
		return errors.New("expiry.expiringWindow must be shorter than paymentGraceWindow")
	}
	return nil
}
