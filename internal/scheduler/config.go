package scheduler

import (
	"time"

	"github.com/smallbiznis/estatehub/internal/config"
)

// Config controls cron specs and startup behavior of the expiry jobs.
type Config struct {
	Enabled               bool
	Timezone              string
	PostExpirySchedule    string
	PaymentExpirySchedule string
	RunPostExpiryOnStart  bool
	PaymentStartupDelay   time.Duration
	JobTimeout            time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		Timezone:              "Asia/Ho_Chi_Minh",
		PostExpirySchedule:    "0 2 * * *",
		PaymentExpirySchedule: "@hourly",
		RunPostExpiryOnStart:  true,
		PaymentStartupDelay:   5 * time.Second,
		JobTimeout:            2 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:               cfg.Scheduler.Enabled,
		Timezone:              cfg.Scheduler.Timezone,
		PostExpirySchedule:    cfg.Scheduler.PostExpirySchedule,
		PaymentExpirySchedule: cfg.Scheduler.PaymentExpirySchedule,
		RunPostExpiryOnStart:  cfg.Scheduler.RunPostExpiryOnStart,
		PaymentStartupDelay:   cfg.Scheduler.PaymentStartupDelay,
		JobTimeout:            cfg.Scheduler.JobTimeout,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = defaults.Timezone
	}
	if c.PostExpirySchedule == "" {
		c.PostExpirySchedule = defaults.PostExpirySchedule
	}
	if c.PaymentExpirySchedule == "" {
		c.PaymentExpirySchedule = defaults.PaymentExpirySchedule
	}
	if c.PaymentStartupDelay < 0 {
		c.PaymentStartupDelay = 0
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
