package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewExpiryPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	RateLimit    RateLimitConfig
	Notification NotificationConfig
	Scheduler    SchedulerConfig
}

type RateLimitConfig struct {
	Enabled          bool
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	OwnerActionRate  float64
	OwnerActionBurst int
}

type NotificationConfig struct {
	AMQPURL  string
	Exchange string
}

type SchedulerConfig struct {
	Enabled               bool
	Timezone              string
	PostExpirySchedule    string
	PaymentExpirySchedule string
	RunPostExpiryOnStart  bool
	PaymentStartupDelay   time.Duration
	JobTimeout            time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "estatehub"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", ""),

		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "estatehub"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),

		RateLimit: RateLimitConfig{
			Enabled:          getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:        strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			RedisPassword:    strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:          getenvInt("REDIS_DB", 0),
			OwnerActionRate:  getenvFloat("RATE_LIMIT_OWNER_ACTION_RATE", 0.5),
			OwnerActionBurst: getenvInt("RATE_LIMIT_OWNER_ACTION_BURST", 10),
		},
		Notification: NotificationConfig{
			AMQPURL:  strings.TrimSpace(getenv("AMQP_URL", "")),
			Exchange: getenv("NOTIFICATION_EXCHANGE", "estatehub.notifications"),
		},
		Scheduler: SchedulerConfig{
			Enabled:               getenvBool("SCHEDULER_ENABLED", true),
			Timezone:              getenv("SCHEDULER_TIMEZONE", "Asia/Ho_Chi_Minh"),
			PostExpirySchedule:    getenv("POST_EXPIRY_SCHEDULE", "0 2 * * *"),
			PaymentExpirySchedule: getenv("PAYMENT_EXPIRY_SCHEDULE", "@hourly"),
			RunPostExpiryOnStart:  getenvBool("POST_EXPIRY_RUN_ON_START", true),
			PaymentStartupDelay:   getenvDuration("PAYMENT_EXPIRY_STARTUP_DELAY", 5*time.Second),
			JobTimeout:            getenvDuration("SCHEDULER_JOB_TIMEOUT", 2*time.Minute),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
