package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Mail     MailConfig
	Push     PushConfig
	Sweep    SweepConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// MailConfig holds the mail provider tenant credentials and sender settings.
type MailConfig struct {
	TenantID      string
	ClientID      string
	ClientSecret  string
	TokenBaseURL  string
	GraphBaseURL  string
	SenderAddress string
	// SenderObjectID, when set, skips directory resolution of the sender.
	SenderObjectID string
}

// PushConfig holds push gateway settings for the best-effort fanout.
type PushConfig struct {
	GatewayURL string
	Enabled    bool
}

// SweepConfig controls the periodic SLA sweep.
type SweepConfig struct {
	Enabled             bool
	IntervalMinutes     int
	WarningHorizonHours float64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	horizon, err := strconv.ParseFloat(getEnv("SLA_WARNING_HORIZON_HOURS", "12"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_WARNING_HORIZON_HOURS: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-notifier"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Mail: MailConfig{
			TenantID:       os.Getenv("MAIL_TENANT_ID"),
			ClientID:       os.Getenv("MAIL_CLIENT_ID"),
			ClientSecret:   os.Getenv("MAIL_CLIENT_SECRET"),
			TokenBaseURL:   getEnv("MAIL_TOKEN_BASE_URL", "https://login.microsoftonline.com"),
			GraphBaseURL:   getEnv("MAIL_GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
			SenderAddress:  os.Getenv("MAIL_SENDER_ADDRESS"),
			SenderObjectID: os.Getenv("MAIL_SENDER_OBJECT_ID"),
		},
		Push: PushConfig{
			GatewayURL: os.Getenv("PUSH_GATEWAY_URL"),
			Enabled:    getEnvAsBool("PUSH_ENABLED", true),
		},
		Sweep: SweepConfig{
			Enabled:             getEnvAsBool("SLA_SWEEP_ENABLED", true),
			IntervalMinutes:     getEnvAsInt("SLA_SWEEP_INTERVAL_MINUTES", 60),
			WarningHorizonHours: horizon,
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Interval returns the sweep period.
func (s SweepConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// TokenURL returns the tenant's client-credentials endpoint.
func (m MailConfig) TokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", m.TokenBaseURL, m.TenantID)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
