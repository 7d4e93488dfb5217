package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Kafka        KafkaConfig
	SLA          SLAConfig
	TextService  TextServiceConfig
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
	DSN             string
	ApplicationName string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	MigrationsDir   string
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds outbound notification settings.
type NotificationConfig struct {
	EmailFrom      string
	WebhookURL     string
	AlertRecipient string
	Workers        int
	QueueSize      int
	TimeoutSeconds int
}

// KafkaConfig configures the event sink. No brokers disables it.
type KafkaConfig struct {
	Brokers             []string
	Topic               string
	WriteTimeoutSeconds int
}

// SLAConfig holds default target hours and monitor cadence.
type SLAConfig struct {
	CriticalHours          float64
	HighHours              float64
	MediumHours            float64
	LowHours               float64
	MonitorIntervalSeconds int
	SweepLockTTLSeconds    int
}

// TextServiceConfig points at the classification/summarization backend.
type TextServiceConfig struct {
	URL            string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "complaint-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			ApplicationName: getEnv("APP_NAME", "complaint-service"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			AlertRecipient: getEnv("NOTIFY_ALERT_RECIPIENT", "cto@example.com"),
			Workers:        getEnvAsInt("NOTIFY_WORKERS", 4),
			QueueSize:      getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			TimeoutSeconds: getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10),
		},
		Kafka: KafkaConfig{
			Brokers:             splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:               getEnv("KAFKA_TOPIC", "complaint-events"),
			WriteTimeoutSeconds: getEnvAsInt("KAFKA_WRITE_TIMEOUT_SECONDS", 2),
		},
		SLA: SLAConfig{
			CriticalHours:          getEnvAsFloat("SLA_DEFAULT_CRITICAL_HOURS", 4),
			HighHours:              getEnvAsFloat("SLA_DEFAULT_HIGH_HOURS", 12),
			MediumHours:            getEnvAsFloat("SLA_DEFAULT_MEDIUM_HOURS", 48),
			LowHours:               getEnvAsFloat("SLA_DEFAULT_LOW_HOURS", 120),
			MonitorIntervalSeconds: getEnvAsInt("SLA_MONITOR_INTERVAL_SECONDS", 60),
			SweepLockTTLSeconds:    getEnvAsInt("SLA_SWEEP_LOCK_TTL_SECONDS", 55),
		},
		TextService: TextServiceConfig{
			URL:            getEnv("TEXT_SERVICE_URL", ""),
			TimeoutSeconds: getEnvAsInt("TEXT_SERVICE_TIMEOUT_SECONDS", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the SLA engine cannot run with.
func (c *Config) Validate() error {
	for name, hours := range map[string]float64{
		"SLA_DEFAULT_CRITICAL_HOURS": c.SLA.CriticalHours,
		"SLA_DEFAULT_HIGH_HOURS":     c.SLA.HighHours,
		"SLA_DEFAULT_MEDIUM_HOURS":   c.SLA.MediumHours,
		"SLA_DEFAULT_LOW_HOURS":      c.SLA.LowHours,
	} {
		if hours <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	if c.SLA.MonitorIntervalSeconds <= 0 {
		return errors.New("config: SLA_MONITOR_INTERVAL_SECONDS must be positive")
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == "dev-secret" {
		return errors.New("config: AUTH_JWT_SECRET is required in production")
	}
	return nil
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

// MonitorInterval returns the SLA sweep cadence.
func (s SLAConfig) MonitorInterval() time.Duration {
	return time.Duration(s.MonitorIntervalSeconds) * time.Second
}

// SweepLockTTL returns how long one instance holds the sweep lock.
func (s SLAConfig) SweepLockTTL() time.Duration {
	if s.SweepLockTTLSeconds <= 0 {
		return s.MonitorInterval()
	}
	return time.Duration(s.SweepLockTTLSeconds) * time.Second
}

// Timeout returns the per-call text service deadline.
func (t TextServiceConfig) Timeout() time.Duration {
	return secondsOr(t.TimeoutSeconds, 10)
}

// Timeout returns the per-delivery notification deadline.
func (n NotificationConfig) Timeout() time.Duration {
	return secondsOr(n.TimeoutSeconds, 10)
}

// WriteTimeout bounds a single event write.
func (k KafkaConfig) WriteTimeout() time.Duration {
	return secondsOr(k.WriteTimeoutSeconds, 2)
}

func secondsOr(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
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

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
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

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
