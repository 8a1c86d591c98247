package config

import (
	"time"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Lending   LendingConfig   `yaml:"lending"`
	Notify    NotifyConfig    `yaml:"notify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`

	// RateLimitPerMinute caps loan requests and waitlist joins per caller. 0 disables it.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" env:"SERVER_RATE_LIMIT_PER_MINUTE" env-default:"30"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"false"`
	MigrationsDir   string        `yaml:"migrations_dir"     env:"DATABASE_MIGRATIONS_DIR"     env-default:"./migrations"`
}

// AuthConfig holds the settings used to verify access tokens issued by the
// identity service.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"       env-required:"true"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"mangalend"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"15m"`
}

// LendingConfig holds loan lifecycle settings.
type LendingConfig struct {
	LoanPeriod     time.Duration `yaml:"loan_period"           env:"LENDING_LOAN_PERIOD"           env-default:"168h"`
	StoreTimeout   time.Duration `yaml:"store_timeout"         env:"LENDING_STORE_TIMEOUT"         env-default:"5s"`
	DrainPolicyRaw string        `yaml:"waitlist_drain_policy" env:"LENDING_WAITLIST_DRAIN_POLICY" env-default:"retire"`

	// DrainPolicy is parsed from DrainPolicyRaw during validation.
	DrainPolicy domain.DrainPolicy `yaml:"-" env:"-"`
}

// NotifyConfig controls per-recipient retries during notification fanout.
type NotifyConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"     env:"NOTIFY_MAX_ATTEMPTS"     env-default:"3"`
	InitialInterval time.Duration `yaml:"initial_interval" env:"NOTIFY_INITIAL_INTERVAL" env-default:"100ms"`
	MaxInterval     time.Duration `yaml:"max_interval"     env:"NOTIFY_MAX_INTERVAL"     env-default:"2s"`
	AttemptTimeout  time.Duration `yaml:"attempt_timeout"  env:"NOTIFY_ATTEMPT_TIMEOUT"  env-default:"2s"`
}

// SchedulerConfig holds cron specs (with seconds) for background jobs.
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"         env:"SCHEDULER_ENABLED"         env-default:"true"`
	RedeliverSpec  string `yaml:"redeliver_spec"  env:"SCHEDULER_REDELIVER_SPEC"  env-default:"0 */5 * * * *"`
	RedeliverBatch int    `yaml:"redeliver_batch" env:"SCHEDULER_REDELIVER_BATCH" env-default:"100"`
	ReminderSpec   string `yaml:"reminder_spec"   env:"SCHEDULER_REMINDER_SPEC"   env-default:"0 0 9 * * *"`
}

// EventsConfig configures the lifecycle event publisher. An empty AMQPURL disables it.
type EventsConfig struct {
	AMQPURL        string        `yaml:"amqp_url"        env:"EVENTS_AMQP_URL"`
	Exchange       string        `yaml:"exchange"        env:"EVENTS_EXCHANGE"        env-default:"mangalend.events"`
	QueueSize      int           `yaml:"queue_size"      env:"EVENTS_QUEUE_SIZE"      env-default:"256"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"EVENTS_PUBLISH_TIMEOUT" env-default:"10s"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path"    env:"METRICS_PATH"    env-default:"/metrics"`
}

// CleanupConfig holds retention settings for cmd/cleanup.
type CleanupConfig struct {
	NotificationRetentionDays int `yaml:"notification_retention_days" env:"CLEANUP_NOTIFICATION_RETENTION_DAYS" env-default:"90"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// EventsEnabled reports whether lifecycle events should be published.
func (c EventsConfig) EventsEnabled() bool {
	return c.AMQPURL != ""
}
