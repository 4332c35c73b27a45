package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration, used by the shared progress store
	Redis RedisConfig

	// Bulk generation configuration
	Bulk BulkConfig

	// Content generator configuration
	Generator GeneratorConfig

	// Object storage configuration
	Storage StorageConfig

	// Admin session and cron configuration
	Auth AuthConfig

	// Engagement boost configuration
	Booster BoosterConfig

	// In-process scheduler configuration
	Scheduler SchedulerConfig

	// Logging configuration
	Log LogConfig

	MigrationsPath string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64 // JSON payload limit in bytes
	AllowedOrigins  []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BulkConfig holds bulk generation job settings
type BulkConfig struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	ScheduleInterval  time.Duration // gap between consecutive scheduled articles
	MaxUploadSize     int64         // multipart limit in bytes
	ProgressBackend   string        // "memory" or "redis"
	ProgressGrace     time.Duration // how long terminal snapshots stay readable
	StreamInterval    time.Duration
}

// GeneratorConfig holds settings for the OpenAI-compatible generation endpoint
type GeneratorConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
	Timeout           time.Duration
}

// StorageConfig holds local object storage settings
type StorageConfig struct {
	Dir       string
	PublicURL string
}

// AuthConfig holds admin authentication settings
type AuthConfig struct {
	AdminEmail    string
	AdminPassword string
	JWTSecret     string
	SessionTTL    time.Duration
	CookieSecure  bool
	CronSecret    string
}

// BoosterConfig holds engagement boost settings
type BoosterConfig struct {
	LikeProbability    float64
	CommentProbability float64
	ViewsMin           int
	ViewsMax           int
	Cooldown           time.Duration
	OnRequest          bool // trigger an opportunistic boost from public traffic
}

// SchedulerConfig holds the in-process ticker settings
type SchedulerConfig struct {
	Enabled         bool
	PublishInterval time.Duration
	BoostInterval   time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"server.port":             "PORT",
	"server.read_timeout":     "SERVER_READ_TIMEOUT",
	"server.write_timeout":    "SERVER_WRITE_TIMEOUT",
	"server.shutdown_timeout": "SERVER_SHUTDOWN_TIMEOUT",
	"server.max_body_size":    "MAX_BODY_SIZE",
	"server.allowed_origins":  "ALLOWED_ORIGINS",

	"database.host":           "DB_HOST",
	"database.port":           "DB_PORT",
	"database.user":           "DB_USER",
	"database.password":       "DB_PASSWORD",
	"database.name":           "DB_NAME",
	"database.sslmode":        "DB_SSLMODE",
	"database.max_open_conns": "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns": "DB_MAX_IDLE_CONNS",
	"database.max_lifetime":   "DB_MAX_LIFETIME",

	"redis.addr":     "REDIS_ADDR",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"bulk.max_concurrent_jobs": "BULK_MAX_CONCURRENT_JOBS",
	"bulk.job_timeout":         "BULK_JOB_TIMEOUT",
	"bulk.schedule_interval":   "BULK_SCHEDULE_INTERVAL",
	"bulk.max_upload_size":     "MAX_UPLOAD_SIZE",
	"bulk.progress_backend":    "PROGRESS_BACKEND",
	"bulk.progress_grace":      "PROGRESS_GRACE",
	"bulk.stream_interval":     "PROGRESS_STREAM_INTERVAL",

	"generator.api_key":             "GENERATOR_API_KEY",
	"generator.base_url":            "GENERATOR_BASE_URL",
	"generator.model":               "GENERATOR_MODEL",
	"generator.requests_per_minute": "GENERATOR_REQUESTS_PER_MINUTE",
	"generator.timeout":             "GENERATOR_TIMEOUT",

	"storage.dir":        "STORAGE_DIR",
	"storage.public_url": "STORAGE_PUBLIC_URL",

	"auth.admin_email":    "ADMIN_EMAIL",
	"auth.admin_password": "ADMIN_PASSWORD",
	"auth.jwt_secret":     "JWT_SECRET",
	"auth.session_ttl":    "SESSION_TTL",
	"auth.cookie_secure":  "COOKIE_SECURE",
	"auth.cron_secret":    "CRON_SECRET",

	"booster.like_probability":    "BOOST_LIKE_PROBABILITY",
	"booster.comment_probability": "BOOST_COMMENT_PROBABILITY",
	"booster.views_min":           "BOOST_VIEWS_MIN",
	"booster.views_max":           "BOOST_VIEWS_MAX",
	"booster.cooldown":            "BOOST_COOLDOWN",
	"booster.on_request":          "BOOST_ON_REQUEST",

	"scheduler.enabled":          "SCHEDULER_ENABLED",
	"scheduler.publish_interval": "SCHEDULER_PUBLISH_INTERVAL",
	"scheduler.boost_interval":   "SCHEDULER_BOOST_INTERVAL",

	"log.level":  "LOG_LEVEL",
	"log.format": "LOG_FORMAT",

	"migrations_path": "MIGRATIONS_PATH",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 300*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", 10*1024*1024)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "blog_cms")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("bulk.max_concurrent_jobs", 4)
	v.SetDefault("bulk.job_timeout", 5*time.Minute)
	v.SetDefault("bulk.schedule_interval", time.Hour)
	v.SetDefault("bulk.max_upload_size", 50*1024*1024)
	v.SetDefault("bulk.progress_backend", "memory")
	v.SetDefault("bulk.progress_grace", 5*time.Second)
	v.SetDefault("bulk.stream_interval", 500*time.Millisecond)

	v.SetDefault("generator.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("generator.model", "gemini-2.0-flash")
	v.SetDefault("generator.requests_per_minute", 30)
	v.SetDefault("generator.timeout", 60*time.Second)

	v.SetDefault("storage.dir", "./data/article-images")
	v.SetDefault("storage.public_url", "/uploads")

	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("booster.like_probability", 0.8)
	v.SetDefault("booster.comment_probability", 0.8)
	v.SetDefault("booster.views_min", 10)
	v.SetDefault("booster.views_max", 20)
	v.SetDefault("booster.cooldown", time.Hour)
	v.SetDefault("booster.on_request", true)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.publish_interval", time.Minute)
	v.SetDefault("scheduler.boost_interval", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("migrations_path", "./migrations")
}

// Load reads configuration from defaults, an optional config file named by
// CONFIG_FILE, and environment variables (highest precedence)
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			MaxBodySize:     v.GetInt64("server.max_body_size"),
			AllowedOrigins:  splitList(v.GetStringSlice("server.allowed_origins")),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("database.host"),
			Port:         v.GetString("database.port"),
			User:         v.GetString("database.user"),
			Password:     v.GetString("database.password"),
			Name:         v.GetString("database.name"),
			SSLMode:      v.GetString("database.sslmode"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			MaxLifetime:  v.GetDuration("database.max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Bulk: BulkConfig{
			MaxConcurrentJobs: v.GetInt("bulk.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("bulk.job_timeout"),
			ScheduleInterval:  v.GetDuration("bulk.schedule_interval"),
			MaxUploadSize:     v.GetInt64("bulk.max_upload_size"),
			ProgressBackend:   strings.ToLower(v.GetString("bulk.progress_backend")),
			ProgressGrace:     v.GetDuration("bulk.progress_grace"),
			StreamInterval:    v.GetDuration("bulk.stream_interval"),
		},
		Generator: GeneratorConfig{
			APIKey:            v.GetString("generator.api_key"),
			BaseURL:           v.GetString("generator.base_url"),
			Model:             v.GetString("generator.model"),
			RequestsPerMinute: v.GetInt("generator.requests_per_minute"),
			Timeout:           v.GetDuration("generator.timeout"),
		},
		Storage: StorageConfig{
			Dir:       v.GetString("storage.dir"),
			PublicURL: strings.TrimRight(v.GetString("storage.public_url"), "/"),
		},
		Auth: AuthConfig{
			AdminEmail:    v.GetString("auth.admin_email"),
			AdminPassword: v.GetString("auth.admin_password"),
			JWTSecret:     v.GetString("auth.jwt_secret"),
			SessionTTL:    v.GetDuration("auth.session_ttl"),
			CookieSecure:  v.GetBool("auth.cookie_secure"),
			CronSecret:    v.GetString("auth.cron_secret"),
		},
		Booster: BoosterConfig{
			LikeProbability:    v.GetFloat64("booster.like_probability"),
			CommentProbability: v.GetFloat64("booster.comment_probability"),
			ViewsMin:           v.GetInt("booster.views_min"),
			ViewsMax:           v.GetInt("booster.views_max"),
			Cooldown:           v.GetDuration("booster.cooldown"),
			OnRequest:          v.GetBool("booster.on_request"),
		},
		Scheduler: SchedulerConfig{
			Enabled:         v.GetBool("scheduler.enabled"),
			PublishInterval: v.GetDuration("scheduler.publish_interval"),
			BoostInterval:   v.GetDuration("scheduler.boost_interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		MigrationsPath: v.GetString("migrations_path"),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Bulk.MaxConcurrentJobs < 1 {
		return fmt.Errorf("BULK_MAX_CONCURRENT_JOBS must be at least 1")
	}
	if c.Bulk.JobTimeout <= 0 {
		return fmt.Errorf("BULK_JOB_TIMEOUT must be positive")
	}
	if c.Bulk.ProgressBackend != "memory" && c.Bulk.ProgressBackend != "redis" {
		return fmt.Errorf("PROGRESS_BACKEND must be one of: memory, redis")
	}
	if c.Bulk.ProgressBackend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when PROGRESS_BACKEND is redis")
	}
	if !isProbability(c.Booster.LikeProbability) || !isProbability(c.Booster.CommentProbability) {
		return fmt.Errorf("boost probabilities must be between 0 and 1")
	}
	if c.Booster.ViewsMin < 0 || c.Booster.ViewsMax < c.Booster.ViewsMin {
		return fmt.Errorf("BOOST_VIEWS_MIN must be non-negative and not exceed BOOST_VIEWS_MAX")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}

// splitList accepts both YAML lists and comma separated env values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
