package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	StorageBackend         string        `env:"STORAGE_BACKEND" envDefault:"postgres" validate:"oneof=postgres memory"`
	DatabaseURL            string        `env:"DATABASE_URL" validate:"required_if=StorageBackend postgres"`
	DBMaxOpenConns         int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10" validate:"min=1"`
	DBMaxIdleConns         int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5" validate:"min=0"`
	DBConnMaxLifetime      time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBConnMaxIdleTime      time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"10m"`
	RunMigrationsOnStartup bool          `env:"RUN_MIGRATIONS_ON_STARTUP" envDefault:"false"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET" validate:"required"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET" validate:"required,nefield=AccessTokenSecret"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"240h"`

	MediaBackend    string `env:"MEDIA_BACKEND" envDefault:"cloudinary" validate:"oneof=cloudinary s3"`
	CloudinaryURL   string `env:"CLOUDINARY_URL" validate:"required_if=MediaBackend cloudinary"`
	S3Bucket        string `env:"S3_BUCKET" validate:"required_if=MediaBackend s3"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT" validate:"omitempty,url"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL" validate:"required_if=MediaBackend s3"`
	UploadDir       string `env:"UPLOAD_DIR" envDefault:"./public/temp" validate:"required"`

	SentryDSN string `env:"SENTRY_DSN"`
	Release   string `env:"RELEASE"`

	TrustProxyHeaders    bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	LoginRateLimitMax    int           `env:"LOGIN_RATE_LIMIT_MAX" envDefault:"10" validate:"min=1"`
	LoginRateLimitWindow time.Duration `env:"LOGIN_RATE_LIMIT_WINDOW" envDefault:"1m"`
	CronSecret           string        `env:"CRON_SECRET"`
	AuthCleanupBatchSize int           `env:"AUTH_CLEANUP_BATCH_SIZE" envDefault:"500" validate:"min=1"`
}

func (c Config) Addr() string {
	return ":" + c.Port
}

type Option func(*options)

type options struct {
	dotEnvFiles []string
	loadDotEnv  bool
	environment map[string]string
}

// WithDotEnv loads .env files (or ./.env) into the process environment
// first. Missing files are ignored.
func WithDotEnv(files ...string) Option {
	return func(o *options) {
		o.loadDotEnv = true
		o.dotEnvFiles = files
	}
}

// WithEnvironment reads variables from m instead of the process
// environment.
func WithEnvironment(m map[string]string) Option {
	return func(o *options) {
		o.environment = m
	}
}

func Load(opts ...Option) (Config, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.loadDotEnv {
		_ = godotenv.Load(o.dotEnvFiles...)
	}

	var cfg Config
	if err := env.Parse(&cfg, env.Options{Environment: o.environment}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
