// internal/pkg/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Application
	App AppConfig

	// Catalog service
	Catalog CatalogConfig

	// Session persistence
	Session SessionConfig

	// Image attachments
	Images ImageConfig

	// AWS
	AWS AWSConfig

	// Dashboard behaviour
	UI UIConfig

	// Secrets
	Secrets SecretsConfig
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
	LogLevel    string
	LogFormat   string // json, text
	LogOutput   string // stderr, stdout, discard, file:<path>
	Profile     string
}

// CatalogConfig holds the remote catalog service settings
type CatalogConfig struct {
	BaseURL   string `required:"true"`
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables
	Burst     int

	// MaxResponseBytes caps a catalog response body, 0 disables
	MaxResponseBytes int64
}

// SessionConfig holds the durable session store settings
type SessionConfig struct {
	RedisAddr     string `required:"true"`
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	TTL           time.Duration
}

// ImageConfig selects where image attachments go
type ImageConfig struct {
	Backend  string // inline, s3
	S3Prefix string
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string // For MinIO in development
	UsePathStyle    bool   // For MinIO compatibility
}

// UIConfig holds dashboard defaults
type UIConfig struct {
	NotificationTTL time.Duration
	RestockDefault  int
	DefaultSort     string
}

// SecretsConfig tells where credentials come from
type SecretsConfig struct {
	Provider string // env, aws
	Name     string // AWS Secrets Manager secret id
}

const (
	ImageBackendInline = "inline"
	ImageBackendS3     = "s3"
)

// Load loads configuration from environment variables
func Load(logger *slog.Logger) (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Load .env file in development
	if env == "development" || env == "local" {
		if err := godotenv.Load(); err != nil {
			logger.Debug("no .env file found, using environment variables",
				slog.String("error", err.Error()))
		} else {
			logger.Info(".env file loaded successfully")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, env)

	cfg := fromViper(v, env)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func fromViper(v *viper.Viper, env string) *Config {
	return &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Environment: env,
			Version:     v.GetString("APP_VERSION"),
			LogLevel:    v.GetString("LOG_LEVEL"),
			LogFormat:   v.GetString("LOG_FORMAT"),
			LogOutput:   v.GetString("LOG_OUTPUT"),
			Profile:     v.GetString("DASHBOARD_PROFILE"),
		},
		Catalog: CatalogConfig{
			BaseURL:   strings.TrimRight(v.GetString("CATALOG_BASE_URL"), "/"),
			Timeout:   v.GetDuration("CATALOG_TIMEOUT"),
			RateLimit: v.GetFloat64("CATALOG_RATE_LIMIT"),
			Burst:     v.GetInt("CATALOG_BURST"),

			MaxResponseBytes: v.GetInt64("CATALOG_MAX_RESPONSE_BYTES"),
		},
		Session: SessionConfig{
			RedisAddr:     v.GetString("SESSION_REDIS_ADDR"),
			RedisPassword: v.GetString("SESSION_REDIS_PASSWORD"),
			RedisDB:       v.GetInt("SESSION_REDIS_DB"),
			KeyPrefix:     v.GetString("SESSION_KEY_PREFIX"),
			TTL:           v.GetDuration("SESSION_TTL"),
		},
		Images: ImageConfig{
			Backend:  strings.ToLower(v.GetString("IMAGE_BACKEND")),
			S3Prefix: v.GetString("IMAGE_S3_PREFIX"),
		},
		AWS: AWSConfig{
			Region:          v.GetString("AWS_REGION"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			S3Bucket:        v.GetString("AWS_S3_BUCKET"),
			S3Endpoint:      v.GetString("AWS_S3_ENDPOINT"),
			UsePathStyle:    v.GetBool("AWS_S3_PATH_STYLE"),
		},
		UI: UIConfig{
			NotificationTTL: v.GetDuration("NOTIFICATION_TTL"),
			RestockDefault:  v.GetInt("RESTOCK_DEFAULT_QUANTITY"),
			DefaultSort:     v.GetString("DEFAULT_SORT"),
		},
		Secrets: SecretsConfig{
			Provider: strings.ToLower(v.GetString("SECRETS_PROVIDER")),
			Name:     v.GetString("SECRETS_NAME"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validators := []Validator{&BasicValidator{}}
	if c.IsProduction() {
		validators = append(validators, &ProductionValidator{})
	}
	for _, v := range validators {
		if err := v.Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

// Helper functions

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("APP_NAME", "sweetshop-dashboard")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stderr")
	v.SetDefault("DASHBOARD_PROFILE", "default")

	v.SetDefault("CATALOG_BASE_URL", "http://localhost:8000")
	v.SetDefault("CATALOG_TIMEOUT", 10*time.Second)
	v.SetDefault("CATALOG_RATE_LIMIT", 10.0)
	v.SetDefault("CATALOG_BURST", 5)
	v.SetDefault("CATALOG_MAX_RESPONSE_BYTES", 0)

	v.SetDefault("SESSION_REDIS_ADDR", "localhost:6379")
	v.SetDefault("SESSION_REDIS_DB", 0)
	v.SetDefault("SESSION_KEY_PREFIX", "sweetshop")
	v.SetDefault("SESSION_TTL", 24*time.Hour)

	v.SetDefault("IMAGE_BACKEND", ImageBackendInline)
	v.SetDefault("IMAGE_S3_PREFIX", "sweets")

	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_S3_BUCKET", "sweetshop-images")
	v.SetDefault("AWS_S3_PATH_STYLE", env == "development")

	v.SetDefault("NOTIFICATION_TTL", 4*time.Second)
	v.SetDefault("RESTOCK_DEFAULT_QUANTITY", 5)
	v.SetDefault("DEFAULT_SORT", "name-asc")

	v.SetDefault("SECRETS_PROVIDER", "env")
}
