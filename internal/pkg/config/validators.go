// internal/pkg/config/validators.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/ammerola/sweetshop/internal/core/domain"
)

// ErrMissingRequiredConfig is returned when a required value is absent.
var ErrMissingRequiredConfig = errors.New("missing required configuration")

// Validator checks one aspect of a configuration.
type Validator interface {
	Validate(cfg *Config) error
}

// BasicValidator performs basic configuration validation
type BasicValidator struct{}

// Validate performs basic validation
func (v *BasicValidator) Validate(cfg *Config) error {
	if err := validateRequiredFields(cfg); err != nil {
		return err
	}

	u, err := url.Parse(cfg.Catalog.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("catalog base URL %q must be an absolute http(s) URL", cfg.Catalog.BaseURL)
	}

	if cfg.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog timeout must be positive")
	}
	if cfg.Catalog.RateLimit < 0 {
		return fmt.Errorf("catalog rate limit cannot be negative")
	}
	if cfg.Catalog.RateLimit > 0 && cfg.Catalog.Burst < 1 {
		return fmt.Errorf("catalog burst must be at least 1 when rate limiting")
	}
	if cfg.Catalog.MaxResponseBytes < 0 {
		return fmt.Errorf("catalog response cap cannot be negative")
	}

	if cfg.Session.TTL < 0 {
		return fmt.Errorf("session TTL cannot be negative")
	}

	switch cfg.Images.Backend {
	case ImageBackendInline:
	case ImageBackendS3:
		if cfg.AWS.S3Bucket == "" {
			return fmt.Errorf("%w: AWS_S3_BUCKET is required for the s3 image backend", ErrMissingRequiredConfig)
		}
	default:
		return fmt.Errorf("unknown image backend %q", cfg.Images.Backend)
	}

	if cfg.UI.NotificationTTL <= 0 {
		return fmt.Errorf("notification TTL must be positive")
	}
	if cfg.UI.RestockDefault < 1 {
		return fmt.Errorf("restock default quantity must be at least 1")
	}
	if _, err := domain.ParseSortKey(cfg.UI.DefaultSort); err != nil {
		return fmt.Errorf("invalid default sort: %w", err)
	}

	switch cfg.Secrets.Provider {
	case "env":
	case "aws":
		if cfg.Secrets.Name == "" {
			return fmt.Errorf("%w: SECRETS_NAME is required for the aws secrets provider", ErrMissingRequiredConfig)
		}
	default:
		return fmt.Errorf("unknown secrets provider %q", cfg.Secrets.Provider)
	}

	return nil
}

// ProductionValidator performs strict validation for production environments
type ProductionValidator struct{}

// Validate performs production-specific validation
func (v *ProductionValidator) Validate(cfg *Config) error {
	// Bearer tokens must not travel in clear text.
	if !strings.HasPrefix(cfg.Catalog.BaseURL, "https://") {
		return fmt.Errorf("catalog base URL must use https in production")
	}

	if strings.Contains(cfg.Session.RedisPassword, "MISSING_") {
		return fmt.Errorf("%w: session redis password", ErrMissingRequiredConfig)
	}

	if cfg.App.LogLevel == "debug" {
		return fmt.Errorf("debug logging must not be enabled in production")
	}

	return nil
}

// validateRequiredFields uses reflection to check required struct tags
func validateRequiredFields(cfg interface{}) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	return validateStruct(v, "")
}

func validateStruct(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		fieldName := fieldType.Name

		if prefix != "" {
			fieldName = prefix + "." + fieldName
		}

		if required := fieldType.Tag.Get("required"); required == "true" {
			if isZeroValue(field) {
				return fmt.Errorf("%w: %s", ErrMissingRequiredConfig, fieldName)
			}
		}

		if field.Kind() == reflect.Struct {
			if err := validateStruct(field, fieldName); err != nil {
				return err
			}
		}
	}

	return nil
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == "" || strings.HasPrefix(v.String(), "MISSING_")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
