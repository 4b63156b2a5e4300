package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// allowed values of the custom validator tags
var enumTags = map[string][]string{
	"environment": {"development", "staging", "production"},
	"loglevel":    {"debug", "info", "warn", "error"},
	"backend":     {BackendFile, BackendPostgres, BackendS3, BackendMemory},
}

var testCredential = regexp.MustCompile(`(?i)test|demo|example|placeholder|your_`)

// CustomValidator wraps the validator with the odds tracker's enum tags
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a validator with every tag in enumTags registered
func NewValidator() *CustomValidator {
	v := validator.New()
	for tag, allowed := range enumTags {
		v.RegisterValidation(tag, oneOf(allowed))
	}
	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate runs the struct tags, then the rules that span sections
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return formatValidationErrors(fieldErrs)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return validateCrossField(cfg)
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}

// validateCrossField checks backend-specific settings and section interactions
func validateCrossField(cfg *Config) error {
	if err := validateStorage(cfg); err != nil {
		return err
	}

	// the fetch deadline is one second shorter than the poll interval
	if time.Duration(cfg.Betfair.TimeoutSeconds)*time.Second >= cfg.PollInterval() {
		return fmt.Errorf("betfair.timeout_seconds must be shorter than polling.interval_seconds")
	}
	if cfg.Server.Port == cfg.Server.HealthPort {
		return fmt.Errorf("server.port and server.health_port must differ")
	}

	kafka, redis := cfg.Notifications.Kafka, cfg.Notifications.Redis
	if kafka.Enabled && (len(kafka.Brokers) == 0 || kafka.Topic == "") {
		return fmt.Errorf("notifications.kafka requires brokers and a topic when enabled")
	}
	if redis.Enabled && (redis.Addr == "" || redis.Channel == "") {
		return fmt.Errorf("notifications.redis requires addr and channel when enabled")
	}
	return nil
}

func validateStorage(cfg *Config) error {
	st := cfg.Storage
	switch st.Backend {
	case BackendFile:
		if st.Directory == "" {
			return fmt.Errorf("storage.directory is required for the file backend")
		}
	case BackendMemory:
		if cfg.IsProduction() {
			return fmt.Errorf("the memory storage backend is not allowed in production")
		}
	case BackendS3:
		if st.Bucket == "" || st.Region == "" {
			return fmt.Errorf("storage.bucket and storage.region are required for the s3 backend")
		}
	case BackendPostgres:
		if st.Postgres.Host == "" || st.Postgres.Name == "" || st.Postgres.User == "" {
			return fmt.Errorf("storage.postgres host, name and user are required for the postgres backend")
		}
		if cfg.IsProduction() && st.Postgres.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
	}
	return nil
}

// formatValidationErrors lists every failed field on its own line
func formatValidationErrors(fieldErrs validator.ValidationErrors) error {
	var b strings.Builder
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		switch tag := fe.Tag(); tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, fe.Value())
		case "min", "max", "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' violates %s=%s\n", field, tag, fe.Param())
		default:
			if allowed, ok := enumTags[tag]; ok {
				fmt.Fprintf(&b, "- Field '%s' must be one of: %s\n", field, strings.Join(allowed, ", "))
				continue
			}
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}

// ValidateEnvironment rejects placeholder Betfair credentials in production
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() && testCredential.MatchString(cfg.Betfair.Username) {
		return fmt.Errorf("production environment should not use test Betfair credentials")
	}
	return nil
}
