// Package config provides configuration management for the Odds Tracker application.
package config

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	validConfigPath              = "testdata/valid_config.yaml"
	expansionConfigPath          = "testdata/expansion_config.yaml"
	nonexistentConfigPath        = "testdata/nonexistent_config.yaml"
	expectedNoErrorLoadingConfig = "expected no error loading config, got %v"
	expectedNoErrorMsg           = "expected no error, got %v"
	oddsTrackerName              = "odds-tracker"
	developmentEnv               = "development"
	testAppName                  = "test-app"
	expandedSecretValue          = "expanded_secret_value"
)

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.Name != oddsTrackerName {
		t.Errorf("expected app name '%s', got '%s'", oddsTrackerName, cfg.App.Name)
	}
	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("expected storage backend '%s', got '%s'", BackendFile, cfg.Storage.Backend)
	}
	if cfg.Analytics.TimeOffset != time.Hour {
		t.Errorf("expected time offset 1h, got %s", cfg.Analytics.TimeOffset)
	}
	if cfg.PollInterval() != 2*time.Minute {
		t.Errorf("expected poll interval 2m, got %s", cfg.PollInterval())
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	if _, err := Load(nonexistentConfigPath); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestLoadWithDefaultsMissingFile tests that defaults apply without a file
func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.Storage.Directory != "odds_snapshots" {
		t.Errorf("expected default directory, got '%s'", cfg.Storage.Directory)
	}
	if cfg.Polling.IntervalSeconds != 120 {
		t.Errorf("expected default interval 120, got %d", cfg.Polling.IntervalSeconds)
	}
	if cfg.Analytics.EventTimeLayout != "02-01-2006 15:04" {
		t.Errorf("unexpected default layout '%s'", cfg.Analytics.EventTimeLayout)
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("ODDS_TRACKER_APP_NAME", testAppName)

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.Name != testAppName {
		t.Errorf("expected app name '%s' from environment, got '%s'", testAppName, cfg.App.Name)
	}
}

// TestLoadConfigExpansion tests ${VAR} placeholders in the YAML file
func TestLoadConfigExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", expandedSecretValue)
	t.Setenv("TEST_BETFAIR_APP_KEY", "key-from-env")

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	if cfg.Storage.Postgres.Password != expandedSecretValue {
		t.Errorf("expected expanded password, got '%s'", cfg.Storage.Postgres.Password)
	}
	if cfg.Betfair.AppKey != "key-from-env" {
		t.Errorf("expected expanded app key, got '%s'", cfg.Betfair.AppKey)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

// TestValidateSuccess tests validation of a valid configuration
func TestValidateSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

// TestValidateRejections tests the custom and cross-field rules
func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid environment", func(c *Config) { c.App.Environment = "invalid" }},
		{"invalid log level", func(c *Config) { c.App.LogLevel = "verbose" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "tape" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = BackendS3 }},
		{"postgres without host", func(c *Config) { c.Storage.Backend = BackendPostgres }},
		{"memory backend in production", func(c *Config) { c.Storage.Backend = BackendMemory; c.App.Environment = "production" }},
		{"interval too short", func(c *Config) { c.Polling.IntervalSeconds = 1 }},
		{"timeout longer than interval", func(c *Config) { c.Betfair.TimeoutSeconds = 300 }},
		{"same ports", func(c *Config) { c.Server.HealthPort = c.Server.Port }},
		{"kafka without brokers", func(c *Config) { c.Notifications.Kafka.Enabled = true }},
		{"missing app key", func(c *Config) { c.Betfair.AppKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(validConfigPath)
			if err != nil {
				t.Fatalf(expectedNoErrorLoadingConfig, err)
			}
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// TestValidateEnvironmentTestCredentials tests production credential checks
func TestValidateEnvironmentTestCredentials(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	cfg.App.Environment = "production"
	cfg.Betfair.Username = "demo-user"
	if err := ValidateEnvironment(cfg); err == nil {
		t.Fatal("expected error for test credentials in production")
	}

	cfg.Betfair.Username = "real-punter"
	if err := ValidateEnvironment(cfg); err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
}

// TestOverlaySecrets tests applying Secrets Manager values
func TestOverlaySecrets(t *testing.T) {
	cfg := &Config{}
	secrets, err := parseSecretData(&secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"betfair_app_key":"k","betfair_password":"p","database_password":"db"}`),
	})
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	overlaySecretsOnConfig(cfg, secrets)

	if cfg.Betfair.AppKey != "k" || cfg.Betfair.Password != "p" {
		t.Errorf("betfair secrets not applied: %+v", cfg.Betfair)
	}
	if cfg.Storage.Postgres.Password != "db" {
		t.Errorf("database password not applied")
	}

	if _, err := parseSecretData(&secretsmanager.GetSecretValueOutput{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
