// Package config provides configuration management for the Odds Tracker application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "ODDS_TRACKER"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// ODDS_TRACKER_STORAGE_BACKEND overrides storage.backend
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "odds-tracker")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("betfair.api_url", "https://api.betfair.com/exchange/betting/json-rpc/v1")
	v.SetDefault("betfair.login_url", "https://identitysso-cert.betfair.com/api/certlogin")
	v.SetDefault("betfair.logout_url", "https://identitysso.betfair.com/api/logout")
	v.SetDefault("betfair.app_key", "")
	v.SetDefault("betfair.username", "")
	v.SetDefault("betfair.password", "")
	v.SetDefault("betfair.cert_file", "")
	v.SetDefault("betfair.key_file", "")
	v.SetDefault("betfair.event_type_id", "7")
	v.SetDefault("betfair.market_types", []string{"WIN"})
	v.SetDefault("betfair.countries", []string{"GB", "IE"})
	v.SetDefault("betfair.timeout_seconds", 30)
	v.SetDefault("betfair.rate_limit", 5.0)

	v.SetDefault("polling.interval_seconds", 120)
	v.SetDefault("polling.run_on_start", true)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.directory", "odds_snapshots")
	v.SetDefault("storage.prefix", "odds_snapshots/")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.postgres.host", "")
	v.SetDefault("storage.postgres.name", "")
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.ssl_mode", "disable")
	v.SetDefault("storage.postgres.max_connections", 5)

	v.SetDefault("analytics.time_offset", "1h")
	v.SetDefault("analytics.event_time_layout", "02-01-2006 15:04")
	v.SetDefault("analytics.history_cache_ttl", "10m")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.health_port", 8081)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("notifications.kafka.enabled", false)
	v.SetDefault("notifications.kafka.brokers", []string{})
	v.SetDefault("notifications.kafka.topic", "odds-changes")
	v.SetDefault("notifications.redis.enabled", false)
	v.SetDefault("notifications.redis.addr", "localhost:6379")
	v.SetDefault("notifications.redis.password", "")
	v.SetDefault("notifications.redis.db", 0)
	v.SetDefault("notifications.redis.channel", "odds-changes")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}
