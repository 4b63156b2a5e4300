// Package config provides configuration management for the Odds Tracker application.
package config

import (
	"fmt"
	"time"
)

// Storage backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	// BackendMemory keeps snapshots in process memory; nothing survives a restart
	BackendMemory = "memory"
)

// Config represents the complete application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app" validate:"required"`
	Betfair       BetfairConfig       `mapstructure:"betfair" validate:"required"`
	Polling       PollingConfig       `mapstructure:"polling" validate:"required"`
	Storage       StorageConfig       `mapstructure:"storage" validate:"required"`
	Analytics     AnalyticsConfig     `mapstructure:"analytics"`
	Server        ServerConfig        `mapstructure:"server" validate:"required"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// BetfairConfig represents Betfair API configuration
type BetfairConfig struct {
	APIURL         string   `mapstructure:"api_url" validate:"required,url"`
	LoginURL       string   `mapstructure:"login_url" validate:"required,url"`
	LogoutURL      string   `mapstructure:"logout_url" validate:"omitempty,url"`
	AppKey         string   `mapstructure:"app_key" validate:"required"`
	Username       string   `mapstructure:"username" validate:"required"`
	Password       string   `mapstructure:"password" validate:"required"`
	CertFile       string   `mapstructure:"cert_file" validate:"required"`
	KeyFile        string   `mapstructure:"key_file" validate:"required"`
	EventTypeID    string   `mapstructure:"event_type_id" validate:"required"`
	MarketTypes    []string `mapstructure:"market_types" validate:"required,min=1"`
	Countries      []string `mapstructure:"countries"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RateLimit      float64  `mapstructure:"rate_limit" validate:"required,gt=0"`
}

// PollingConfig controls the periodic odds capture
type PollingConfig struct {
	IntervalSeconds int  `mapstructure:"interval_seconds" validate:"required,gte=5"`
	RunOnStart      bool `mapstructure:"run_on_start"`
}

// StorageConfig selects and configures the snapshot ledger backend
type StorageConfig struct {
	Backend   string         `mapstructure:"backend" validate:"required,backend"`
	Directory string         `mapstructure:"directory"`
	Bucket    string         `mapstructure:"bucket"`
	Prefix    string         `mapstructure:"prefix"`
	Region    string         `mapstructure:"region"`
	Postgres  PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig represents database connection configuration
type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
}

// AnalyticsConfig controls how events are grouped for display
type AnalyticsConfig struct {
	TimeOffset      time.Duration `mapstructure:"time_offset"`
	EventTimeLayout string        `mapstructure:"event_time_layout"`
	HistoryCacheTTL time.Duration `mapstructure:"history_cache_ttl"`
}

// ServerConfig represents the read API and health listeners
type ServerConfig struct {
	Port       int `mapstructure:"port" validate:"required,min=1,max=65535"`
	HealthPort int `mapstructure:"health_port" validate:"required,min=1,max=65535"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NotificationsConfig configures odds change fan-out
type NotificationsConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
	Redis RedisConfig `mapstructure:"redis"`
}

// KafkaConfig represents the odds change topic
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// RedisConfig represents the odds change pub/sub channel
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// PollInterval returns the polling period
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSeconds) * time.Second
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *PostgresConfig) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}
