package config

import (
	"fmt"
	"time"

	"github.com/Proton-105/starter-bot/pkg/redis"
)

// Profiles recognised through APP_ENV.
const (
	ProfileDevelopment = "development"
	ProfileProduction  = "production"
	ProfileTest        = "test"
)

// Bot polling modes.
const (
	BotModeLongPolling = "long_polling"
	BotModeWebhook     = "webhook"
)

// Config holds runtime configuration for the starter bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Server    ServerConfig    `mapstructure:"server"`
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     redis.Config    `mapstructure:"redis"`
	Events    EventsConfig    `mapstructure:"events"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// LoggerConfig controls the slog handler chain.
type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	// File enables rotation through lumberjack when set.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type SentryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DSN          string        `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Release      string        `mapstructure:"release"`
	SampleRate   float64       `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BotConfig describes the Telegram bot descriptor registered at startup.
type BotConfig struct {
	Token    string        `mapstructure:"token" validate:"required"`
	Username string        `mapstructure:"username" validate:"required"`
	Mode     string        `mapstructure:"mode" validate:"oneof=long_polling webhook"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// APIURL overrides the Bot API endpoint, mostly for local bot API servers.
	APIURL        string `mapstructure:"api_url"`
	WebhookListen string `mapstructure:"webhook_listen" validate:"required_if=Mode webhook"`
	WebhookURL    string `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
}

type DatabaseConfig struct {
	Host          string `mapstructure:"host" validate:"required"`
	Port          string `mapstructure:"port" validate:"required"`
	User          string `mapstructure:"user" validate:"required"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name" validate:"required"`
	SSLMode       string `mapstructure:"sslmode"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// EventsConfig sizes the asynchronous dispatch pool of the event bus.
type EventsConfig struct {
	Workers   int `mapstructure:"workers" validate:"gte=0"`
	QueueSize int `mapstructure:"queue_size" validate:"gte=0"`
}

// RateLimitConfig bounds how many commands one Telegram user may send per window.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Limit     int           `mapstructure:"limit" validate:"required_if=Enabled true,gte=0"`
	Window    time.Duration `mapstructure:"window" validate:"required_if=Enabled true"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// IsTest reports whether the test profile is active.
func (c *Config) IsTest() bool {
	return c.AppEnv == ProfileTest
}

// ConnectionString returns PostgreSQL DSN based on config values.
func (c DatabaseConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		sslMode,
	)
}
