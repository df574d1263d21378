// Package config loads application configuration from environment variables.
// All variables use the TUTOR_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Telegram   TelegramConfig
	WebSocket  WebSocketConfig
	Log        LogConfig
	Curriculum CurriculumConfig
	Settings   SettingsConfig
	Session    SessionConfig
	Auth       AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL disables
// the event sink.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL keeps settings
// on the local filesystem.
type CacheConfig struct {
	URL string
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	BotToken string
}

// WebSocketConfig controls the /ws chat endpoint.
type WebSocketConfig struct {
	Enabled bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// CurriculumConfig selects where catalogs are read from.
type CurriculumConfig struct {
	Path            string // empty uses the embedded catalogs
	DefaultTutorial string
}

// SettingsConfig locates the persisted learner settings.
type SettingsConfig struct {
	Path    string
	Profile string
}

// SessionConfig bounds how long an inactive conversation is kept in memory.
type SessionConfig struct {
	IdleTimeout time.Duration // zero keeps sessions until the learner exits
}

// AuthConfig holds authentication settings. An empty ExportToken disables
// the learner export endpoints.
type AuthConfig struct {
	ExportToken string
}

// Load reads configuration from environment variables with TUTOR_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TUTOR_SERVER_PORT", 8080),
			Host: envStr("TUTOR_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("TUTOR_DATABASE_URL", ""),
			MaxConns: envInt("TUTOR_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("TUTOR_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("TUTOR_CACHE_URL", ""),
		},
		Telegram: TelegramConfig{
			BotToken: envStr("TUTOR_TELEGRAM_BOT_TOKEN", ""),
		},
		WebSocket: WebSocketConfig{
			Enabled: envBool("TUTOR_WEBSOCKET_ENABLED", true),
		},
		Log: LogConfig{
			Level:  envStr("TUTOR_LOG_LEVEL", "info"),
			Format: envStr("TUTOR_LOG_FORMAT", "json"),
		},
		Curriculum: CurriculumConfig{
			Path:            envStr("TUTOR_CURRICULUM_PATH", ""),
			DefaultTutorial: envStr("TUTOR_DEFAULT_TUTORIAL", "python"),
		},
		Settings: SettingsConfig{
			Path:    envStr("TUTOR_SETTINGS_PATH", "settings.json"),
			Profile: envStr("TUTOR_SETTINGS_PROFILE", "default"),
		},
		Session: SessionConfig{
			IdleTimeout: time.Duration(envInt("TUTOR_SESSION_IDLE_TIMEOUT", 30)) * time.Minute,
		},
		Auth: AuthConfig{
			ExportToken: envStr("TUTOR_EXPORT_TOKEN", ""),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is usable by the server.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("TUTOR_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if !c.HasChannel() {
		return fmt.Errorf("at least one chat channel must be enabled (TUTOR_TELEGRAM_BOT_TOKEN or TUTOR_WEBSOCKET_ENABLED)")
	}

	if c.Database.URL != "" && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("TUTOR_DATABASE_MIN_CONNS (%d) exceeds TUTOR_DATABASE_MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("TUTOR_SESSION_IDLE_TIMEOUT must not be negative, got %s", c.Session.IdleTimeout)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("TUTOR_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// HasChannel returns true if at least one chat channel is configured.
func (c *Config) HasChannel() bool {
	return c.Telegram.BotToken != "" || c.WebSocket.Enabled
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
