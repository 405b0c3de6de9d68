package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Port string `mapstructure:"PORT"`
	// DatabaseURL backs the browser session store; optional in dev mode (in-memory store is used)
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BackendBaseURL is the payments backend every dashboard call is forwarded to
	BackendBaseURL string        `mapstructure:"BACKEND_BASE_URL"`
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	// BrowserSecret signs the browser identity cookie
	BrowserSecret     string        `mapstructure:"BROWSER_SECRET"`
	CookieSecure      bool          `mapstructure:"COOKIE_SECURE"`
	OTPResendCooldown time.Duration `mapstructure:"OTP_RESEND_COOLDOWN"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	DevMode           bool          `mapstructure:"DEV_MODE"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BACKEND_BASE_URL", "")
	v.SetDefault("BACKEND_TIMEOUT", "30s")
	v.SetDefault("BROWSER_SECRET", "")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("OTP_RESEND_COOLDOWN", "60s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEV_MODE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	cfg.BackendBaseURL = strings.TrimRight(strings.TrimSpace(cfg.BackendBaseURL), "/")
	if cfg.BackendBaseURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL environment variable is required")
	}
	u, err := url.Parse(cfg.BackendBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL must be an absolute URL, got %q", cfg.BackendBaseURL)
	}

	if len(cfg.BrowserSecret) < 32 {
		return nil, fmt.Errorf("BROWSER_SECRET environment variable is required (at least 32 characters)")
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if cfg.DatabaseURL == "" && !cfg.DevMode {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required unless DEV_MODE=true")
	}
	if cfg.DatabaseURL != "" {
		if u, err := url.Parse(cfg.DatabaseURL); err == nil {
			host := u.Hostname()
			if host == "" {
				host = "localhost"
			}
			slog.Info("session database configured", "host", host, "db", strings.TrimPrefix(u.Path, "/"))
		}
	}

	if cfg.BackendTimeout <= 0 {
		return nil, fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if cfg.OTPResendCooldown < 0 {
		return nil, fmt.Errorf("OTP_RESEND_COOLDOWN must not be negative")
	}

	return &cfg, nil
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values fall back to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
