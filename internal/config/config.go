package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string

	// Credential issuance
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// WhitelistDefaultDeny flips the decision for services that have no
	// whitelist rules. The shipped default is allow, matching the historic
	// behaviour; operators should review whether that posture fits them.
	WhitelistDefaultDeny bool

	// AlertURL is an optional shoutrrr URL notified on SYSTEM_ERROR audit events.
	AlertURL string

	// Fixed-window rate limits
	APIRateMax        int
	APIRateWindow     time.Duration
	LoginRateMax      int
	LoginRateWindow   time.Duration
	RuleCreateRateMax int
	RuleCreateWindow  time.Duration
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:          getEnv("ARGUS_ENV", "development"),
		HTTPPort:             getEnv("ARGUS_HTTP_PORT", "8080"),
		DatabasePath:         getEnv("ARGUS_DB_PATH", filepath.Join("data", "argus.db")),
		JWTSecret:            getEnv("ARGUS_JWT_SECRET", ""),
		AccessTokenTTL:       getDuration("ARGUS_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:      getDuration("ARGUS_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		WhitelistDefaultDeny: getBool("ARGUS_WHITELIST_DEFAULT_DENY", false),
		AlertURL:             getEnv("ARGUS_ALERT_URL", ""),
		APIRateMax:           getInt("ARGUS_RATE_API_MAX", 100),
		APIRateWindow:        getDuration("ARGUS_RATE_API_WINDOW", 15*time.Minute),
		LoginRateMax:         getInt("ARGUS_RATE_LOGIN_MAX", 5),
		LoginRateWindow:      getDuration("ARGUS_RATE_LOGIN_WINDOW", 5*time.Minute),
		RuleCreateRateMax:    getInt("ARGUS_RATE_RULE_CREATE_MAX", 30),
		RuleCreateWindow:     getDuration("ARGUS_RATE_RULE_CREATE_WINDOW", time.Hour),
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" || cfg.Environment == "prod" {
			return Config{}, fmt.Errorf("ARGUS_JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "argus-dev-secret"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}

	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}

	return fallback
}
