package internal

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Application base URL (sent as the federated sign-in request URI)
	BaseURL string

	// Backend auth API
	AuthAPIBaseURL string
	AuthAPITimeout time.Duration

	// Identity provider
	IDPProvider    string // "identitytoolkit" or "static"
	IDPAPIKey      string
	IDPBaseURL     string // Optional override of the Identity Toolkit endpoint
	GoogleClientID string // Enables the Google button when set

	// Session storage
	SessionStore string // "memory" or "postgres"
	DatabaseUrl  string

	// Password reset
	ResetSessionTTL time.Duration
	ResetCodePolicy string // "value" or "digits"

	// Background sweeper
	WorkerEnabled  bool
	WorkerInterval time.Duration

	// Rate limiting
	RateLimitEnabled bool

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

// IsSecure reports whether cookies should carry the Secure flag.
func (c *Config) IsSecure() bool {
	return c.Env != "development"
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		AuthAPIBaseURL: getEnv("AUTH_API_BASE_URL", "http://localhost:3000"),
		AuthAPITimeout: getEnvDuration("AUTH_API_TIMEOUT", 15*time.Second),

		// Identity provider defaults to the in-memory provider for development
		IDPProvider:    getEnv("IDP_PROVIDER", "static"),
		IDPAPIKey:      getEnv("IDP_API_KEY", ""),
		IDPBaseURL:     getEnv("IDP_BASE_URL", ""),
		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		SessionStore: getEnv("SESSION_STORE", "memory"),
		DatabaseUrl:  getEnv("DATABASE_URL", ""),

		ResetSessionTTL: getEnvDuration("RESET_SESSION_TTL", 15*time.Minute),
		ResetCodePolicy: getEnv("RESET_CODE_POLICY", "value"),

		WorkerEnabled:  getEnvBool("WORKER_ENABLED", true),
		WorkerInterval: getEnvDuration("WORKER_INTERVAL", time.Minute),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.AuthAPIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("AUTH_API_BASE_URL must be an absolute URL, got: %s", c.AuthAPIBaseURL)
	}
	if c.AuthAPITimeout <= 0 {
		return fmt.Errorf("AUTH_API_TIMEOUT must be positive")
	}

	// Validate identity provider configuration
	if c.IDPProvider == "identitytoolkit" {
		if c.IDPAPIKey == "" {
			return fmt.Errorf("IDP_API_KEY is required when IDP_PROVIDER is 'identitytoolkit'")
		}
	} else if c.IDPProvider != "static" {
		return fmt.Errorf("IDP_PROVIDER must be either 'identitytoolkit' or 'static', got: %s", c.IDPProvider)
	}

	// Validate session store configuration
	if c.SessionStore == "postgres" {
		if c.DatabaseUrl == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_STORE is 'postgres'")
		}
	} else if c.SessionStore != "memory" {
		return fmt.Errorf("SESSION_STORE must be either 'memory' or 'postgres', got: %s", c.SessionStore)
	}

	if c.ResetCodePolicy != "value" && c.ResetCodePolicy != "digits" {
		return fmt.Errorf("RESET_CODE_POLICY must be either 'value' or 'digits', got: %s", c.ResetCodePolicy)
	}
	if c.ResetSessionTTL <= 0 {
		return fmt.Errorf("RESET_SESSION_TTL must be positive")
	}
	if c.WorkerEnabled && c.WorkerInterval <= 0 {
		return fmt.Errorf("WORKER_INTERVAL must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
