package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	Env      string
	LogLevel string

	// APIBaseURL is the booking backend, e.g. "http://localhost:5000".
	APIBaseURL string
	// TokenPath is where the bearer token is persisted between runs.
	TokenPath string

	HTTPTimeout time.Duration

	// Stripe settings for confirming payment intents from the client.
	StripeAPIKey  string
	StripeBaseURL string
	StripeDryRun  bool

	// Stub backend settings (cmd/stubapi only).
	StubPort      string
	StubJWTSecret string
	// StubZIPPrefixes are the ZIP prefixes the stub accepts at signup.
	StubZIPPrefixes []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:5000"),
		TokenPath:     getEnv("TOKEN_PATH", defaultTokenPath()),
		HTTPTimeout:   getEnvAsDuration("HTTP_TIMEOUT", 15*time.Second),
		StripeAPIKey:  getEnv("STRIPE_API_KEY", ""),
		StripeBaseURL: getEnv("STRIPE_BASE_URL", ""),
		StripeDryRun:  getEnvAsBool("STRIPE_DRY_RUN", false),
		StubPort:      getEnv("STUB_PORT", "5000"),
		StubJWTSecret: getEnv("STUB_JWT_SECRET", "stub-dev-secret"),
		StubZIPPrefixes: []string{
			getEnv("STUB_ZIP_PREFIX", "30"),
		},
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cleanbook-token"
	}
	return filepath.Join(home, ".cleanbook", "token")
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
