package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/liushooter/jito-example/service/jito"
)

const (
	// DefaultRPCURL is used when JITO_RPC_URL is unset. It is a placeholder and
	// will not resolve; real runs must point at a Jito RPC endpoint.
	DefaultRPCURL = "https://your-jito-jito-rpc.example"

	// DefaultTransferLamports is the amount moved by the demo transfer.
	DefaultTransferLamports = jito.DefaultTransferLamports
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Jito RPC configuration
	RPCURL         string
	AuthToken      string
	RequestTimeout time.Duration // zero means no client-side timeout

	// Transfer configuration
	TransferLamports uint64
	SkipPreflight    bool

	LogLevel string
}

// ConfigurationError reports every missing or invalid setting found while
// loading or validating a Config.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration validation failed: %s", strings.Join(e.Problems, "; "))
}

// Load reads configuration from environment variables and validates all required fields.
// Returns a *ConfigurationError if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv reads configuration from environment variables without checking
// required fields, so callers can layer overrides on top before Validate.
// Only values that fail to parse are reported.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	var problems []string

	cfg.RPCURL = getEnvOrDefault("JITO_RPC_URL", DefaultRPCURL)
	cfg.AuthToken = os.Getenv("JITO_AUTH_TOKEN")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	timeout, err := parseDuration("JITO_REQUEST_TIMEOUT", "0s")
	if err != nil {
		problems = append(problems, err.Error())
	} else {
		cfg.RequestTimeout = timeout
	}

	lamports, err := parseUint("JITO_TRANSFER_LAMPORTS", DefaultTransferLamports)
	if err != nil {
		problems = append(problems, err.Error())
	} else {
		cfg.TransferLamports = lamports
	}

	skip, err := parseBool("JITO_SKIP_PREFLIGHT", false)
	if err != nil {
		problems = append(problems, err.Error())
	} else {
		cfg.SkipPreflight = skip
	}

	if len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
// Flags can override the environment, so this runs again after flag parsing.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.RPCURL) == "" {
		problems = append(problems, "JITO_RPC_URL is required")
	}

	if strings.TrimSpace(c.AuthToken) == "" {
		problems = append(problems, "JITO_AUTH_TOKEN is required")
	}

	if c.TransferLamports == 0 {
		problems = append(problems, "JITO_TRANSFER_LAMPORTS must be greater than zero")
	}

	if c.RequestTimeout < 0 {
		problems = append(problems, "JITO_REQUEST_TIMEOUT cannot be negative")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseUint parses an unsigned integer from an environment variable or uses a default.
func parseUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid unsigned integer %q: %w", key, value, err)
	}
	return result, nil
}

func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
