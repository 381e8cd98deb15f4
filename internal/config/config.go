package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSourceURL is the published contracts workbook.
const DefaultSourceURL = "https://raw.githubusercontent.com/TapatioSpice/PulteContracts/main/PulteContracts1.xlsx"

type Config struct {
	// HTTP Server
	Port           string
	TrustedProxies []string

	// Source selection: workbook, sheets or memory
	SourceBackend string
	SourceURL     string
	SourceFile    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string

	// Gate
	Passphrase             string
	SessionTTL             time.Duration
	LoginAttemptsPerMinute int

	// Dataset cache
	DatasetTTL         time.Duration
	FetchTimeout       time.Duration
	CacheSweepSchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		SourceBackend: strings.ToLower(getEnv("SOURCE_BACKEND", "workbook")),
		SourceURL:     getEnv("SOURCE_URL", DefaultSourceURL),
		SourceFile:    getEnv("SOURCE_FILE", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Contracts"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", "token.json"),

		Passphrase:             getEnv("CONTRACTS_PASSPHRASE", "landscape11"),
		SessionTTL:             getEnvDuration("SESSION_TTL", 12*time.Hour),
		LoginAttemptsPerMinute: getEnvInt("LOGIN_ATTEMPTS_PER_MINUTE", 10),

		DatasetTTL:         getEnvDuration("DATASET_TTL", 10*time.Minute),
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		CacheSweepSchedule: getEnv("CACHE_SWEEP_SCHEDULE", "@every 5m"),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	validBackends := []string{"workbook", "sheets", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.SourceBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid source backend '%s': must be one of %v", c.SourceBackend, validBackends))
	}

	switch c.SourceBackend {
	case "workbook":
		if strings.TrimSpace(c.SourceURL) == "" {
			errors = append(errors, "SOURCE_URL is required when using workbook backend")
		} else if u, err := url.Parse(c.SourceURL); err == nil && u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
			// Scheme-less values are local paths.
			errors = append(errors, fmt.Sprintf("invalid SOURCE_URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasOAuthClient := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
		if !hasServiceAccount && !hasOAuthClient {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or an OAuth client (GOOGLE_OAUTH_CLIENT_JSON, GOOGLE_OAUTH_CLIENT_FILE) must be provided for sheets backend")
		}
		if !hasServiceAccount && hasOAuthClient {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("OAuth token file does not exist: %s (run oauth-init)", c.GoogleOAuthTokenFile))
			}
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	case "memory":
		if c.SourceFile != "" {
			if _, err := os.Stat(c.SourceFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("source file does not exist: %s", c.SourceFile))
			}
		}
	}

	if strings.TrimSpace(c.Passphrase) == "" {
		errors = append(errors, "CONTRACTS_PASSPHRASE cannot be empty")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.LoginAttemptsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid login attempts per minute %d: must be at least 1", c.LoginAttemptsPerMinute))
	}

	if c.DatasetTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid dataset TTL %v: must not be negative", c.DatasetTTL))
	} else if c.DatasetTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid dataset TTL %v: must be at most 24 hours", c.DatasetTTL))
	}
	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	}
	if _, err := cron.ParseStandard(c.CacheSweepSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid cache sweep schedule '%s': %v", c.CacheSweepSchedule, err))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
