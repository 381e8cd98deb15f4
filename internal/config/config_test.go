package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:                   "8081",
		SourceBackend:          "workbook",
		SourceURL:              DefaultSourceURL,
		GoogleSheetName:        "Contracts",
		Passphrase:             "landscape11",
		SessionTTL:             time.Hour,
		LoginAttemptsPerMinute: 10,
		DatasetTTL:             10 * time.Minute,
		FetchTimeout:           30 * time.Second,
		CacheSweepSchedule:     "@every 5m",
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid workbook backend config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "workbook backend with local path",
			mutate:  func(c *Config) { c.SourceURL = "./data/PulteContracts1.xlsx" },
			wantErr: false,
		},
		{
			name:    "memory backend without seed file",
			mutate:  func(c *Config) { c.SourceBackend = "memory" },
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid source backend",
			mutate:      func(c *Config) { c.SourceBackend = "sqlite" },
			wantErr:     true,
			errorString: "invalid source backend 'sqlite'",
		},
		{
			name:        "workbook backend missing url",
			mutate:      func(c *Config) { c.SourceURL = " " },
			wantErr:     true,
			errorString: "SOURCE_URL is required",
		},
		{
			name:        "workbook backend bad scheme",
			mutate:      func(c *Config) { c.SourceURL = "ftp://example.com/book.xlsx" },
			wantErr:     true,
			errorString: "invalid SOURCE_URL scheme 'ftp'",
		},
		{
			name:        "sheets backend missing spreadsheet id",
			mutate:      func(c *Config) { c.SourceBackend = "sheets"; c.GoogleServiceAccountJSON = "{}" },
			wantErr:     true,
			errorString: "Google Spreadsheet ID is required",
		},
		{
			name:        "sheets backend missing credentials",
			mutate:      func(c *Config) { c.SourceBackend = "sheets"; c.GoogleSpreadsheetID = "abc" },
			wantErr:     true,
			errorString: "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or an OAuth client",
		},
		{
			name: "sheets backend oauth client without token",
			mutate: func(c *Config) {
				c.SourceBackend = "sheets"
				c.GoogleSpreadsheetID = "abc"
				c.GoogleOAuthClientJSON = "{}"
				c.GoogleOAuthTokenFile = "/nonexistent/token.json"
			},
			wantErr:     true,
			errorString: "OAuth token file does not exist",
		},
		{
			name:        "empty passphrase",
			mutate:      func(c *Config) { c.Passphrase = "  " },
			wantErr:     true,
			errorString: "CONTRACTS_PASSPHRASE cannot be empty",
		},
		{
			name:        "session ttl too short",
			mutate:      func(c *Config) { c.SessionTTL = time.Second },
			wantErr:     true,
			errorString: "invalid session TTL",
		},
		{
			name:        "negative dataset ttl",
			mutate:      func(c *Config) { c.DatasetTTL = -time.Second },
			wantErr:     true,
			errorString: "invalid dataset TTL",
		},
		{
			name:        "fetch timeout too short",
			mutate:      func(c *Config) { c.FetchTimeout = time.Millisecond },
			wantErr:     true,
			errorString: "invalid fetch timeout",
		},
		{
			name:        "bad cron schedule",
			mutate:      func(c *Config) { c.CacheSweepSchedule = "every now and then" },
			wantErr:     true,
			errorString: "invalid cache sweep schedule",
		},
		{
			name:    "trusted proxies",
			mutate:  func(c *Config) { c.TrustedProxies = []string{"100.64.0.0/10", "fd00::/8"} },
			wantErr: false,
		},
		{
			name:        "bad trusted proxy",
			mutate:      func(c *Config) { c.TrustedProxies = []string{"100.64.0.1"} },
			wantErr:     true,
			errorString: "invalid trusted proxy '100.64.0.1'",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			wantErr:     true,
			errorString: "invalid log level 'loud'",
		},
		{
			name:        "bad log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Validate() error = %v, want to contain %q", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.LogFormat = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:\n- ") {
		t.Errorf("unexpected prefix: %q", msg)
	}
	if strings.Count(msg, "\n- ") != 2 {
		t.Errorf("expected two aggregated problems, got %q", msg)
	}
}

func TestConfig_ValidateWithFiles(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(creds, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := validConfig()
	cfg.SourceBackend = "sheets"
	cfg.GoogleSpreadsheetID = "abc"
	cfg.GoogleServiceAccountFile = creds
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with existing credentials file: %v", err)
	}

	cfg.GoogleServiceAccountFile = filepath.Join(dir, "missing.json")
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing file error, got %v", err)
	}

	mem := validConfig()
	mem.SourceBackend = "memory"
	mem.SourceFile = filepath.Join(dir, "seed.xlsx")
	if err := mem.Validate(); err == nil || !strings.Contains(err.Error(), "source file does not exist") {
		t.Fatalf("expected missing seed error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "SOURCE_BACKEND", "SOURCE_URL", "CONTRACTS_PASSPHRASE",
		"DATASET_TTL", "FETCH_TIMEOUT", "LOG_LEVEL", "LOGIN_ATTEMPTS_PER_MINUTE",
	}

	t.Run("default values", func(t *testing.T) {
		for _, k := range keys {
			t.Setenv(k, "")
		}
		cfg := Load()

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.SourceBackend != "workbook" {
			t.Errorf("Load() SourceBackend = %v, want workbook", cfg.SourceBackend)
		}
		if cfg.SourceURL != DefaultSourceURL {
			t.Errorf("Load() SourceURL = %v", cfg.SourceURL)
		}
		if cfg.Passphrase != "landscape11" {
			t.Errorf("Load() Passphrase = %v, want landscape11", cfg.Passphrase)
		}
		if cfg.FetchTimeout != 30*time.Second {
			t.Errorf("Load() FetchTimeout = %v, want 30s", cfg.FetchTimeout)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("defaults should validate: %v", err)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("SOURCE_BACKEND", "MEMORY")
		t.Setenv("DATASET_TTL", "1m")
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("LOGIN_ATTEMPTS_PER_MINUTE", "3")
		t.Setenv("TRUSTED_PROXIES", " 100.64.0.0/10, ,fd00::/8")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.SourceBackend != "memory" {
			t.Errorf("Load() SourceBackend = %v, want memory", cfg.SourceBackend)
		}
		if cfg.DatasetTTL != time.Minute {
			t.Errorf("Load() DatasetTTL = %v, want 1m", cfg.DatasetTTL)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
		}
		if cfg.LoginAttemptsPerMinute != 3 {
			t.Errorf("Load() LoginAttemptsPerMinute = %v, want 3", cfg.LoginAttemptsPerMinute)
		}
		if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "fd00::/8" {
			t.Errorf("Load() TrustedProxies = %v", cfg.TrustedProxies)
		}
	})

	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		t.Setenv("DATASET_TTL", "soon")
		t.Setenv("LOGIN_ATTEMPTS_PER_MINUTE", "many")

		cfg := Load()
		if cfg.DatasetTTL != 10*time.Minute {
			t.Errorf("Load() DatasetTTL = %v, want 10m", cfg.DatasetTTL)
		}
		if cfg.LoginAttemptsPerMinute != 10 {
			t.Errorf("Load() LoginAttemptsPerMinute = %v, want 10", cfg.LoginAttemptsPerMinute)
		}
	})
}
