package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
	gsheet "google.golang.org/api/sheets/v4"
)

const installedClient = `{"installed":{"client_id":"contracts-client","client_secret":"shh","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS",
		"GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE", "GOOGLE_OAUTH_TOKEN_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestOAuthConfigFromEnv(t *testing.T) {
	clearCredentialEnv(t)
	if _, err := OAuthConfigFromEnv(); !errors.Is(err, ErrNoOAuthClient) {
		t.Fatalf("expected ErrNoOAuthClient, got %v", err)
	}

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", installedClient)
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ClientID != "contracts-client" {
		t.Errorf("client id = %q", cfg.ClientID)
	}
	if len(cfg.Scopes) != 1 || cfg.Scopes[0] != gsheet.SpreadsheetsReadonlyScope {
		t.Errorf("scopes = %v, want read-only sheets", cfg.Scopes)
	}

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", "/nonexistent/client.json")
	if _, err := OAuthConfigFromEnv(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestTokenFileFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", "")
	if got := TokenFileFromEnv(); got != DefaultTokenFile {
		t.Errorf("got %q, want %q", got, DefaultTokenFile)
	}
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", " /tmp/t.json ")
	if got := TokenFileFromEnv(); got != "/tmp/t.json" {
		t.Errorf("got %q", got)
	}
}

func TestSaveAndReadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).UTC().Truncate(time.Second)}

	if err := SaveToken(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %v, want 0600", perm)
	}

	got, err := ReadToken(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.RefreshToken != "r" || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("token mismatch: %+v", got)
	}
}

func TestReadTokenRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadToken(path); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestNewFromEnv_OAuthToken(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")
	if err := SaveToken(tokenPath, &oauth2.Token{RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SHEET_NAME", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", installedClient)
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", tokenPath)

	c, err := NewFromEnv(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Describe() != "sheets:sheet-id!Contracts" {
		t.Errorf("describe = %s", c.Describe())
	}
}

func TestNewFromEnv_OAuthMissingToken(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", installedClient)
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", filepath.Join(t.TempDir(), "missing.json"))

	if _, err := NewFromEnv(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
