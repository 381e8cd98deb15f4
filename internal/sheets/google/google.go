package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"contracts/internal/core"
	ports "contracts/internal/sheets"
)

// DefaultSheetName is read when GOOGLE_SHEET_NAME is unset.
const DefaultSheetName = "Contracts"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.DatasetLoader = (*Client)(nil)
	_ ports.Describer     = (*Client)(nil)
)

// NewFromEnv creates a read-only Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS; otherwise an installed-app OAuth client
// (GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE) plus the token saved
// by cmd/oauth-init (GOOGLE_OAUTH_TOKEN_FILE, default token.json).
// Optional: GOOGLE_SHEET_NAME (default "Contracts").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))

	creds, err := credentialsFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, creds, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetName), nil
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func credentialsFromEnv(ctx context.Context) (goption.ClientOption, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(serviceAccountJSON))
		return goption.WithCredentialsJSON([]byte(serviceAccountJSON)), nil
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", serviceAccountFile, "size", len(data))
		return goption.WithCredentialsJSON(data), nil
	}

	ts, err := oauthTokenSource(ctx)
	if errors.Is(err, ErrNoOAuthClient) {
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client with GOOGLE_OAUTH_TOKEN_FILE)")
	}
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Using OAuth user token", "path", TokenFileFromEnv())
	return goption.WithTokenSource(ts), nil
}

// Describe implements ports.Describer.
func (c *Client) Describe() string {
	return fmt.Sprintf("sheets:%s!%s", c.spreadsheetID, c.sheetName)
}

// Load reads the whole contracts sheet and decodes it by header name.
func (c *Client) Load(ctx context.Context) (core.Dataset, error) {
	if c.svc == nil {
		return core.Dataset{}, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheetName).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return core.Dataset{}, fmt.Errorf("read %s: %w", c.sheetName, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = ports.ToStrings(row)
	}
	items, err := ports.DecodeRows(rows)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("decode %s: %w", c.sheetName, err)
	}
	slog.DebugContext(ctx, "Sheet loaded", "spreadsheet_id", c.spreadsheetID, "sheet", c.sheetName, "items", len(items))
	return core.Dataset{Source: c.Describe(), LoadedAt: time.Now(), Items: items}, nil
}
