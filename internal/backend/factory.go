package backend

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "contracts/internal/sheets/google"
	"contracts/internal/sheets/memory"
	"contracts/internal/sheets/workbook"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case WorkbookBackend:
		return f.createWorkbookBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createWorkbookBackend(config Config) (*BackendResult, error) {
	cli := workbook.New(config.SourceURL)

	f.logger.Info("Initialized workbook backend", "source_url", config.SourceURL)

	return &BackendResult{Loader: cli}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &BackendResult{Loader: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.SourceFile == "" {
		f.logger.Info("Initialized empty memory backend")
		return &BackendResult{Loader: memory.New()}, nil
	}

	store, err := memory.NewFromFile(config.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "source_file", config.SourceFile)

	return &BackendResult{Loader: store}, nil
}
