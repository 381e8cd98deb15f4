package backend

import (
	"context"

	"contracts/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the loader instance and optional cleanup function
type BackendResult struct {
	Loader  sheets.DatasetLoader
	Cleanup CleanupFunc
}

// Factory creates dataset loaders based on configuration
type Factory interface {
	// CreateBackend creates a loader instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for loader creation
type Config struct {
	Type BackendType

	// Workbook specific
	SourceURL string

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Memory backend specific: optional seed workbook
	SourceFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	WorkbookBackend BackendType = "workbook"
	SheetsBackend   BackendType = "sheets"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case WorkbookBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
