package memory

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"contracts/internal/core"
	ports "contracts/internal/sheets"
	"contracts/internal/sheets/workbook"
)

// Store serves a fixed set of line items.
type Store struct {
	mu     sync.Mutex
	source string
	items  []core.LineItem
}

// Ensure interface conformance
var (
	_ ports.DatasetLoader = (*Store)(nil)
	_ ports.Describer     = (*Store)(nil)
)

func New(items ...core.LineItem) *Store {
	return &Store{source: "memory", items: append([]core.LineItem(nil), items...)}
}

// NewFromFile seeds the store from a local xlsx/xls workbook.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed workbook: %w", err)
	}
	rows, err := workbook.ReadRows(data, path, "")
	if err != nil {
		return nil, fmt.Errorf("read seed workbook %s: %w", path, err)
	}
	items, err := ports.DecodeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("decode seed workbook %s: %w", path, err)
	}
	s := New(items...)
	s.source = "memory:" + path
	return s, nil
}

// Set replaces the stored items.
func (s *Store) Set(items []core.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.LineItem(nil), items...)
}

func (s *Store) Describe() string { return s.source }

// Load returns a copy of the stored items.
func (s *Store) Load(_ context.Context) (core.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Dataset{
		Source:   s.source,
		LoadedAt: time.Now(),
		Items:    append([]core.LineItem(nil), s.items...),
	}, nil
}
