package sheets

import (
	"context"
	"errors"

	"contracts/internal/core"
)

// Ports for outbound adapters.
type (
	// DatasetLoader fetches the full set of contract line items from a source.
	DatasetLoader interface {
		Load(ctx context.Context) (core.Dataset, error)
	}

	// Describer is implemented by loaders that can name their source for logs
	// and readiness output.
	Describer interface {
		Describe() string
	}
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyWorkbook = errors.New("workbook has no data")
)

// Describe returns a printable name for a loader.
func Describe(l DatasetLoader) string {
	if d, ok := l.(Describer); ok {
		return d.Describe()
	}
	return "unknown"
}
