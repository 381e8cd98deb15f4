package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type (
	// LineItem is one contract line from the source spreadsheet.
	LineItem struct {
		Community string
		Series    string
		WorkType  string
		Plan      string
		Amount    float64
		Row       int // 1-based source row, 0 when unknown
	}

	// Dataset is the full set of line items loaded from one source.
	Dataset struct {
		Source   string
		LoadedAt time.Time
		Items    []LineItem
	}

	// Selection is the (Community, Series) pair chosen by the user.
	Selection struct {
		Community string
		Series    string
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptySelection = errors.New("community and series are required")
)

func (s Selection) Validate() error {
	if strings.TrimSpace(s.Community) == "" || strings.TrimSpace(s.Series) == "" {
		return ErrEmptySelection
	}
	return nil
}

func (s Selection) String() string {
	return s.Community + "_" + s.Series
}

func (i LineItem) Validate() error {
	if math.IsNaN(i.Amount) || math.IsInf(i.Amount, 0) {
		if i.Row > 0 {
			return fmt.Errorf("row %d: %w", i.Row, ErrInvalidAmount)
		}
		return ErrInvalidAmount
	}
	return nil
}

// Len returns the number of line items.
func (d Dataset) Len() int {
	return len(d.Items)
}

// Communities returns the distinct communities in first-seen order.
func (d Dataset) Communities() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, it := range d.Items {
		if _, ok := seen[it.Community]; ok {
			continue
		}
		seen[it.Community] = struct{}{}
		out = append(out, it.Community)
	}
	return out
}

// SeriesFor returns the distinct series observed for a community, in first-seen order.
func (d Dataset) SeriesFor(community string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, it := range d.Items {
		if it.Community != community {
			continue
		}
		if _, ok := seen[it.Series]; ok {
			continue
		}
		seen[it.Series] = struct{}{}
		out = append(out, it.Series)
	}
	return out
}

// Has reports whether the dataset contains the selection.
func (d Dataset) Has(sel Selection) bool {
	for _, it := range d.Items {
		if it.Community == sel.Community && it.Series == sel.Series {
			return true
		}
	}
	return false
}
