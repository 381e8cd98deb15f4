package core

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// WorkTypeHeader labels the first column of a formatted table.
const WorkTypeHeader = "Work Type"

// FormattedTable is a PivotTable rendered for display and export.
// Cells are strings; numeric consumers should use the PivotTable instead.
type FormattedTable struct {
	Header []string
	Rows   [][]string
}

// FormatAmount renders v with exactly two decimals, rounding half away
// from zero on the shortest decimal representation of v.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatCell formats numeric values and passes anything else through.
func FormatCell(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return FormatAmount(n)
	case float32:
		return FormatAmount(float64(n))
	case int:
		return FormatAmount(float64(n))
	case int64:
		return FormatAmount(float64(n))
	case decimal.Decimal:
		return n.StringFixed(2)
	default:
		return fmt.Sprint(v)
	}
}

// Format renders the pivot as a header plus one row per work type.
func Format(p PivotTable) FormattedTable {
	t := FormattedTable{
		Header: append([]string{WorkTypeHeader}, p.Columns...),
		Rows:   make([][]string, 0, len(p.Rows)),
	}
	for _, wt := range p.Rows {
		row := make([]string, 0, len(p.Columns)+1)
		row = append(row, FormatCell(wt))
		for _, plan := range p.Columns {
			row = append(row, FormatCell(p.Value(wt, plan)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Cell returns the formatted value for a work type and plan header.
func (t FormattedTable) Cell(workType, plan string) (string, bool) {
	col := -1
	for i, h := range t.Header {
		if i > 0 && h == plan {
			col = i
			break
		}
	}
	if col == -1 {
		return "", false
	}
	for _, row := range t.Rows {
		if len(row) > col && row[0] == workType {
			return row[col], true
		}
	}
	return "", false
}

// Plans returns the plan headers without the label column.
func (t FormattedTable) Plans() []string {
	if len(t.Header) == 0 {
		return nil
	}
	return t.Header[1:]
}
