package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"contracts/internal/core"
)

// Column headers expected in the source sheet.
const (
	ColCommunity = "Community"
	ColSeries    = "Series"
	ColWorkType  = "Work Type"
	ColPlan      = "Plan"
	ColAmount    = "Amount"
)

var requiredColumns = []string{ColCommunity, ColSeries, ColWorkType, ColPlan, ColAmount}

// RequiredColumns returns the header names a source sheet must carry.
func RequiredColumns() []string {
	return append([]string(nil), requiredColumns...)
}

// DecodeRows converts a cell matrix into line items.
//
// The first non-empty row is the header. Columns are matched by trimmed,
// case-insensitive name and may appear in any order alongside extra columns.
// Fully blank rows are skipped; a blank or non-numeric Amount is an error.
// Community, Series, Work Type and Plan are kept byte for byte, so values
// differing only in surrounding whitespace stay distinct.
func DecodeRows(rows [][]string) ([]core.LineItem, error) {
	start := -1
	for i, row := range rows {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, ErrEmptyWorkbook
	}

	header := rows[start]
	idx := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, name := range requiredColumns {
		col := indexOf(header, name)
		if col == -1 {
			missing = append(missing, name)
			continue
		}
		idx[name] = col
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s; got headers=%v", ErrMissingColumn, strings.Join(missing, ","), header)
	}

	items := make([]core.LineItem, 0, len(rows)-start-1)
	for i := start + 1; i < len(rows); i++ {
		row := rows[i]
		if blankRow(row) {
			continue
		}
		rowNum := i + 1
		amount, err := core.ParseAmount(safeGet(row, idx[ColAmount]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		items = append(items, core.LineItem{
			Community: safeGet(row, idx[ColCommunity]),
			Series:    safeGet(row, idx[ColSeries]),
			WorkType:  safeGet(row, idx[ColWorkType]),
			Plan:      safeGet(row, idx[ColPlan]),
			Amount:    amount,
			Row:       rowNum,
		})
	}
	return items, nil
}

// ToStrings stringifies a row of API cell values. Floats are written
// without exponent so large amounts survive ParseAmount. Text is not trimmed.
func ToStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
