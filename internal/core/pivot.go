package core

import "sort"

// PivotTable sums Amount by work type (rows) and plan (columns).
type PivotTable struct {
	Rows    []string // work types, ascending
	Columns []string // plans, ascending
	Cells   map[string]map[string]float64
}

// Filter returns the items whose community and series match exactly.
// The returned slice is never shared with items.
func Filter(items []LineItem, community, series string) []LineItem {
	out := make([]LineItem, 0)
	for _, it := range items {
		if it.Community == community && it.Series == series {
			out = append(out, it)
		}
	}
	return out
}

// Aggregate pivots items into a work type × plan table. Amounts are summed
// unrounded; rounding to two decimals happens once, in Format.
func Aggregate(items []LineItem) (PivotTable, error) {
	cells := make(map[string]map[string]float64)
	plans := make(map[string]struct{})
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return PivotTable{}, err
		}
		row, ok := cells[it.WorkType]
		if !ok {
			row = make(map[string]float64)
			cells[it.WorkType] = row
		}
		row[it.Plan] += it.Amount
		plans[it.Plan] = struct{}{}
	}

	p := PivotTable{
		Rows:    make([]string, 0, len(cells)),
		Columns: make([]string, 0, len(plans)),
		Cells:   cells,
	}
	for wt := range cells {
		p.Rows = append(p.Rows, wt)
	}
	for plan := range plans {
		p.Columns = append(p.Columns, plan)
	}
	sort.Strings(p.Rows)
	sort.Strings(p.Columns)
	return p, nil
}

// Value returns the summed amount for a cell; missing combinations are 0.
func (p PivotTable) Value(workType, plan string) float64 {
	return p.Cells[workType][plan]
}

// Total sums every cell in the table.
func (p PivotTable) Total() float64 {
	var total float64
	for _, wt := range p.Rows {
		for _, plan := range p.Columns {
			total += p.Value(wt, plan)
		}
	}
	return total
}

// RowTotal sums one work type across all plans.
func (p PivotTable) RowTotal(workType string) float64 {
	var total float64
	for _, plan := range p.Columns {
		total += p.Value(workType, plan)
	}
	return total
}

func (p PivotTable) IsEmpty() bool {
	return len(p.Rows) == 0
}
