package core

import (
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []LineItem {
	return []LineItem{
		{Community: "CommA", Series: "Ser1", WorkType: "Foundation", Plan: "PlanX", Amount: 100.005},
		{Community: "CommA", Series: "Ser1", WorkType: "Foundation", Plan: "PlanX", Amount: 50.00},
		{Community: "CommA", Series: "Ser1", WorkType: "Framing", Plan: "PlanY", Amount: 75.5},
		{Community: "CommA", Series: "Ser2", WorkType: "Framing", Plan: "PlanY", Amount: 999},
		{Community: "CommB", Series: "Ser1", WorkType: "Foundation", Plan: "PlanX", Amount: 1},
		{Community: "comma", Series: "Ser1", WorkType: "Foundation", Plan: "PlanX", Amount: 7},
	}
}

func TestFilterExactMatch(t *testing.T) {
	items := sampleItems()
	got := Filter(items, "CommA", "Ser1")

	want := []LineItem{items[0], items[1], items[2]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Filter mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterIsCaseSensitive(t *testing.T) {
	got := Filter(sampleItems(), "comma", "Ser1")
	require.Len(t, got, 1)
	assert.Equal(t, 7.0, got[0].Amount)
}

func TestFilterNoMatchIsEmptyNotNil(t *testing.T) {
	got := Filter(sampleItems(), "CommZ", "Ser9")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	p, err := Aggregate(got)
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
	assert.Empty(t, Format(p).Rows)
}

func TestFilterDoesNotAliasInput(t *testing.T) {
	items := sampleItems()
	got := Filter(items, "CommA", "Ser1")
	got[0].Amount = -1
	assert.Equal(t, 100.005, items[0].Amount)
}

func TestAggregateRoundTripScenario(t *testing.T) {
	subset := Filter(sampleItems(), "CommA", "Ser1")
	p, err := Aggregate(subset)
	require.NoError(t, err)

	assert.Equal(t, []string{"Foundation", "Framing"}, p.Rows)
	assert.Equal(t, []string{"PlanX", "PlanY"}, p.Columns)
	assert.InDelta(t, 150.005, p.Value("Foundation", "PlanX"), 1e-9)
	assert.Equal(t, 0.0, p.Value("Foundation", "PlanY"))
	assert.Equal(t, 0.0, p.Value("Framing", "PlanX"))
	assert.Equal(t, 75.5, p.Value("Framing", "PlanY"))

	ft := Format(p)
	assert.Equal(t, []string{WorkTypeHeader, "PlanX", "PlanY"}, ft.Header)

	cell, ok := ft.Cell("Foundation", "PlanX")
	require.True(t, ok)
	assert.Contains(t, []string{"150.01", "150.00"}, cell)

	want := map[string]map[string]string{
		"Foundation": {"PlanY": "0.00"},
		"Framing":    {"PlanX": "0.00", "PlanY": "75.50"},
	}
	for wt, plans := range want {
		for plan, v := range plans {
			got, ok := ft.Cell(wt, plan)
			require.True(t, ok, "%s/%s", wt, plan)
			assert.Equal(t, v, got, "%s/%s", wt, plan)
		}
	}
}

func TestAggregateConservesTotal(t *testing.T) {
	var items []LineItem
	workTypes := []string{"Roofing", "Electrical", "Foundation", "Plumbing", "Framing"}
	plans := []string{"3021", "2040", "1911"}
	var want float64
	for i := 0; i < 250; i++ {
		amt := float64(i%37)*13.17 + float64(i%5)*0.01
		items = append(items, LineItem{
			Community: "C",
			Series:    "S",
			WorkType:  workTypes[i%len(workTypes)],
			Plan:      plans[i%len(plans)],
			Amount:    amt,
		})
		want += amt
	}

	p, err := Aggregate(items)
	require.NoError(t, err)
	assert.InDelta(t, want, p.Total(), 1e-6)

	var byRows float64
	for _, wt := range p.Rows {
		byRows += p.RowTotal(wt)
	}
	assert.InDelta(t, want, byRows, 1e-6)
}

func TestAggregateCellInvariant(t *testing.T) {
	items := sampleItems()
	p, err := Aggregate(items)
	require.NoError(t, err)

	for _, wt := range p.Rows {
		for _, plan := range p.Columns {
			var sum float64
			for _, it := range items {
				if it.WorkType == wt && it.Plan == plan {
					sum += it.Amount
				}
			}
			assert.InDelta(t, sum, p.Value(wt, plan), 1e-9, "%s/%s", wt, plan)
		}
	}
}

func TestAggregateRowsSortedAndColumnsStable(t *testing.T) {
	items := []LineItem{
		{WorkType: "zeta", Plan: "B", Amount: 1},
		{WorkType: "Alpha", Plan: "A", Amount: 1},
		{WorkType: "beta", Plan: "C", Amount: 1},
		{WorkType: "Gamma", Plan: "A", Amount: 1},
	}
	first, err := Aggregate(items)
	require.NoError(t, err)
	assert.True(t, sort.StringsAreSorted(first.Rows))
	assert.Equal(t, []string{"Alpha", "Gamma", "beta", "zeta"}, first.Rows)

	for i := 0; i < 10; i++ {
		again, err := Aggregate(items)
		require.NoError(t, err)
		assert.Equal(t, first.Columns, again.Columns)
		assert.Equal(t, first.Rows, again.Rows)
	}
}

func TestAggregateSumsUnroundedAmounts(t *testing.T) {
	items := []LineItem{
		{WorkType: "Paint", Plan: "P1", Amount: 0.004},
		{WorkType: "Paint", Plan: "P1", Amount: 0.004},
	}
	p, err := Aggregate(items)
	require.NoError(t, err)
	assert.InDelta(t, 0.008, p.Value("Paint", "P1"), 1e-12)

	// Rounding each amount first would give 0.00.
	assert.Equal(t, "0.01", Format(p).Rows[0][1])
}

func TestAggregateRejectsNaN(t *testing.T) {
	_, err := Aggregate([]LineItem{{WorkType: "W", Plan: "P", Amount: math.NaN(), Row: 4}})
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Contains(t, err.Error(), "row 4")
}

func BenchmarkPipeline(b *testing.B) {
	items := make([]LineItem, 0, 5000)
	for i := 0; i < 5000; i++ {
		items = append(items, LineItem{
			Community: fmt.Sprintf("C%d", i%4),
			Series:    fmt.Sprintf("S%d", i%3),
			WorkType:  fmt.Sprintf("W%02d", i%40),
			Plan:      fmt.Sprintf("P%d", i%12),
			Amount:    float64(i) * 1.25,
		})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, err := Aggregate(Filter(items, "C1", "S2"))
		if err != nil {
			b.Fatal(err)
		}
		_ = Format(p)
	}
}
