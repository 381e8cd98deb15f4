package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"contracts/internal/core"
)

func TestStoreLoadReturnsCopy(t *testing.T) {
	s := New(
		core.LineItem{Community: "A", Series: "1", WorkType: "W", Plan: "P", Amount: 10},
		core.LineItem{Community: "B", Series: "2", WorkType: "W", Plan: "P", Amount: 20},
	)
	ds, err := s.Load(context.Background())
	if err != nil || ds.Len() != 2 {
		t.Fatalf("unexpected load: ds=%+v err=%v", ds, err)
	}
	ds.Items[0].Amount = 999

	again, _ := s.Load(context.Background())
	if again.Items[0].Amount != 10 {
		t.Fatalf("Load leaked internal slice")
	}
	if s.Describe() != "memory" || ds.Source != "memory" {
		t.Fatalf("unexpected source %q", ds.Source)
	}
}

func TestStoreSet(t *testing.T) {
	s := New()
	ds, _ := s.Load(context.Background())
	if ds.Len() != 0 {
		t.Fatalf("expected empty store")
	}
	s.Set([]core.LineItem{{Community: "A", Series: "1", WorkType: "W", Plan: "P", Amount: 1}})
	ds, _ = s.Load(context.Background())
	if ds.Len() != 1 {
		t.Fatalf("expected 1 item after Set, got %d", ds.Len())
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"Community", "Series", "Work Type", "Plan", "Amount"},
		{"CommA", "Ser1", "Foundation", "PlanX", 100.5},
		{"CommA", "Ser2", "Framing", "PlanY", 3},
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &rows[i]); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = f.Close()

	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	ds, _ := s.Load(context.Background())
	if got := ds.SeriesFor("CommA"); len(got) != 2 || got[0] != "Ser1" {
		t.Fatalf("unexpected series: %v", got)
	}
	if ds.Source != "memory:"+path {
		t.Fatalf("unexpected source %q", ds.Source)
	}
}

func TestNewFromFileMissing(t *testing.T) {
	if _, err := NewFromFile(filepath.Join(t.TempDir(), "nope.xlsx")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
