package core

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1234.5", 1234.5, true},
		{" 75.25 ", 75.25, true},
		{"$1,234.50", 1234.5, true},
		{"(75.25)", -75.25, true},
		{"-$10", -10, true},
		{"0", 0, true},
		{"1e3", 1000, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestSelectionValidate(t *testing.T) {
	if err := (Selection{Community: "A", Series: "1"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, s := range []Selection{{}, {Community: "A"}, {Series: "1"}, {Community: " ", Series: "1"}} {
		if err := s.Validate(); !errors.Is(err, ErrEmptySelection) {
			t.Fatalf("%+v expected ErrEmptySelection, got %v", s, err)
		}
	}
}

func TestLineItemValidate(t *testing.T) {
	if err := (LineItem{Amount: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (LineItem{Amount: math.Inf(1)}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDatasetSelectionOptions(t *testing.T) {
	d := Dataset{Items: sampleItems()}
	if got, want := d.Communities(), []string{"CommA", "CommB", "comma"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Communities() = %v, want %v", got, want)
	}
	if got, want := d.SeriesFor("CommA"), []string{"Ser1", "Ser2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("SeriesFor() = %v, want %v", got, want)
	}
	if got := d.SeriesFor("nope"); len(got) != 0 {
		t.Fatalf("expected no series, got %v", got)
	}
	if !d.Has(Selection{Community: "CommB", Series: "Ser1"}) {
		t.Fatalf("expected CommB/Ser1 present")
	}
	if d.Has(Selection{Community: "CommB", Series: "Ser2"}) {
		t.Fatalf("expected CommB/Ser2 absent")
	}
	if d.Len() != 6 {
		t.Fatalf("Len() = %d", d.Len())
	}
}
