// Package core holds the contract line item model and the
// filter → aggregate → format pipeline.
//
// This file parses amounts out of raw spreadsheet cells.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a spreadsheet cell to an amount.
//
// Plain numbers are the common case since workbooks are read with raw
// values, but display-formatted cells are accepted too:
//
//	ParseAmount("1234.5")      -> 1234.5
//	ParseAmount("$1,234.50")   -> 1234.5
//	ParseAmount("(75.25)")     -> -75.25
//	ParseAmount("")            -> ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "$")
	if strings.HasPrefix(s, "-$") {
		s = "-" + s[2:]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if neg {
		d = d.Neg()
	}
	return d.InexactFloat64(), nil
}
