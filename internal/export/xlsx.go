package export

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"contracts/internal/core"
)

// maxSheetNameLen is Excel's limit on worksheet names.
const maxSheetNameLen = 31

// SheetName derives a valid worksheet name from the selection.
func SheetName(community, series string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, community+"_"+series)
	name = strings.Trim(name, "'")
	if utf8.RuneCountInString(name) > maxSheetNameLen {
		name = string([]rune(name)[:maxSheetNameLen])
	}
	name = strings.Trim(name, "' ")
	if name == "" {
		return "Sheet1"
	}
	return name
}

func renderXLSX(table core.FormattedTable, community, series string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := SheetName(community, series)
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	}
	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("Contracts %s / %s", community, series),
		Creator: "contracts",
	})

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DCE6F1"}, Pattern: 1},
		Border:    []excelize.Border{{Type: "bottom", Color: "#4F81BD", Style: 2}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("amount style: %w", err)
	}

	if err := writeRow(f, sheet, 1, table.Header); err != nil {
		return nil, err
	}
	if len(table.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	labelWidth := float64(len(core.WorkTypeHeader))
	for i, row := range table.Rows {
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
		if len(row) > 0 && float64(utf8.RuneCountInString(row[0])) > labelWidth {
			labelWidth = float64(utf8.RuneCountInString(row[0]))
		}
	}
	if len(table.Rows) > 0 && len(table.Header) > 1 {
		first, _ := excelize.CoordinatesToCellName(2, 2)
		last, _ := excelize.CoordinatesToCellName(len(table.Header), len(table.Rows)+1)
		if err := f.SetCellStyle(sheet, first, last, amountStyle); err != nil {
			return nil, fmt.Errorf("style amounts: %w", err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", labelWidth+2); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}
	if len(table.Header) > 1 {
		lastCol, _ := excelize.ColumnNumberToName(len(table.Header))
		if err := f.SetColWidth(sheet, "B", lastCol, 14); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRow stores values as text so exported amounts keep their two
// decimals exactly as displayed.
func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}
