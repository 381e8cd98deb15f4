package export

import (
	"bytes"
	"fmt"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"contracts/internal/core"
)

const (
	fontRegular = "goregular"
	fontBold    = "gobold"

	pageMargin    = 36.0
	rowHeight     = 18.0
	cellPadding   = 4.0
	bodyFontSize  = 9
	titleFontSize = 14
	minColWidth   = 56.0
	maxColWidth   = 140.0
	maxLabelWidth = 220.0
)

type pdfRenderer struct {
	pdf   *gopdf.GoPdf
	title string
	pageW float64
	pageH float64
	y     float64
	page  int
}

func renderPDF(table core.FormattedTable, community, series string) ([]byte, error) {
	size := *gopdf.PageSizeA4Landscape
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: size})
	pdf.SetInfo(gopdf.PdfInfo{
		Title:   fmt.Sprintf("Contracts %s / %s", community, series),
		Creator: "contracts",
	})

	if err := pdf.AddTTFFontData(fontRegular, goregular.TTF); err != nil {
		return nil, fmt.Errorf("load regular font: %w", err)
	}
	if err := pdf.AddTTFFontData(fontBold, gobold.TTF); err != nil {
		return nil, fmt.Errorf("load bold font: %w", err)
	}

	r := &pdfRenderer{
		pdf:   pdf,
		title: fmt.Sprintf("Contracts: %s / %s", community, series),
		pageW: size.W,
		pageH: size.H,
	}
	if err := r.render(table); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// render lays the table out in column groups that fit the page width.
// Each group repeats the Work Type column and the header on every page.
func (r *pdfRenderer) render(table core.FormattedTable) error {
	labelW, colW, err := r.measure(table)
	if err != nil {
		return err
	}
	groups := groupColumns(colW, r.pageW-2*pageMargin-labelW)

	for _, group := range groups {
		subtitle := ""
		if len(groups) > 1 {
			subtitle = fmt.Sprintf("Plans %d-%d of %d", group[0], group[len(group)-1], len(colW))
		}
		if err := r.newPage(subtitle); err != nil {
			return err
		}
		if err := r.row(table.Header, group, labelW, colW, true); err != nil {
			return err
		}
		for _, row := range table.Rows {
			if r.y+rowHeight > r.pageH-pageMargin {
				if err := r.newPage(subtitle); err != nil {
					return err
				}
				if err := r.row(table.Header, group, labelW, colW, true); err != nil {
					return err
				}
			}
			if err := r.row(row, group, labelW, colW, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// measure returns the label column width and the width of each plan
// column, indexed like the header (colW[0] is unused).
func (r *pdfRenderer) measure(table core.FormattedTable) (float64, []float64, error) {
	if err := r.pdf.SetFont(fontBold, "", bodyFontSize); err != nil {
		return 0, nil, fmt.Errorf("set font: %w", err)
	}
	colW := make([]float64, len(table.Header))
	for i, h := range table.Header {
		w, err := r.pdf.MeasureTextWidth(h)
		if err != nil {
			return 0, nil, fmt.Errorf("measure header: %w", err)
		}
		colW[i] = w + 2*cellPadding
	}
	if err := r.pdf.SetFont(fontRegular, "", bodyFontSize); err != nil {
		return 0, nil, fmt.Errorf("set font: %w", err)
	}
	for _, row := range table.Rows {
		for i, v := range row {
			if i >= len(colW) {
				break
			}
			w, err := r.pdf.MeasureTextWidth(v)
			if err != nil {
				return 0, nil, fmt.Errorf("measure cell: %w", err)
			}
			if w+2*cellPadding > colW[i] {
				colW[i] = w + 2*cellPadding
			}
		}
	}

	labelW := minColWidth
	if len(colW) > 0 {
		labelW = clamp(colW[0], minColWidth, maxLabelWidth)
	}
	for i := 1; i < len(colW); i++ {
		colW[i] = clamp(colW[i], minColWidth, maxColWidth)
	}
	return labelW, colW, nil
}

// groupColumns splits header indices 1..n into runs whose widths fit avail.
// A table with no plan columns yields a single empty group.
func groupColumns(colW []float64, avail float64) [][]int {
	var groups [][]int
	var cur []int
	used := 0.0
	for i := 1; i < len(colW); i++ {
		if len(cur) > 0 && used+colW[i] > avail {
			groups = append(groups, cur)
			cur, used = nil, 0
		}
		cur = append(cur, i)
		used += colW[i]
	}
	if len(cur) > 0 || len(groups) == 0 {
		groups = append(groups, cur)
	}
	return groups
}

func (r *pdfRenderer) newPage(subtitle string) error {
	r.pdf.AddPage()
	r.page++
	r.y = pageMargin

	r.pdf.SetTextColor(0, 0, 0)
	if err := r.pdf.SetFont(fontBold, "", titleFontSize); err != nil {
		return fmt.Errorf("set font: %w", err)
	}
	r.pdf.SetXY(pageMargin, r.y)
	if err := r.pdf.Cell(nil, r.title); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	r.y += titleFontSize + 6

	if err := r.pdf.SetFont(fontRegular, "", bodyFontSize); err != nil {
		return fmt.Errorf("set font: %w", err)
	}
	r.pdf.SetTextColor(90, 90, 90)
	if subtitle != "" {
		r.pdf.SetXY(pageMargin, r.y)
		if err := r.pdf.Cell(nil, subtitle); err != nil {
			return fmt.Errorf("write subtitle: %w", err)
		}
	}
	r.pdf.SetXY(r.pageW-pageMargin-60, r.pageH-pageMargin+10)
	if err := r.pdf.CellWithOption(&gopdf.Rect{W: 60, H: 12}, fmt.Sprintf("Page %d", r.page), gopdf.CellOption{Align: gopdf.Right}); err != nil {
		return fmt.Errorf("write page number: %w", err)
	}
	r.pdf.SetTextColor(0, 0, 0)
	r.y += bodyFontSize + 8
	return nil
}

func (r *pdfRenderer) row(values []string, group []int, labelW float64, colW []float64, header bool) error {
	font := fontRegular
	if header {
		font = fontBold
	}
	if err := r.pdf.SetFont(font, "", bodyFontSize); err != nil {
		return fmt.Errorf("set font: %w", err)
	}

	x := pageMargin
	if err := r.cell(x, labelW, at(values, 0), gopdf.Left, header); err != nil {
		return err
	}
	x += labelW
	for _, i := range group {
		align := gopdf.Right
		if header {
			align = gopdf.Center
		}
		if err := r.cell(x, colW[i], at(values, i), align, header); err != nil {
			return err
		}
		x += colW[i]
	}
	r.y += rowHeight
	return nil
}

func (r *pdfRenderer) cell(x, w float64, text string, align int, shaded bool) error {
	r.pdf.SetLineWidth(0.5)
	r.pdf.SetStrokeColor(160, 160, 160)
	if shaded {
		r.pdf.SetFillColor(220, 230, 241)
		r.pdf.RectFromUpperLeftWithStyle(x, r.y, w, rowHeight, "FD")
	} else {
		r.pdf.RectFromUpperLeftWithStyle(x, r.y, w, rowHeight, "D")
	}

	inner := w - 2*cellPadding
	text, err := r.fit(text, inner)
	if err != nil {
		return err
	}
	r.pdf.SetXY(x+cellPadding, r.y)
	if err := r.pdf.CellWithOption(&gopdf.Rect{W: inner, H: rowHeight}, text, gopdf.CellOption{Align: align | gopdf.Middle}); err != nil {
		return fmt.Errorf("write cell: %w", err)
	}
	return nil
}

// fit shortens text with a trailing "..." until it fits width.
func (r *pdfRenderer) fit(text string, width float64) (string, error) {
	w, err := r.pdf.MeasureTextWidth(text)
	if err != nil {
		return "", fmt.Errorf("measure text: %w", err)
	}
	if w <= width {
		return text, nil
	}
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := string(runes[:n]) + "..."
		if w, err = r.pdf.MeasureTextWidth(candidate); err != nil {
			return "", fmt.Errorf("measure text: %w", err)
		}
		if w <= width {
			return candidate, nil
		}
	}
	return "", nil
}

func at(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
