// Package export turns a formatted contracts table into a downloadable
// xlsx workbook or PDF document held in memory.
package export

import (
	"errors"
	"fmt"
	"strings"

	"contracts/internal/core"
)

// Format names a download type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// ErrUnsupportedFormat is returned for anything other than xlsx or pdf.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Artifact is a finished download.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Formats lists the supported download types in display order.
func Formats() []Format {
	return []Format{FormatXLSX, FormatPDF}
}

// ParseFormat accepts "xlsx" or "pdf" in any case, with or without a dot.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return ContentTypeXLSX
	case FormatPDF:
		return ContentTypePDF
	}
	return "application/octet-stream"
}

// Filename returns "{community}_{series}.{ext}". Path separators and
// control characters are replaced so the name stays a single file.
func Filename(community, series string, f Format) string {
	return safeFileComponent(community) + "_" + safeFileComponent(series) + "." + string(f)
}

// Export renders table in the requested format.
func Export(table core.FormattedTable, community, series string, f Format) (Artifact, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatXLSX:
		data, err = renderXLSX(table, community, series)
	case FormatPDF:
		data, err = renderPDF(table, community, series)
	default:
		return Artifact{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", f, err)
	}
	return Artifact{
		Filename:    Filename(community, series, f),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

func safeFileComponent(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, s)
}
