// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: the Community/Series selection, form input sanitisation and the
// download headers.

package http

import (
	"net/http"
	"net/url"
	"strings"

	"contracts/internal/core"
)

// ParseSelection extracts the community and series from query or form values.
func ParseSelection(values url.Values) core.Selection {
	return core.Selection{
		Community: sanitizeInput(values.Get("community")),
		Series:    sanitizeInput(values.Get("series")),
	}
}

// sanitizeInput drops control characters. Everything else, surrounding
// spaces included, is kept so the value still matches the data exactly.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// selectionQuery encodes a selection for links and redirects.
func selectionQuery(sel core.Selection) string {
	v := url.Values{}
	if sel.Community != "" {
		v.Set("community", sel.Community)
	}
	if sel.Series != "" {
		v.Set("series", sel.Series)
	}
	return v.Encode()
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// contentDisposition builds an attachment header. Names that are not plain
// ASCII also get an RFC 5987 filename* parameter.
func contentDisposition(filename string) string {
	ascii := true
	for _, r := range filename {
		if r < 0x20 || r > 0x7e {
			ascii = false
			break
		}
	}
	quoted := strings.NewReplacer(`"`, "_", `\`, "_").Replace(filename)
	if ascii {
		return `attachment; filename="` + quoted + `"`
	}
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '_'
		}
		return r
	}, quoted)
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + url.PathEscape(filename)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<16)
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
