package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"contracts/internal/core"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  core.Selection
	}{
		{"both present", "community=Oak+Ridge&series=100", core.Selection{Community: "Oak Ridge", Series: "100"}},
		{"surrounding spaces kept", "community=%20Oak%20&series=100+", core.Selection{Community: " Oak ", Series: "100 "}},
		{"tab and newline dropped", "community=Oak&series=%09100%0A", core.Selection{Community: "Oak", Series: "100"}},
		{"missing series", "community=Oak", core.Selection{Community: "Oak"}},
		{"control chars dropped", "community=O%00ak&series=1%1b00", core.Selection{Community: "Oak", Series: "100"}},
		{"empty", "", core.Selection{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if got := ParseSelection(values); got != tt.want {
				t.Errorf("ParseSelection(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSanitizeInput_LongValuesKept(t *testing.T) {
	long := strings.Repeat("é", 1000)
	if got := sanitizeInput(long); got != long {
		t.Errorf("long value altered: %d runes, want 1000", len([]rune(got)))
	}
}

func TestSelectionQuery(t *testing.T) {
	got := selectionQuery(core.Selection{Community: "Oak & Elm", Series: "100"})
	if got != "community=Oak+%26+Elm&series=100" {
		t.Errorf("selectionQuery = %q", got)
	}
	if selectionQuery(core.Selection{}) != "" {
		t.Errorf("empty selection should encode to empty string")
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Oak_100.xlsx", `attachment; filename="Oak_100.xlsx"`},
		{"spaces kept", "Oak Ridge_100.pdf", `attachment; filename="Oak Ridge_100.pdf"`},
		{"quotes replaced", `Oak"s_100.pdf`, `attachment; filename="Oak_s_100.pdf"`},
		{"non ascii", "Peñasco_1.xlsx", `attachment; filename="Pe_asco_1.xlsx"; filename*=UTF-8''Pe%C3%B1asco_1.xlsx`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentDisposition(tt.in); got != tt.want {
				t.Errorf("contentDisposition(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsHTMX(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/table", nil)
	if isHTMX(req) {
		t.Error("plain request reported as htmx")
	}
	req.Header.Set("HX-Request", "true")
	if !isHTMX(req) {
		t.Error("htmx request not detected")
	}
}

func TestParseFormOrFail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("passphrase=Landscape11"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := ParseFormOrFail(req); resp != nil {
		t.Fatalf("unexpected failure")
	}
	if req.PostForm.Get("passphrase") != "Landscape11" {
		t.Errorf("form not parsed: %v", req.PostForm)
	}

	bad := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("a=%zz"))
	bad.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := ParseFormOrFail(bad)
	if resp == nil {
		t.Fatal("expected failure for malformed form")
	}
	rr := httptest.NewRecorder()
	resp.Write(rr)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rr.Code)
	}
}
