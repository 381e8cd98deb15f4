package security

import (
	"bytes"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "contracts/internal/log"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if csp := rr.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "https://unpkg.com") {
		t.Errorf("CSP does not allow htmx: %q", csp)
	}
	if _, ok := rr.Header()["Cross-Origin-Embedder-Policy"]; ok {
		t.Errorf("empty embedder policy should not be sent")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Errorf("HSTS must only be sent over TLS")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestNoStoreAndStatic(t *testing.T) {
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	NoStore(noop).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/table", nil))
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}

	rr = httptest.NewRecorder()
	StaticAssetMiddleware(3600)(noop).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	if rr.Header().Get("Cache-Control") != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   string
	}{
		{"plain table request", http.MethodGet, "/table?community=Oak&series=100", "Mozilla/5.0", ""},
		{"curl is fine", http.MethodGet, "/healthz", "curl/8.0", ""},
		{"path traversal", http.MethodGet, "/static/../.env", "", "path:../"},
		{"script in query", http.MethodGet, "/table?community=%3Cscript%3E", "", ""},
		{"raw script in query", http.MethodGet, "/table?community=<script>", "", "query:<script"},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", "agent:sqlmap"},
		{"trace method", "TRACE", "/", "", "method:TRACE"},
		{"long url", http.MethodGet, "/?q=" + strings.Repeat("a", 2100), "", "url-length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(nil)
			req := httptest.NewRequest(tt.method, "/", nil)
			req.URL.Path, req.URL.RawQuery, _ = strings.Cut(tt.target, "?")
			req.Header.Set("User-Agent", tt.agent)

			got, reason := d.DetectSuspiciousRequest(req)
			if got != (tt.want != "") || reason != tt.want {
				t.Fatalf("DetectSuspiciousRequest = (%v, %q), want %q", got, reason, tt.want)
			}
			wantCount := int64(0)
			if got {
				wantCount = 1
			}
			if m := d.GetMetrics(); m.SuspiciousRequests != wantCount {
				t.Errorf("SuspiciousRequests = %d, want %d", m.SuspiciousRequests, wantCount)
			}
		})
	}
}

func TestDetectorMiddlewareLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Format: "json"})
	d := NewDetector(logger)

	called := false
	h := applog.Middleware(logger)(d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))
	req := httptest.NewRequest(http.MethodGet, "/wp-admin/setup.php", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("suspicious requests must still reach the router")
	}
	if !strings.Contains(buf.String(), "Suspicious request detected") || !strings.Contains(buf.String(), "path:wp-admin") {
		t.Errorf("expected warning in log, got %s", buf.String())
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
		invalid    int64
	}{
		{"direct public peer ignores headers", "203.0.113.9:5555", "198.51.100.1", "", "203.0.113.9", 0},
		{"trusted proxy forwards", "10.1.2.3:5555", "198.51.100.1, 10.1.2.3", "", "198.51.100.1", 0},
		{"real ip header", "127.0.0.1:80", "", "198.51.100.7", "198.51.100.7", 0},
		{"invalid forwarded value", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1", 1},
		{"unparseable remote addr", "garbage", "198.51.100.1", "", "garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(nil)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP = %q, want %q", got, tt.want)
			}
			if got := d.GetMetrics().InvalidIPAttempts; got != tt.invalid {
				t.Errorf("InvalidIPAttempts = %d, want %d", got, tt.invalid)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector(nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "100.64.0.5:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	if got := d.ExtractClientIP(req); got != "100.64.0.5" {
		t.Fatalf("untrusted proxy should not be honoured, got %q", got)
	}
	if err := d.AddTrustedProxy("100.64.0.0/10"); err != nil {
		t.Fatal(err)
	}
	if got := d.ExtractClientIP(req); got != "198.51.100.1" {
		t.Fatalf("trusted proxy should be honoured, got %q", got)
	}
	if err := d.AddTrustedProxy("nope"); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
}
