package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"contracts/internal/core"
	"contracts/internal/export"
	applog "contracts/internal/log"
	"contracts/internal/report"
)

// User-facing messages. Details stay in the logs.
const (
	msgLoadFailed     = "Error loading data. Please try again later."
	msgBuildFailed    = "An error occurred while creating the table."
	msgEmptySelection = "Select a community and a series."
	msgUnknownFormat  = "Unknown export format."
)

type pageData struct {
	Title         string
	Authenticated bool
	Warning       string
	Error         string

	Source      string
	LoadedAt    time.Time
	Communities []string
	Series      []string
	Selection   core.Selection
	Report      *reportView
}

type reportView struct {
	Selection core.Selection
	Table     core.FormattedTable
	Matched   int
	Total     string
	Empty     bool
	Exports   []exportLink
}

type exportLink struct {
	URL   string
	Label string
}

func newReportView(res report.Result) *reportView {
	q := selectionQuery(res.Selection)
	return &reportView{
		Selection: res.Selection,
		Table:     res.Table,
		Matched:   res.Matched,
		Total:     core.FormatAmount(res.Pivot.Total()),
		Empty:     res.Pivot.IsEmpty(),
		Exports: []exportLink{
			{URL: "/export/" + string(export.FormatXLSX) + "?" + q, Label: "Export to Excel"},
			{URL: "/export/" + string(export.FormatPDF) + "?" + q, Label: "Export to PDF"},
		},
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.startedAt).String(),
	})
}

// handleReady reports ready only when templates are parsed and the dataset
// can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	ds, err := s.reports.Dataset(ctx)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed",
			applog.FieldOperation, applog.OpLoad,
			applog.FieldError, err)
		checks["dataset"] = map[string]any{"status": "failed", "source": s.reports.Source()}
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["dataset"] = map[string]any{
			"status":    "ok",
			"source":    ds.Source,
			"rows":      ds.Len(),
			"loaded_at": ds.LoadedAt.UTC().Format(time.RFC3339),
		}
	}

	checks["sessions"] = map[string]any{"active": s.sessions.Active(), "status": "ok"}
	checks["rate_limiter"] = map[string]any{"active_clients": s.loginLimiter.ActiveClients(), "status": "ok"}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.loginLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	stats := s.reports.Stats()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "HTTP responses with status 5xx", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	metric("dataset_loads_total", "counter", "Dataset loads from the source", stats.Loads)
	metric("dataset_load_errors_total", "counter", "Failed dataset loads", stats.LoadErrors)
	metric("dataset_cache_hits_total", "counter", "Dataset requests served from cache", stats.CacheHits)
	metric("tables_built_total", "counter", "Contract tables built", stats.Builds)
	metric("exports_total", "counter", "Exports generated", stats.Exports)
	metric("logins_total", "counter", "Successful logins", s.appMetrics.logins.Load())
	metric("login_failures_total", "counter", "Rejected passphrases", s.appMetrics.loginFailures.Load())
	metric("logouts_total", "counter", "Explicit logouts", s.appMetrics.logouts.Load())
	metric("sessions_active", "gauge", "Live sessions", s.sessions.Active())
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("invalid_forwarded_ip_total", "counter", "Forwarded headers carrying invalid IPs", securityMetrics.InvalidIPAttempts)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.startedAt).Seconds()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := s.newPage(true)
	data.Selection = ParseSelection(r.URL.Query())

	ds, err := s.reports.Dataset(ctx)
	if err != nil {
		s.logFailure(ctx, "Failed to load communities", err, applog.OpLoad)
		data.Error = userMessage(err)
		s.render(w, r, http.StatusOK, "index.html", data)
		return
	}
	data.Source = ds.Source
	data.LoadedAt = ds.LoadedAt
	data.Communities = ds.Communities()

	if data.Selection.Community == "" && len(data.Communities) > 0 {
		data.Selection.Community = data.Communities[0]
	}
	data.Series = ds.SeriesFor(data.Selection.Community)

	// Without htmx the form submits back here with both values set.
	if data.Selection.Validate() == nil && r.URL.Query().Has("series") {
		res, err := s.reports.Build(ctx, data.Selection.Community, data.Selection.Series)
		if err != nil {
			s.logFailure(ctx, "Failed to build table", err, applog.OpPivot)
			data.Error = userMessage(err)
		} else {
			data.Report = newReportView(res)
		}
	}

	s.render(w, r, http.StatusOK, "index.html", data)
}

// handleSeriesOptions renders the <option> list for the chosen community.
func (s *Server) handleSeriesOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel := ParseSelection(r.URL.Query())

	series, err := s.reports.SeriesFor(ctx, sel.Community)
	if err != nil {
		s.logFailure(ctx, "Failed to list series", err, applog.OpLoad)
		s.writeError(w, err)
		return
	}
	s.render(w, r, http.StatusOK, "series-options", pageData{Series: series, Selection: sel})
}

// handleTable is the "Create Table" action. It renders the table fragment;
// full-page rendering goes through handleIndex.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel := ParseSelection(r.URL.Query())

	res, err := s.reports.Build(ctx, sel.Community, sel.Series)
	if err != nil {
		s.logFailure(ctx, "Failed to build table", err, applog.OpPivot)
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "report-table", newReportView(res)); err != nil {
		s.renderFailed(w, r, "report-table", err)
		return
	}
	NewHTMXResponse().
		TriggerTableBuilt(sel.Community, sel.Series).
		BodyHTML(buf.String()).
		Write(w)
}

// handleExport streams the table as an attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	format, err := export.ParseFormat(mux.Vars(r)["format"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	sel := ParseSelection(r.URL.Query())

	art, err := s.reports.Export(ctx, sel.Community, sel.Series, format)
	if err != nil {
		s.logFailure(ctx, "Failed to export table", err, applog.OpExport)
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

// handleRefresh drops the cached dataset and loads it again.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ds, err := s.reports.Refresh(ctx)
	if err != nil {
		s.logFailure(ctx, "Failed to refresh dataset", err, applog.OpRefresh)
		if !isHTMX(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		errorResponse(err).TriggerErrorNotification(msgLoadFailed).Write(w)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var buf bytes.Buffer
	view := struct {
		Source   string
		Rows     int
		LoadedAt time.Time
	}{ds.Source, ds.Len(), ds.LoadedAt}
	if err := s.templates.ExecuteTemplate(&buf, "refresh-status", view); err != nil {
		s.renderFailed(w, r, "refresh-status", err)
		return
	}
	NewHTMXResponse().
		TriggerDatasetRefreshed(ds.Len(), ds.LoadedAt).
		TriggerSuccessNotification("Data reloaded").
		BodyHTML(buf.String()).
		Write(w)
}

// errorResponse maps pipeline errors onto status codes and safe messages.
func errorResponse(err error) *HTMXResponseBuilder {
	switch {
	case errors.Is(err, core.ErrEmptySelection):
		return BadRequestError(msgEmptySelection)
	case errors.Is(err, export.ErrUnsupportedFormat):
		return NotFoundError(msgUnknownFormat)
	case errors.Is(err, report.ErrSourceUnavailable):
		return BadGatewayError(msgLoadFailed)
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, msgLoadFailed)
	default:
		return InternalServerError(msgBuildFailed)
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, report.ErrSourceUnavailable), errors.Is(err, context.DeadlineExceeded):
		return msgLoadFailed
	case errors.Is(err, core.ErrEmptySelection):
		return msgEmptySelection
	default:
		return msgBuildFailed
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	errorResponse(err).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
