package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"contracts/internal/core"
	applog "contracts/internal/log"
	"contracts/internal/report"
)

func (s *Server) newPage(authenticated bool) pageData {
	return pageData{Title: AppTitle, Authenticated: authenticated}
}

// render executes a template into a buffer first so a failing template never
// leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.renderFailed(w, r, name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
		applog.FieldComponent, applog.ComponentTemplate,
		applog.FieldOperation, applog.OpRender,
		"template", name,
		applog.FieldError, err)
	InternalServerError(msgBuildFailed).Write(w)
}

// logFailure logs at warn for caller mistakes and error for everything else.
func (s *Server) logFailure(ctx context.Context, msg string, err error, op string) {
	logger := applog.FromContext(ctx)
	fields := applog.NewFields().WithOperation(op).WithError(err)
	switch {
	case errors.Is(err, core.ErrEmptySelection), errors.Is(err, context.Canceled):
		fields["error_type"] = applog.ErrorTypeValidation
		logger.WarnContext(ctx, msg, fields.ToSlice()...)
	case errors.Is(err, report.ErrSourceUnavailable):
		fields["error_type"] = applog.ErrorTypeSource
		logger.ErrorContext(ctx, msg, fields.ToSlice()...)
	default:
		fields["error_type"] = applog.ErrorTypeInternal
		logger.ErrorContext(ctx, msg, fields.ToSlice()...)
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds()) + 1
	return strconv.Itoa(secs)
}
