package http

import (
	"net/http"

	applog "contracts/internal/log"
)

// SessionCookieName carries the opaque session token.
const SessionCookieName = "contracts_session"

const (
	msgWrongPassphrase = "Incorrect password. Please enter the correct password to proceed."
	msgTooManyAttempts = "Too many attempts. Please wait a minute and try again."
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.sessionValid(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", s.newPage(false))
}

// handleLogin checks the passphrase. Attempts are limited per client IP and
// the counter is cleared on success.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientIP := s.securityDetector.ExtractClientIP(r)
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentAuth)

	if !s.loginLimiter.Allow(clientIP) {
		logger.WarnContext(ctx, "Login rate limit exceeded",
			applog.FieldClientIP, clientIP,
			applog.FieldOperation, applog.OpLogin)
		page := s.newPage(false)
		page.Warning = msgTooManyAttempts
		w.Header().Set("Retry-After", retryAfterSeconds(s.loginLimiter.RetryAfter(clientIP)))
		s.render(w, r, http.StatusTooManyRequests, "login.html", page)
		return
	}

	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	if !s.gate.Authenticate(r.PostForm.Get("passphrase")) {
		s.appMetrics.loginFailures.Add(1)
		logger.WarnContext(ctx, "Incorrect passphrase",
			applog.FieldClientIP, clientIP,
			applog.FieldOperation, applog.OpLogin,
			"error_type", applog.ErrorTypeAuth)
		page := s.newPage(false)
		page.Warning = msgWrongPassphrase
		s.render(w, r, http.StatusUnauthorized, "login.html", page)
		return
	}

	s.loginLimiter.Reset(clientIP)
	s.appMetrics.logins.Add(1)
	token := s.sessions.Issue()
	http.SetCookie(w, s.sessionCookie(r, token, int(s.sessions.TTL().Seconds())))
	logger.InfoContext(ctx, "Login succeeded",
		applog.FieldClientIP, clientIP,
		applog.FieldOperation, applog.OpLogin)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		s.sessions.Revoke(c.Value)
	}
	s.appMetrics.logouts.Add(1)
	http.SetCookie(w, s.sessionCookie(r, "", -1))
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Logged out",
		applog.FieldComponent, applog.ComponentAuth,
		applog.FieldOperation, applog.OpLogout)

	if isHTMX(r) {
		NewHTMXResponse().Redirect("/login").Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// requireSession lets requests through only with a live session. Browsers
// are sent to the login page; htmx gets a redirect header.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sessionValid(r) {
			next.ServeHTTP(w, r)
			return
		}
		switch {
		case isHTMX(r):
			NewHTMXResponse().Redirect("/login").Status(http.StatusUnauthorized).Write(w)
		case r.Method == http.MethodGet:
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		default:
			http.Error(w, "authentication required", http.StatusUnauthorized)
		}
	})
}

func (s *Server) sessionValid(r *http.Request) bool {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return false
	}
	return s.sessions.Valid(c.Value)
}

func (s *Server) sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}
