package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"contracts/internal/auth"
	"contracts/internal/cache"
	applog "contracts/internal/log"
	"contracts/internal/middleware/ratelimit"
	"contracts/internal/middleware/security"
	"contracts/internal/middleware/trace"
	"contracts/internal/report"
	appweb "contracts/web"
)

// AppTitle heads every page and export.
const AppTitle = "Pulte Contracts App"

// Options configures a Server. Zero values fall back to working defaults.
type Options struct {
	Logger        *applog.Logger
	Authenticator auth.Authenticator
	Sessions      *auth.Sessions
	// LoginAttemptsPerMinute bounds POST /login per client IP.
	LoginAttemptsPerMinute int
	TrustedProxies         []string
	// CacheManager, when set, is stopped with the server.
	CacheManager *cache.Manager
}

// Server serves the contracts report UI.
type Server struct {
	http.Server
	templates *template.Template

	reports  *report.Service
	gate     auth.Authenticator
	sessions *auth.Sessions

	loginLimiter     *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager

	logger     *applog.Logger
	structured *applog.StructuredLogger
	appMetrics *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	startedAt     time.Time
	logins        atomic.Int64
	loginFailures atomic.Int64
	logouts       atomic.Int64
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, reports *report.Service, opts Options) (*Server, error) {
	if reports == nil {
		return nil, errors.New("report service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	gate := opts.Authenticator
	if gate == nil {
		gate = auth.NewStaticPassphrase("")
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = auth.NewSessions(0, 12*time.Hour)
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector(logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates:        t,
		reports:          reports,
		gate:             gate,
		sessions:         sessions,
		loginLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.LoginAttemptsPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		cacheManager:     opts.CacheManager,
		logger:           logger,
		structured:       applog.NewStructuredLogger(logger),
		appMetrics:       &appMetrics{startedAt: time.Now()},
	}

	router, err := s.routes()
	if err != nil {
		s.loginLimiter.Stop()
		return nil, err
	}
	s.Handler = router
	return s, nil
}

func (s *Server) routes() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(
		s.traceMiddleware.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.securityDetector.Middleware,
	)

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static)).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	r.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	app := r.NewRoute().Subrouter()
	app.Use(s.requireSession, security.NoStore)
	app.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	app.HandleFunc("/ui/series", s.handleSeriesOptions).Methods(http.MethodGet)
	app.HandleFunc("/table", s.handleTable).Methods(http.MethodGet)
	app.HandleFunc("/export/{format}", s.handleExport).Methods(http.MethodGet)
	app.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)

	return r, nil
}

// Shutdown gracefully stops the HTTP server, then the login limiter and the
// cache sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
		err = s.Server.Shutdown(ctx)
		s.loginLimiter.Stop()
		if s.cacheManager != nil {
			s.cacheManager.Stop(ctx)
		}
	})
	return err
}
