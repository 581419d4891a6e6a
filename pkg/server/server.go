package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"casework-hq/auditexport/pkg/config"
	"casework-hq/auditexport/pkg/security/auth"
	"casework-hq/auditexport/pkg/server/handlers"
	"casework-hq/auditexport/pkg/server/middleware"
	"casework-hq/auditexport/pkg/telemetry/health"
	"casework-hq/auditexport/pkg/telemetry/metrics"
)

// Routes of the service endpoints.
const (
	ExportPath = "/export"
	AuditPath  = "/audit"
)

// BuildInfo is served on /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Dependencies are the components the server routes to.
type Dependencies struct {
	Exporter handlers.Exporter

	// Recorder may be nil, in which case POST /audit is not served.
	Recorder handlers.AuditRecorder

	Health *health.Checker

	// Metrics may be nil, in which case /metrics is not served and requests
	// are only logged.
	Metrics *metrics.Collector

	// Location is the time zone export dates are read in.
	Location *time.Location

	// Auth may be nil, in which case the export and audit endpoints are
	// open.
	Auth *auth.Middleware

	// TLS may be nil, in which case the server speaks plain HTTP.
	TLS *tls.Config

	Build BuildInfo
}

// Server is the HTTP server of the audit export service.
type Server struct {
	config       *config.Config
	deps         Dependencies
	httpServer   *http.Server
	logger       *slog.Logger
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// New creates a server. cfg supplies the server, metrics and health
// sections.
func New(cfg *config.Config, deps Dependencies) *Server {
	if deps.Health == nil {
		deps.Health = health.New(cfg.Telemetry.Health.CheckTimeout)
	}
	return &Server{
		config: cfg,
		deps:   deps,
		logger: slog.Default().With("component", "server"),
	}
}

// Start listens on the configured address and serves until ctx is done or
// the listener fails. On cancellation the server shuts down gracefully and
// Start returns nil.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	sc := s.config.Server
	listener, err := net.Listen("tcp", sc.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", sc.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		TLSConfig:         s.deps.TLS,
		ReadTimeout:       sc.ReadTimeout,
		ReadHeaderTimeout: sc.ReadTimeout,
		WriteTimeout:      sc.WriteTimeout,
		IdleTimeout:       sc.IdleTimeout,
		MaxHeaderBytes:    sc.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.addr = listener.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting export server",
			"address", listener.Addr().String(),
			"tls", s.deps.TLS != nil,
		)
		var err error
		if s.deps.TLS != nil {
			err = s.httpServer.ServeTLS(listener, "", "")
		} else {
			err = s.httpServer.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight exports.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.config.Server.ShutdownTimeout
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("export server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.routes(), "auditexport",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	var recorder middleware.RequestRecorder
	if s.deps.Metrics != nil {
		recorder = s.deps.Metrics
	}

	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(s.logger, recorder))

	exportHandler := s.protect(auth.ScopeExport, handlers.NewExportHandler(s.deps.Exporter, s.deps.Location))
	if rl := s.config.Server.RateLimit; rl.Enabled {
		exportHandler = middleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst).Middleware(exportHandler)
	}
	r.Method(http.MethodGet, ExportPath, exportHandler)

	if s.deps.Recorder != nil {
		var observer handlers.IngestObserver
		if s.deps.Metrics != nil {
			observer = s.deps.Metrics
		}
		r.Method(http.MethodPost, AuditPath, s.protect(auth.ScopeAudit, handlers.NewAuditHandler(s.deps.Recorder, observer)))
	}

	hc := s.config.Telemetry.Health
	r.Get(hc.LivenessPath, s.deps.Health.LivenessHandler())
	r.Head(hc.LivenessPath, s.deps.Health.LivenessHandler())
	r.Get(hc.ReadinessPath, s.deps.Health.ReadinessHandler())
	r.Head(hc.ReadinessPath, s.deps.Health.ReadinessHandler())

	b := s.deps.Build
	r.Get("/version", health.VersionHandler(b.Version, b.Commit, b.BuildTime))

	if mc := s.config.Telemetry.Metrics; mc.Enabled && s.deps.Metrics != nil {
		r.Method(http.MethodGet, mc.Path, s.deps.Metrics.Handler())
	}

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"method not allowed","code":"` + handlers.CodeMethodNotAllowed + `"}` + "\n"))
	})

	return r
}

// protect requires scope on h when authentication is configured.
func (s *Server) protect(scope string, h http.Handler) http.Handler {
	if s.deps.Auth == nil {
		return h
	}
	return s.deps.Auth.Require(scope)(h)
}
