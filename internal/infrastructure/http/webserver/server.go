// Package webserver provides the web frontend HTTP server implementation
package webserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/infrastructure/config"
	"github.com/tastyfood/web/internal/infrastructure/http/middleware"
	"github.com/tastyfood/web/internal/infrastructure/monitoring"
	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
	"github.com/tastyfood/web/pkg/healthcheck"
)

// WebServer represents the web frontend HTTP server
type WebServer struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	router   *chi.Mux
	sessions *SessionStore
	editor   inbound.EditorService
	metrics  *monitoring.Metrics
	health   *healthcheck.HealthCheck
}

// NewWebServer creates a new web frontend server instance. metrics may be nil
// when monitoring.enable_metrics is off.
func NewWebServer(
	cfg *config.Config,
	log *zap.Logger,
	sessions *SessionStore,
	editor inbound.EditorService,
	metrics *monitoring.Metrics,
	health *healthcheck.HealthCheck,
) *WebServer {
	server := &WebServer{
		config:   cfg,
		logger:   log.Named("webserver"),
		sessions: sessions,
		editor:   editor,
		metrics:  metrics,
		health:   health,
	}

	server.router = server.setupRoutes()
	server.server = &http.Server{
		Addr:           cfg.Server.Address(),
		Handler:        otelhttp.NewHandler(server.router, "web"),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return server
}

// Handler returns the routed handler, for tests and embedding
func (s *WebServer) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the web frontend routes
func (s *WebServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger, s.config.Monitoring.HealthCheckPath))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Security(s.config.IsProduction()))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Get(s.config.Monitoring.HealthCheckPath, s.health.Handler())
	r.Get("/live", s.health.LivenessHandler())
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.With(s.rateLimitMiddleware).Post("/generate", s.handleGenerate)
		r.Get("/me", s.handleMe)

		r.Route("/draft", func(r chi.Router) {
			r.Get("/", s.handleLoadDraft)
			r.Delete("/", s.handleResetDraft)
			r.Post("/ingredients", s.handleAddIngredient)
			r.Post("/instructions", s.handleAddInstruction)
			r.Post("/tags", s.handleAddTag)
			r.Put("/{kind}/{index}", s.handleEditItem)
			r.Delete("/{kind}/{index}", s.handleDeleteItem)
			r.Post("/cover", s.handleUploadCover)
			r.Post("/submit", s.handleSubmit)
		})
	})

	return r
}

// Start starts the web frontend HTTP server
func (s *WebServer) Start() error {
	s.logger.Info("Starting Web Frontend server",
		zap.String("address", s.server.Addr),
		zap.String("backend", s.config.Backend.BaseURL),
		zap.String("staging", s.config.Staging.Driver),
	)

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the web server
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down Web Frontend server...")
	s.sessions.Close()
	return s.server.Shutdown(ctx)
}

// Middleware

// sessionMiddleware attaches the browser session, creating one when the
// cookie is missing or stale, and forwards the backend session cookie.
func (s *WebServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(r)
		if !ok {
			sess = s.sessions.New()
			s.sessions.Save(w, sess)
		}

		ctx := withSession(r.Context(), sess)
		if cookie, err := r.Cookie(s.config.Session.BackendCookieName); err == nil && cookie.Value != "" {
			ctx = outbound.WithBackendSession(ctx, cookie.Value)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware limits how often one session may start a generation
func (s *WebServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFrom(r.Context())
		if sess != nil && !sess.Allow() {
			s.logger.Warn("Rate limit exceeded",
				zap.String("session_id", sess.ID),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "60")
			s.writeError(w, r, errTooManyRequests())
			return
		}

		next.ServeHTTP(w, r)
	})
}
