// Package api exposes the HTTP surface: JSON route handlers under
// /api/v1 behind the tenant, rate limit, and auth middlewares, with
// health and metrics served on a separate port.
package api

import (
	"context"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/auth"
	"github.com/crewdesk/crewdesk/pkg/calendar"
	"github.com/crewdesk/crewdesk/pkg/config"
	"github.com/crewdesk/crewdesk/pkg/departments"
	"github.com/crewdesk/crewdesk/pkg/kvp"
	"github.com/crewdesk/crewdesk/pkg/middleware"
	"github.com/crewdesk/crewdesk/pkg/notifications"
	"github.com/crewdesk/crewdesk/pkg/observability"
	"github.com/crewdesk/crewdesk/pkg/shifts"
	"github.com/crewdesk/crewdesk/pkg/surveys"
	"github.com/crewdesk/crewdesk/pkg/tenants"
	"github.com/crewdesk/crewdesk/pkg/users"
)

// Deps bundles everything the handlers need. Resolver, Limiter,
// Metrics and Health are optional; nil disables the concern.
type Deps struct {
	Auth          *auth.Service
	Tenants       *tenants.Store
	Users         *users.Store
	Departments   *departments.Store
	KVP           *kvp.Store
	Calendar      *calendar.Store
	Surveys       *surveys.Store
	Notifications *notifications.Store
	Shifts        *shifts.Store
	Audit         audit.Logger
	AuditLog      *audit.DBLogger

	Resolver *middleware.TenantResolver
	Limiter  *middleware.RateLimiter
	Metrics  *observability.Metrics
	Health   *observability.HealthChecker
	Log      *observability.Logger
}

// Server is the HTTP front of the application.
type Server struct {
	cfg  *config.Config
	deps Deps
	log  *observability.Logger

	httpServer   *http.Server
	healthServer *http.Server
}

// NewServer wires the route tree.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		log:  deps.Log.WithField("component", "api"),
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	s.healthServer = &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: s.healthRoutes(),
	}
	return s
}

// Routes builds the application router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.HTTPMiddleware)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	if s.deps.Resolver != nil {
		api.Use(s.deps.Resolver.Middleware)
	}
	if s.deps.Limiter != nil {
		api.Use(s.deps.Limiter.Middleware)
	}

	// Public routes: credentials in, tokens out.
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	priv := api.PathPrefix("/").Subrouter()
	priv.Use(middleware.Auth(s.deps.Auth))
	priv.Use(s.tenantGuard)

	s.registerAuthRoutes(priv)
	s.registerTenantRoutes(priv)
	s.registerUserRoutes(priv)
	s.registerDepartmentRoutes(priv)
	s.registerKVPRoutes(priv)
	s.registerCalendarRoutes(priv)
	s.registerSurveyRoutes(priv)
	s.registerNotificationRoutes(priv)
	s.registerShiftRoutes(priv)
	s.registerAuditRoutes(priv)

	return r
}

// healthRoutes serves the probe and metrics endpoints on the side port
// so they never traverse tenant or auth middleware.
func (s *Server) healthRoutes() http.Handler {
	r := mux.NewRouter()
	if s.deps.Health != nil {
		r.HandleFunc("/healthz", s.deps.Health.Liveness).Methods(http.MethodGet)
		r.HandleFunc("/readyz", s.deps.Health.Readiness).Methods(http.MethodGet)
	}
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

// tenantGuard rejects authenticated requests whose principal belongs to
// a different tenant than the one the request was addressed to. Root is
// tenant-transcendent and exempt.
func (s *Server) tenantGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := middleware.Principal(r.Context())
		t := middleware.Tenant(r.Context())
		if p != nil && t != nil && !p.IsRoot() && p.TenantID != t.ID {
			// A foreign tenant's URL space looks empty, not forbidden.
			w.WriteHeader(http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start runs the application and health listeners until Shutdown.
func (s *Server) Start() error {
	errCh := make(chan error, 2)
	go func() {
		s.log.WithField("addr", s.healthServer.Addr).Info("health server listening")
		if err := s.healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.log.WithField("addr", s.httpServer.Addr).Info("api server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// Shutdown drains both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.healthServer.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("health server shutdown")
	}
	return s.httpServer.Shutdown(ctx)
}
