// Package api serves the dashboards, scoring, sync, OAuth and webhook
// endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/analytics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/auth"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/metrics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/syncer"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/webhook"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/pkg/trackerrms"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 10 << 20

// Deps are the collaborators of the HTTP server. Auth, Verifier and Launcher
// may be nil; the routes that need them then answer 503.
type Deps struct {
	Engine         *analytics.Engine
	Source         trackerrms.Client
	Auth           *auth.Manager
	Verifier       *webhook.Verifier
	Launcher       *syncer.Launcher
	Metrics        *metrics.Manager
	AllowedOrigins []string
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	router chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	if deps.Engine == nil {
		deps.Engine = analytics.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	s := &Server{deps: deps}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard/{report}", s.dashboard)
		r.Post("/score", s.score)
		r.Post("/sync", s.startSync)
		r.Get("/sync/status", s.syncStatus)
	})

	r.Get("/oauth/authorize", s.authorize)
	r.Get("/oauth/callback", s.callback)
	r.Post("/webhooks/hubspot", s.hubspotWebhook)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// observe logs each request and records its latency by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		s.deps.Metrics.ObserveHTTP(route, r.Method, status, d)

		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", d),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
