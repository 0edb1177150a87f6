package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"carbook/internal/auth"
	"carbook/internal/config"
	"carbook/internal/domain"
	"carbook/internal/export"
	"carbook/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Services are the collaborators the HTTP API delegates to.
type Services struct {
	Bookings domain.BookingService
	Cars     domain.CarService
	Users    domain.UserService
	Drafts   *service.DraftService
	Auth     *auth.Service
	Exporter *export.Exporter
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// HTTPServer exposes the JSON API of the booking service.
type HTTPServer struct {
	cfg          config.APIConfig
	cookieSecure bool
	svc          Services
	checks       map[string]HealthCheck
	limiter      *rateLimiter
	logger       *zerolog.Logger
	server       *http.Server
}

func NewHTTPServer(cfg config.APIConfig, authCfg config.AuthConfig, svc Services, checks map[string]HealthCheck, logger *zerolog.Logger) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{
		cfg:          cfg,
		cookieSecure: authCfg.CookieSecure,
		svc:          svc,
		checks:       checks,
		limiter:      newRateLimiter(cfg.RateLimit),
		logger:       &base,
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := srv.loggingMiddleware(srv.rateLimitMiddleware(mux))
	handler = newCORS(cfg.CORS).Handler(handler)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/v1/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/logout", s.handleLogout)

	mux.Handle("GET /api/v1/me", s.authed(s.handleGetMe))
	mux.Handle("PUT /api/v1/me", s.authed(s.handleUpdateMe))

	mux.Handle("GET /api/v1/cars", s.authed(s.handleListCars))
	mux.Handle("POST /api/v1/cars", s.authed(s.handleCreateCar))
	mux.Handle("GET /api/v1/cars/{id}", s.authed(s.handleGetCar))
	mux.Handle("PUT /api/v1/cars/{id}", s.authed(s.handleUpdateCar))
	mux.Handle("DELETE /api/v1/cars/{id}", s.authed(s.handleDeleteCar))

	mux.Handle("GET /api/v1/cars/{id}/calendar", s.authed(s.handleCalendar))
	mux.Handle("GET /api/v1/cars/{id}/calendar/resolve", s.authed(s.handleResolveDate))
	mux.Handle("GET /api/v1/cars/{id}/calendar/conflicts", s.authed(s.handleConflicts))
	mux.Handle("GET /api/v1/cars/{id}/export.xlsx", s.authed(s.handleExport))

	mux.Handle("POST /api/v1/cars/{id}/bookings", s.authed(s.handleCreateBooking))
	mux.Handle("GET /api/v1/bookings/{id}", s.authed(s.handleGetBooking))
	mux.Handle("PUT /api/v1/bookings/{id}", s.authed(s.handleUpdateBooking))
	mux.Handle("DELETE /api/v1/bookings/{id}", s.authed(s.handleDeleteBooking))
	mux.Handle("GET /api/v1/bookings/{id}/share", s.authed(s.handleShareBooking))
	mux.Handle("POST /api/v1/bookings/{id}/edit", s.authed(s.handleEditBooking))

	mux.Handle("GET /api/v1/cars/{id}/draft", s.authed(s.handleGetDraft))
	mux.Handle("PUT /api/v1/cars/{id}/draft", s.authed(s.handleUpdateDraft))
	mux.Handle("DELETE /api/v1/cars/{id}/draft", s.authed(s.handleDiscardDraft))
	mux.Handle("POST /api/v1/cars/{id}/draft/reset", s.authed(s.handleResetDraft))
	mux.Handle("POST /api/v1/cars/{id}/draft/submit", s.authed(s.handleSubmitDraft))
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func newCORS(cfg config.APICORSConfig) *cors.Cors {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
}
