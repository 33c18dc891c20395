package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wrale/friendsweep/cmd/friendsweep/handlers/auth"
	friendsapi "github.com/wrale/friendsweep/cmd/friendsweep/handlers/friends"
	"github.com/wrale/friendsweep/cmd/friendsweep/handlers/health"
	"github.com/wrale/friendsweep/internal/logger"
)

// requestTimeout bounds every route except verification, which may poll
// for as long as the device code lives
const requestTimeout = 30 * time.Second

// Coordinator is what the routes need from the friends coordinator
type Coordinator interface {
	friendsapi.Coordinator
	auth.Logouter
}

// dependencies are the assembled components the routes are built on
type dependencies struct {
	flow        auth.Flow
	sessions    auth.Sessions
	coordinator Coordinator
	health      []health.Component
	metrics     http.Handler
	logger      *slog.Logger
}

type server struct {
	cfg     Config
	router  *chi.Mux
	auth    *auth.Handler
	friends *friendsapi.Handler
	health  *health.Handler
	metrics http.Handler
	logger  *slog.Logger
}

func newServer(cfg Config, deps dependencies) *server {
	srv := &server{
		cfg:    cfg,
		router: chi.NewRouter(),
		auth: auth.New(auth.Config{
			Flow:         deps.flow,
			Sessions:     deps.sessions,
			Logouter:     deps.coordinator,
			CookieSecure: cfg.CookieSecure,
			Logger:       deps.logger,
		}),
		friends: friendsapi.New(deps.coordinator, deps.logger),
		health:  health.New(deps.health...).WithVersion(Version),
		metrics: deps.metrics,
		logger:  deps.logger,
	}

	// Set up middleware
	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(logger.Middleware(deps.logger))
	srv.router.Use(middleware.Recoverer)

	// Register routes
	srv.routes()

	return srv
}

func (s *server) routes() {
	s.router.Method(http.MethodGet, "/health", s.health)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/verify", s.auth.Verify)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Post("/auth/device-code", s.auth.DeviceCode)
			r.Get("/auth/session", s.auth.Session)
			r.Post("/auth/logout", s.auth.Logout)

			r.Get("/friends", s.friends.List)
			r.Delete("/friends/remove", s.friends.Remove)
			r.Get("/friends/history", s.friends.History)
			r.Post("/friends/history/{id}/restore", s.friends.Restore)
		})
	})
}

func (s *server) httpServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
}
