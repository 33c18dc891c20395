// Package main runs the friendsweep HTTP service
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/wrale/friendsweep/cmd/friendsweep/handlers/health"
	"github.com/wrale/friendsweep/internal/deviceflow"
	"github.com/wrale/friendsweep/internal/friends"
	"github.com/wrale/friendsweep/internal/history"
	"github.com/wrale/friendsweep/internal/logger"
	"github.com/wrale/friendsweep/internal/metrics"
	"github.com/wrale/friendsweep/internal/platform"
	"github.com/wrale/friendsweep/internal/session"
)

// Version is set by the build process
var Version = "dev"

// startupTimeout bounds connecting to Redis and Postgres
const startupTimeout = 5 * time.Second

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, "friendsweep", cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	client, err := platform.NewClient(cfg.platformConfig(),
		platform.WithLogger(log),
		platform.WithRevokeFailureHook(func(ctx context.Context, err error) {
			log.WarnContext(ctx, "failed to kill platform session", slog.String("error", err.Error()))
			collector.ObserveRevokeFailure(ctx, err)
		}),
	)
	if err != nil {
		return fmt.Errorf("creating platform client: %w", err)
	}

	flow := deviceflow.NewFlow(client,
		deviceflow.WithPollInterval(cfg.PollInterval),
		deviceflow.WithMaxPollDuration(cfg.PollTimeout),
		deviceflow.WithLogger(log),
		deviceflow.WithMetrics(collector),
	)

	sessionStore, closeSessions, err := openSessionStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	historyStore, closeHistory, err := openHistoryStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeHistory()

	sessions := session.NewManager(sessionStore, session.WithLogger(log))
	coordinator := friends.NewCoordinator(sessions, client, historyStore,
		friends.WithLogger(log),
		friends.WithMetrics(collector),
		friends.WithConcurrency(cfg.RemoveConcurrency),
	)

	srv := newServer(cfg, dependencies{
		flow:        flow,
		sessions:    sessions,
		coordinator: coordinator,
		health: []health.Component{
			{Name: "sessions", Checker: sessionStore},
			{Name: "history", Checker: historyStore},
		},
		metrics: metrics.Handler(reg),
		logger:  log,
	})
	httpServer := srv.httpServer()

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info("server listening", slog.Int("port", cfg.Port), slog.String("version", Version))
		serverErrors <- httpServer.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("starting server: %w", err)

	case sig := <-shutdown:
		log.Info("starting shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", slog.String("error", err.Error()))
			if err := httpServer.Close(); err != nil {
				log.Error("closing server", slog.String("error", err.Error()))
			}
		}
	}

	return nil
}

// openSessionStore selects the session backend named by SESSION_STORE
func openSessionStore(cfg Config, log *slog.Logger) (session.Store, func(), error) {
	if cfg.SessionStore != storeRedis {
		log.Info("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing Redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			log.Error("closing Redis connection", slog.String("error", err.Error()))
		}
	}
	return session.NewRedisStore(redisClient, cfg.SessionRetention), closeFn, nil
}

// openHistoryStore uses Postgres when DATABASE_URL is set, migrating the
// schema first, and memory otherwise
func openHistoryStore(cfg Config, log *slog.Logger) (history.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, removal history will not survive restarts")
		return history.NewMemoryStore(), func() {}, nil
	}

	if err := history.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("creating database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	return history.NewPostgresStore(pool), pool.Close, nil
}
