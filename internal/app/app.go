package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-engine/internal/auth/jwt"
	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/config"
	"github.com/gokatarajesh/trivia-engine/internal/db/pg"
	"github.com/gokatarajesh/trivia-engine/internal/db/repository"
	"github.com/gokatarajesh/trivia-engine/internal/game"
	"github.com/gokatarajesh/trivia-engine/internal/logging"
	"github.com/gokatarajesh/trivia-engine/internal/metrics"
	"github.com/gokatarajesh/trivia-engine/internal/server"
	"github.com/gokatarajesh/trivia-engine/internal/stats"
	ws "github.com/gokatarajesh/trivia-engine/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	sessions  *game.Service
	bgCancels []context.CancelFunc
	bgDone    []chan struct{}
}

// Connect opens the Postgres pool and the Redis client described by cfg.
func Connect(ctx context.Context, cfg *config.App) (*pgxpool.Pool, *redis.Client, error) {
	connString := fmt.Sprintf("%s pool_max_conns=%d", cfg.Postgres.DSN(), cfg.Postgres.MaxConns)
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	return pool, redisClient, nil
}

// NewCatalog builds the package catalog over Postgres with the Redis cache in front.
func NewCatalog(pool *pgxpool.Pool, redisClient *redis.Client, cfg *config.App, logger zerolog.Logger) *catalog.Service {
	repo := repository.NewPackageRepository(pg.NewStore(pool))
	cache := catalog.NewCache(redisClient, cfg.Cache.PackageTTL)
	return catalog.NewService(repo, cache, logger)
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, redisClient, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	catalogSvc := NewCatalog(pool, redisClient, cfg, logger)
	statsSvc := stats.NewService(redisClient, logger, stats.ServiceOptions{TopN: cfg.Stats.TopN})
	sessionMetrics := metrics.New(prometheus.DefaultRegisterer)
	wsHub := ws.NewHub(logger)

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.SessionTokenSecret),
		TTL:    cfg.Security.SessionTokenTTL,
		Issuer: cfg.Name,
	})

	sessions := game.NewService(
		catalogSvc,
		wsHub,
		game.NewRedisSnapshots(redisClient, cfg.Runtime.SnapshotTTL, logger),
		statsSvc,
		tokens,
		game.ServiceOptions{
			Cooldown:      cfg.Runtime.QuizCooldown,
			MaxSessions:   cfg.Runtime.MaxSessions,
			IdleTimeout:   cfg.Runtime.SessionIdleTimeout,
			SweepInterval: cfg.Runtime.SessionSweepInterval,
			Metrics:       sessionMetrics,
		},
		logger,
	)

	wsHandler := game.NewHandler(sessions, wsHub, tokens, logger)
	httpHandlers := game.NewHTTPHandlers(sessions, catalogSvc, statsSvc, game.Defaults{
		TotalQuestions: cfg.Runtime.DefaultQuestionCount,
		TimeLimit:      int(cfg.Runtime.DefaultQuestionSeconds / time.Second),
	}, logger)

	deps := []server.Pinger{
		pool,
		server.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	}
	apiServer := server.NewHTTPServer(cfg, logger, deps, server.Routes{
		ListPackages:  httpHandlers.ListPackages,
		GetPackage:    httpHandlers.GetPackage,
		PackageStats:  httpHandlers.PackageStats,
		CreateQuiz:    httpHandlers.CreateQuiz,
		CreateTest:    httpHandlers.CreateTest,
		GetSession:    httpHandlers.GetSession,
		CloseSession:  httpHandlers.CloseSession,
		SessionSocket: wsHandler.HandleWebSocket,
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		sessions:  sessions,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	// Stop the session worker first so queued writes reach Redis and Postgres.
	for _, cancel := range a.bgCancels {
		cancel()
	}
	for _, done := range a.bgDone {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			a.logger.Warn().Msg("background worker did not stop in time")
		}
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.bgCancels = append(a.bgCancels, cancel)
	a.bgDone = append(a.bgDone, done)
	go func() {
		defer close(done)
		if err := a.sessions.Run(bgCtx); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("session worker stopped")
		}
	}()
}
