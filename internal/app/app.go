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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/triviaclash/platform/internal/auth/jwt"
	"github.com/triviaclash/platform/internal/config"
	"github.com/triviaclash/platform/internal/db/repository"
	"github.com/triviaclash/platform/internal/lobby"
	"github.com/triviaclash/platform/internal/logging"
	"github.com/triviaclash/platform/internal/match"
	"github.com/triviaclash/platform/internal/question"
	"github.com/triviaclash/platform/internal/question/external"
	"github.com/triviaclash/platform/internal/server"
	"github.com/triviaclash/platform/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
}

// New bootstraps config, logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be configured")
	}
	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Name,
	})

	lobbyRepo := repository.NewLobbyRepository(pool)
	matchQuestionRepo := repository.NewMatchQuestionRepository(pool)

	// Provisioning chain: remote service, bundled bank, in-memory last resort.
	providers := make([]question.Provider, 0, 3)
	if cfg.Questions.ServiceURL != "" {
		remoteClient := external.NewQuestionServiceClient(
			cfg.Questions.ServiceURL,
			cfg.Questions.ServiceKey,
			&http.Client{Timeout: cfg.Questions.FetchTimeout + time.Second},
		)
		providers = append(providers, question.NewRemoteProvider(remoteClient, cfg.Questions.FetchTimeout))
	} else {
		logger.Warn().Msg("question service not configured; starting from the offline tier")
	}

	bank, err := question.LoadBundled()
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	providers = append(providers,
		question.NewOfflineProvider(bank),
		question.NewMemoryProvider(question.DefaultMemoryPool()),
	)

	questionSvc := question.NewService(providers, logger)

	wsHub := ws.NewHub(logger)
	feed := lobby.NewFeedPublisher(wsHub)
	locker := lobby.NewRedisLocker(redisClient, cfg.Lobby.LockTTL, cfg.Lobby.LockWaitTimeout)

	coordinator := lobby.NewCoordinator(lobbyRepo, locker, feed, lobby.CoordinatorOptions{
		CashMatchesEnabled: cfg.Lobby.CashMatchesEnabled,
	}, logger)

	matchSvc := match.NewService(matchQuestionRepo, questionSvc, cfg.Match.MaxRounds, logger)

	lobbyHandlers := lobby.NewHTTPHandlers(coordinator, logger)
	matchHandlers := match.NewHTTPHandlers(matchSvc, logger)
	lobbyWS := lobby.NewWSHandler(wsHub, tokens, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, tokens, lobbyHandlers, matchHandlers, lobbyWS)

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

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

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
