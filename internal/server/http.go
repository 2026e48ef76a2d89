package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/triviaclash/platform/internal/auth"
	"github.com/triviaclash/platform/internal/auth/jwt"
	"github.com/triviaclash/platform/internal/config"
	"github.com/triviaclash/platform/internal/lobby"
	"github.com/triviaclash/platform/internal/logging"
	"github.com/triviaclash/platform/internal/match"
)

// NewHTTPServer wires all routes for the API service.
func NewHTTPServer(
	cfg *config.App,
	logger zerolog.Logger,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	tokens *jwt.Manager,
	lobbyHandlers *lobby.HTTPHandlers,
	matchHandlers *match.HTTPHandlers,
	lobbyWS *lobby.WSHandler,
) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, pool, redisClient); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Lobby endpoints (authenticated)
	mux.Handle("POST /v1/lobbies", auth.RequireAuth(http.HandlerFunc(lobbyHandlers.Create)))
	mux.Handle("POST /v1/lobbies/{lobbyID}/join", auth.RequireAuth(http.HandlerFunc(lobbyHandlers.Join)))
	mux.Handle("POST /v1/lobbies/{lobbyID}/ready", auth.RequireAuth(http.HandlerFunc(lobbyHandlers.ReadyUp)))
	mux.Handle("POST /v1/lobbies/{lobbyID}/leave", auth.RequireAuth(http.HandlerFunc(lobbyHandlers.Leave)))

	// Round question endpoints
	mux.HandleFunc("GET /v1/matches/{matchID}/rounds/{roundNo}/question", matchHandlers.RoundQuestion)
	mux.Handle("POST /v1/matches/{matchID}/rounds/{roundNo}/generate", auth.RequireAuth(http.HandlerFunc(matchHandlers.GenerateRound)))

	// Lobby event feed
	mux.HandleFunc("GET /ws/lobbies", lobbyWS.HandleWebSocket)

	var handler http.Handler = mux
	handler = auth.Middleware(tokens, logger)(handler)
	handler = Recoverer(logger)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redisClient *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
