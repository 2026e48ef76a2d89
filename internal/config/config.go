package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"trivia-platform"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres  Postgres
	Redis     Redis
	Security  Security
	Questions Questions
	Lobby     Lobby
	Match     Match
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds lock + cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
}

// Questions configures the provisioning pipeline.
type Questions struct {
	ServiceURL   string        `env:"QUESTION_SERVICE_URL"`
	ServiceKey   string        `env:"QUESTION_SERVICE_API_KEY"`
	FetchTimeout time.Duration `env:"QUESTION_FETCH_TIMEOUT" envDefault:"4s"`
}

// Lobby groups lobby coordination settings. Feature values are injected into
// services at construction rather than read from the environment per call.
type Lobby struct {
	CashMatchesEnabled bool          `env:"CASH_MATCHES_ENABLED" envDefault:"true"`
	LockTTL            time.Duration `env:"LOBBY_LOCK_TTL" envDefault:"10s"`
	LockWaitTimeout    time.Duration `env:"LOBBY_LOCK_WAIT_TIMEOUT" envDefault:"3s"`
}

// Match groups per-match round settings.
type Match struct {
	MaxRounds int `env:"MATCH_MAX_ROUNDS" envDefault:"10"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
