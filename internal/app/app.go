// Package app assembles the coaching service from its parts: configuration,
// logging, database, provider adapter, tool executor, coach and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akgolf/aicoach/db"
	"github.com/akgolf/aicoach/internal/api"
	"github.com/akgolf/aicoach/internal/claude"
	"github.com/akgolf/aicoach/internal/coach"
	"github.com/akgolf/aicoach/internal/config"
	"github.com/akgolf/aicoach/internal/conversation"
	"github.com/akgolf/aicoach/internal/log"
	"github.com/akgolf/aicoach/internal/playerdata"
	"github.com/akgolf/aicoach/internal/tools"
)

// Server timeouts. Write is generous because the streaming endpoint holds
// the connection open while the model answers.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// App holds the assembled service.
type App struct {
	cfg    *config.Config
	logger log.Logger
	pool   *pgxpool.Pool
	server *api.Server
}

// New wires the service together: runs migrations, connects the pool and
// constructs every component. The caller owns Close.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := log.New(log.Config{Level: parseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	connURL := cfg.DatabaseURL()
	if err := db.Migrate(connURL, logger); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	pool, err := db.Open(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	players, err := playerdata.NewStore(pool, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating player store: %w", err)
	}
	conversations, err := conversation.NewStore(pool, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating conversation store: %w", err)
	}

	client := claude.New(claude.Config{
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	}, logger)
	if !client.Available() {
		logger.Warn("no Anthropic API key configured, coach will answer with its unavailable fallback")
	}

	toolDefs, err := tools.Definitions()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("building tool definitions: %w", err)
	}
	executor := tools.NewExecutor(players, logger)

	aiCoach, err := coach.New(client, executor, players, toolDefs, coach.Config{
		MaxRounds:   cfg.MaxToolRounds,
		Temperature: cfg.Temperature,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating coach: %w", err)
	}

	server, err := api.NewServer(api.ServerConfig{
		Logger:        logger,
		Coach:         aiCoach,
		Conversations: conversations,
		Stream:        client,
		Players:       players,
		ToolDefs:      toolDefs,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating server: %w", err)
	}

	return &App{cfg: cfg, logger: logger, pool: pool, server: server}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.server,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", a.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.pool.Close()
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
