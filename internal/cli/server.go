package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"abbrev-quiz-service/internal/app"
	"abbrev-quiz-service/internal/config"
	"abbrev-quiz-service/internal/infra/memory"
	"abbrev-quiz-service/internal/infra/postgres"
	redisstore "abbrev-quiz-service/internal/infra/redis"
	"abbrev-quiz-service/internal/infra/sqlite"
	"abbrev-quiz-service/internal/scheduler"
	transport "abbrev-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return cfg, err
	}
	if !found {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
	}
	applyConfigLogLevel(cfg.Log.Level)
	return cfg, nil
}

// runtime holds the wired service and whatever must be closed with it.
type runtime struct {
	service *app.GameService
	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// buildRuntime picks the backing stores from the config: Redis when an
// address is set, Postgres for the question pool when a URL is set, SQLite
// for player data when a path is set, memory otherwise.
func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}

	var loader memory.PoolLoader = memory.NewEmbeddedPoolLoader()
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			rt.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		loader = postgres.NewPoolLoader(pool)
	}

	poolTTL := config.TTLDuration(cfg.Pool.TTL, 10*time.Minute)
	var pools app.PoolRepository
	var sessions app.SessionRepository
	if redisClient != nil {
		pools = redisstore.NewPoolRepository(redisClient, loader, poolTTL)
		sessions = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		pools = memory.NewPoolRepository(loader, poolTTL)
		sessions = memory.NewSessionStore()
	}

	var kv app.KeyValueStore
	switch {
	case redisClient != nil:
		kv = redisstore.NewKVStore(redisClient)
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = store.Close() })
		kv = store
	default:
		kv = memory.NewKVStore()
	}

	rt.service = app.NewGameService(sessions, pools, kv, app.WithRules(cfg.Rules()))
	return rt, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Fail fast on a broken question source.
	if _, err := rt.service.Categories(ctx); err != nil {
		return err
	}

	janitor := scheduler.NewJanitor(rt.service,
		config.TTLDuration(cfg.Sessions.SweepInterval, time.Minute),
		config.TTLDuration(cfg.Sessions.IdleTTL, 30*time.Minute))
	if err := janitor.Start(); err != nil {
		return err
	}
	defer janitor.Stop()

	srv := transport.NewServer(rt.service, transport.NewWSHandler(rt.service))
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting abbreviation quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
