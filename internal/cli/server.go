package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"sel-lesson-service/internal/activity"
	"sel-lesson-service/internal/app"
	"sel-lesson-service/internal/config"
	"sel-lesson-service/internal/content"
	"sel-lesson-service/internal/domain"
	"sel-lesson-service/internal/infra/file"
	"sel-lesson-service/internal/infra/memory"
	pgloader "sel-lesson-service/internal/infra/postgres"
	redisinfra "sel-lesson-service/internal/infra/redis"
	"sel-lesson-service/internal/infra/sessionapi"
	"sel-lesson-service/internal/interaction"
	"sel-lesson-service/internal/logger"
	"sel-lesson-service/internal/player"
	transport "sel-lesson-service/internal/transport/http"
)

const defaultConfigPath = "config/config.yaml"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the lesson player server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		return config.Default(), nil
	}
	return cfg, err
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	registry, err := buildRegistry(cfg, pool)
	if err != nil {
		return err
	}

	lessonTTL := config.TTLDuration(cfg.Lessons.TTL, 10*time.Minute)
	var lessons player.LessonRepository
	if redisClient != nil {
		lessons = redisinfra.NewLessonRepository(redisClient, registry, lessonTTL, log)
	} else {
		lessons = memory.NewLessonRepository(registry, lessonTTL)
	}

	var store app.SessionRepository
	var ledger app.CompletionLedger
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
		ledger = redisinfra.NewLedger(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
		ledger = memory.NewLedger()
	}

	sessions, err := buildSessionService(cfg, log)
	if err != nil {
		return err
	}

	service := app.NewPlayerService(store, lessons, app.Options{
		Seed:            cfg.Player.Seed,
		Layout:          interaction.Layout{Narrow: cfg.Player.NarrowLayout},
		ShakeDuration:   config.TTLDuration(cfg.Player.ShakeDuration, interaction.DefaultShakeDuration),
		Games:           activity.DefaultRegistry(activityConfig(cfg)),
		Sessions:        sessions,
		Ledger:          ledger,
		Logger:          log,
		MuteAudio:       cfg.Player.MuteAudio,
		CompleteTimeout: config.TTLDuration(cfg.SessionAPI.Timeout, 10*time.Second),
	})

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterConfig{
			Service:        service,
			Lessons:        lessons,
			Catalog:        registry,
			Logger:         log,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting lesson player", "port", finalPort, "lessons", len(registry.IDs()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildRegistry collects every lesson source: built-in samples, an optional
// lesson directory and, when configured, Postgres. Later sources win.
func buildRegistry(cfg config.Config, pool *pgxpool.Pool) (*memory.Registry, error) {
	registry := memory.NewRegistry()
	if err := content.Register(registry); err != nil {
		return nil, err
	}

	if cfg.Lessons.Dir != "" {
		dir := file.NewLessonLoader(cfg.Lessons.Dir)
		ids, err := dir.IDs()
		if err != nil {
			return nil, fmt.Errorf("lesson dir: %w", err)
		}
		for _, id := range ids {
			registry.Register(id, loaderFor(dir, id))
		}
	}

	if pool != nil {
		pg := pgloader.NewLessonLoader(pool)
		summaries, err := pg.ListLessons(context.Background())
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			registry.Register(s.ID, loaderFor(pg, s.ID))
		}
	}
	return registry, nil
}

type lessonSource interface {
	LoadLesson(ctx context.Context, lessonID string) (domain.LessonDocument, error)
}

func loaderFor(src lessonSource, id string) memory.LoaderFunc {
	return func(ctx context.Context) (domain.LessonDocument, error) {
		return src.LoadLesson(ctx, id)
	}
}

func buildSessionService(cfg config.Config, log *logger.Logger) (player.SessionService, error) {
	if cfg.SessionAPI.BaseURL == "" {
		log.Info("session api not configured, logging session events only")
		return sessionapi.NewLogOnly(log), nil
	}
	return sessionapi.New(log, sessionapi.Config{
		BaseURL:    cfg.SessionAPI.BaseURL,
		Token:      cfg.SessionAPI.Token,
		Timeout:    config.TTLDuration(cfg.SessionAPI.Timeout, 10*time.Second),
		MaxRetries: cfg.SessionAPI.MaxRetries,
	})
}

func activityConfig(cfg config.Config) activity.Config {
	out := activity.DefaultConfig()
	b := cfg.Activities.Breathing
	out.Breathing.Inhale = config.TTLDuration(b.Inhale, out.Breathing.Inhale)
	out.Breathing.Hold = config.TTLDuration(b.Hold, out.Breathing.Hold)
	out.Breathing.Exhale = config.TTLDuration(b.Exhale, out.Breathing.Exhale)
	if b.Cycles > 0 {
		out.Breathing.Cycles = b.Cycles
	}
	if cfg.Activities.CountingTarget > 0 {
		out.CountingTarget = cfg.Activities.CountingTarget
	}
	return out
}
