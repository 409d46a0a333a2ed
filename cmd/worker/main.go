// Package main is the entry point for the LearnFlow background worker.
//
// The worker runs periodic maintenance:
// - Sweeping expired auth sessions past the retention window
// - Closing chat sessions that went idle
// - Redriving dead-lettered events back through the publisher
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/learnflow/learnflow-backend/config"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/internal/infrastructure/messaging"
	"github.com/learnflow/learnflow-backend/internal/infrastructure/persistence/postgres"
	"github.com/learnflow/learnflow-backend/internal/infrastructure/persistence/redis"
	"github.com/learnflow/learnflow-backend/internal/infrastructure/scheduler"
	"github.com/learnflow/learnflow-backend/internal/infrastructure/scheduler/jobs"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting LearnFlow worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// The worker also needs an up-to-date schema.
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional, for the shared event bus)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, events stay local", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS & PUBLISHER
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log

	var bus eventBus
	if redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewCacheRedisClient(redisCache),
			LocalBusConfig: busConfig,
			Logger:         log,
		})
		if err != nil {
			log.Warn("failed to start Redis event bus, falling back to in-memory", "error", err)
		} else {
			bus = redisBus
		}
	}
	if bus == nil {
		bus = messaging.NewInMemoryEventBus(busConfig)
	}
	defer func() { _ = bus.Close() }()

	pubCfg := messaging.DefaultPublisherConfig(bus)
	pubCfg.Logger = log
	publisher := messaging.NewPublisher(pubCfg)
	defer func() { _ = publisher.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SCHEDULER & JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sessionRepo := postgres.NewSessionRepository(dbConn)
	chatSessionRepo := postgres.NewChatSessionRepository(dbConn)

	sched := scheduler.New(scheduler.Config{Logger: log})

	sweepCfg := jobs.DefaultSweepSessionsConfig()
	sweepCfg.Retention = cfg.Scheduler.SessionRetention
	sweepJob := jobs.NewSweepSessionsJob(sessionRepo, publisher, log, sweepCfg)

	staleCfg := jobs.DefaultCloseStaleChatsConfig()
	staleCfg.IdleTimeout = cfg.Scheduler.ChatIdleTimeout
	staleJob := jobs.NewCloseStaleChatsJob(chatSessionRepo, publisher, log, staleCfg)

	redriveJob := jobs.NewRedriveDeadLettersJob(publisher, log, jobs.DefaultRedriveDeadLettersConfig())

	if err := sched.Register(sweepJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SweepSessionsInterval)); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	if err := sched.Register(staleJob, scheduler.NewIntervalSchedule(cfg.Scheduler.CloseStaleChatsInterval)); err != nil {
		return fmt.Errorf("register stale chats job: %w", err)
	}
	if err := sched.Register(redriveJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RedriveDeadLettersInterval)); err != nil {
		return fmt.Errorf("register redrive job: %w", err)
	}

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled by configuration, worker will idle")
	} else {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("LearnFlow worker is running", "jobs", len(sched.ListJobs()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	if sched.IsRunning() {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler gracefully", "error", err)
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

// eventBus is the closable bus both messaging implementations satisfy.
type eventBus interface {
	shared.EventBus
	Close() error
}

// setupLogger configures structured logging.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
