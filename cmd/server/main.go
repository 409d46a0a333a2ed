// Package main is the entry point for the LearnFlow backend API server.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: repositories, cache, messaging, external APIs
// - Interface: HTTP REST API
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

	"github.com/learnflow/learnflow-backend/config"
	"github.com/learnflow/learnflow-backend/internal/application/command"
	"github.com/learnflow/learnflow-backend/internal/application/query"
	"github.com/learnflow/learnflow-backend/internal/domain/auth"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/internal/infrastructure/external/gemini"
	"github.com/learnflow/learnflow-backend/internal/infrastructure/messaging"
	"github.com/learnflow/learnflow-backend/internal/infrastructure/persistence/postgres"
	"github.com/learnflow/learnflow-backend/internal/infrastructure/persistence/redis"
	httpserver "github.com/learnflow/learnflow-backend/internal/interface/http"
	"github.com/learnflow/learnflow-backend/internal/interface/http/handlers"
	"github.com/learnflow/learnflow-backend/pkg/logger"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
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
	appLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	log.Info("starting LearnFlow backend",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var sessionCache *redis.SessionCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, session caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			sessionCache = redis.NewSessionCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	studentRepo := postgres.NewStudentRepository(dbConn)
	sessionRepo := postgres.NewSessionRepository(dbConn)
	chatSessionRepo := postgres.NewChatSessionRepository(dbConn)
	chatMessageRepo := postgres.NewChatMessageRepository(dbConn)
	exerciseRepo := postgres.NewExerciseRepository(dbConn)
	submissionRepo := postgres.NewSubmissionRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS & PUBLISHER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")

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
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	pubCfg := messaging.DefaultPublisherConfig(bus)
	pubCfg.Logger = log
	publisher := messaging.NewPublisher(pubCfg)
	defer func() {
		log.Info("closing event publisher...")
		_ = publisher.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ASSISTANT RESPONDER
	// ─────────────────────────────────────────────────────────────────────────
	var responder command.AssistantResponder

	if cfg.Gemini.APIKey != "" {
		log.Info("initializing completion API client", "model", cfg.Gemini.Model)
		clientCfg := gemini.DefaultClientConfig(cfg.Gemini.APIKey)
		if cfg.Gemini.BaseURL != "" {
			clientCfg.BaseURL = cfg.Gemini.BaseURL
		}
		if cfg.Gemini.Model != "" {
			clientCfg.Model = cfg.Gemini.Model
		}
		clientCfg.Temperature = cfg.Gemini.Temperature
		clientCfg.MaxTokens = cfg.Gemini.MaxTokens
		clientCfg.Timeout = cfg.Gemini.RequestTimeout
		clientCfg.Logger = log
		clientCfg.Debug = cfg.App.Debug
		responder = gemini.NewClient(clientCfg)
	} else {
		log.Warn("no completion API key configured, using mock responder")
		responder = gemini.NewMockResponder()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER (Commands & Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	hasher := command.NewBcryptHasher(cfg.Auth.BcryptCost)
	clock := timeutil.SystemClock

	registerCmd := command.NewRegisterStudentHandler(studentRepo, hasher, publisher, appLog)
	loginCmd := command.NewLoginHandler(studentRepo, sessionRepo, sessionCacheOrNil(sessionCache), hasher, publisher, command.LoginHandlerConfig{
		SessionTTL: cfg.Auth.SessionTTL,
		Clock:      clock,
	}, appLog)
	logoutCmd := command.NewLogoutHandler(sessionRepo, sessionCacheOrNil(sessionCache), clock, appLog)
	changePasswordCmd := command.NewChangePasswordHandler(studentRepo, hasher, publisher, appLog)
	deactivateCmd := command.NewDeactivateStudentHandler(studentRepo, publisher, appLog)

	openChatCmd := command.NewOpenChatHandler(studentRepo, chatSessionRepo, publisher, clock, appLog)
	sendMessageCmd := command.NewSendChatMessageHandler(chatSessionRepo, chatMessageRepo, responder, publisher, clock, appLog)
	closeChatCmd := command.NewCloseChatHandler(chatSessionRepo, chatMessageRepo, publisher, clock, appLog)

	createExerciseCmd := command.NewCreateExerciseHandler(exerciseRepo, clock, appLog)
	submitExerciseCmd := command.NewSubmitExerciseHandler(exerciseRepo, submissionRepo, publisher, clock, appLog)
	scoreSubmissionCmd := command.NewScoreSubmissionHandler(submissionRepo, progressRepo, publisher, clock, appLog)

	validateSessionQuery := query.NewValidateSessionHandler(sessionRepo, sessionCacheOrNil(sessionCache), studentRepo, clock, appLog)
	listChatsQuery := query.NewListChatSessionsHandler(chatSessionRepo, chatMessageRepo)
	chatHistoryQuery := query.NewGetChatHistoryHandler(chatSessionRepo, chatMessageRepo)
	listExercisesQuery := query.NewListExercisesHandler(exerciseRepo)
	getExerciseQuery := query.NewGetExerciseHandler(exerciseRepo)
	listSubmissionsQuery := query.NewListSubmissionsHandler(submissionRepo)
	getProgressQuery := query.NewGetProgressHandler(progressRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	httpDeps := httpserver.Dependencies{
		RegisterStudent:   registerCmd,
		Login:             loginCmd,
		Logout:            logoutCmd,
		ChangePassword:    changePasswordCmd,
		DeactivateStudent: deactivateCmd,
		OpenChat:          openChatCmd,
		SendChatMessage:   sendMessageCmd,
		CloseChat:         closeChatCmd,
		CreateExercise:    createExerciseCmd,
		SubmitExercise:    submitExerciseCmd,
		ScoreSubmission:   scoreSubmissionCmd,
		ValidateSession:   validateSessionQuery,
		ListChatSessions:  listChatsQuery,
		GetChatHistory:    chatHistoryQuery,
		ListExercises:     listExercisesQuery,
		GetExercise:       getExerciseQuery,
		ListSubmissions:   listSubmissionsQuery,
		GetProgress:       getProgressQuery,
		Logger:            appLog,
		HealthChecker:     healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. START
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("LearnFlow backend is running", "address", httpServer.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// eventBus is the closable bus both messaging implementations satisfy.
type eventBus interface {
	shared.EventBus
	Close() error
}

// sessionCacheOrNil avoids handing a typed nil pointer to handlers that
// compare the cache interface against nil.
func sessionCacheOrNil(c *redis.SessionCache) auth.Cache {
	if c == nil {
		return nil
	}
	return c
}

// setupLogger configures structured logging for infrastructure components.
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
