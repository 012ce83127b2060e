package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/database"
	"github.com/kontrolhq/kontrol-backend/internal/handler"
	"github.com/kontrolhq/kontrol-backend/internal/logger"
	"github.com/kontrolhq/kontrol-backend/internal/quizbank"
	"github.com/kontrolhq/kontrol-backend/internal/repository"
	"github.com/kontrolhq/kontrol-backend/internal/router"
	"github.com/kontrolhq/kontrol-backend/internal/service"
	"github.com/kontrolhq/kontrol-backend/internal/session"
	"github.com/kontrolhq/kontrol-backend/internal/submit"
	"github.com/kontrolhq/kontrol-backend/internal/validator"
	"github.com/kontrolhq/kontrol-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", string(cfg.Mode)).
		Str("data_url", cfg.DataURL).
		Int("duration_minutes", cfg.DurationMinutes).
		Msg("Starting Kontrol Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Question Bank ────────────────────────────────────────────
	// A bank that fails to load is fatal: there is nothing to serve.
	bank, err := quizbank.NewClient(log).Load(ctx, cfg.DataURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load question bank")
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewSessionRepository(rdb, cfg.DataURL)
	submissionRepo := repository.NewSubmissionRepository(pool)

	// ─── Initialize Transport ──────────────────────────────────────────
	transport, err := submit.NewTransport(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure submit transport")
	}
	log.Info().Str("transport", transport.Name()).Msg("Submit transport ready")

	// ─── Initialize Services ───────────────────────────────────────────
	clock := session.SystemClock{}
	authService := service.NewAuthService(cfg)
	sessionService := service.NewSessionService(sessionRepo, bank, cfg, clock, log)
	submitService := service.NewSubmitService(sessionRepo, bank, transport, rdb, cfg, clock, log)

	// ─── Initialize Handlers ───────────────────────────────────────────
	handlers := &router.Handlers{
		Quiz:    handler.NewQuizHandler(sessionService, cfg),
		Session: handler.NewSessionHandler(sessionService, submitService, cfg),
		Collect: handler.NewCollectHandler(submissionRepo, log),
		Teacher: handler.NewTeacherHandler(authService, submissionRepo),
		WS:      handler.NewWSHandler(rdb, sessionService, cfg, log),
	}

	// ─── Start Background Workers ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	timerWorker := worker.NewTimerWorker(sessionRepo, submitService, rdb, cfg, clock, log)
	go timerWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the timer worker. Timers live in Redis, so nothing is lost:
	// the next start resumes every countdown from the persisted instants.
	workerCancel()
	time.Sleep(time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
