package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	_ "github.com/alexandreamato/spamanvil/docs"
	"github.com/alexandreamato/spamanvil/internal/config"
	"github.com/alexandreamato/spamanvil/internal/crypto"
	"github.com/alexandreamato/spamanvil/internal/heuristics"
	"github.com/alexandreamato/spamanvil/internal/provider"
	"github.com/alexandreamato/spamanvil/internal/repository/postgresql"
	"github.com/alexandreamato/spamanvil/internal/scheduler"
	"github.com/alexandreamato/spamanvil/internal/service"
	"github.com/alexandreamato/spamanvil/internal/settings"
	httptransport "github.com/alexandreamato/spamanvil/internal/transport/http"
	"github.com/alexandreamato/spamanvil/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// @title SpamAnvil API
// @version 1.0
// @description LLM-assisted spam classification pipeline for hosted comment submissions.
// @BasePath /
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Str("dsn", cfg.RedactedDSN()).Msg("postgres")
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis")
	}

	encryptor, err := crypto.NewEncryptor([]byte(cfg.MasterKey))
	if err != nil {
		logger.Fatal().Err(err).Msg("encryptor")
	}

	// Repositories.
	jobs := postgresql.NewJobRepository(pool)
	subs := postgresql.NewSubmissionRepository(pool)
	origins := postgresql.NewOriginRepository(pool)
	evalLogs := postgresql.NewEvalLogRepository(pool)
	settingsRepo := postgresql.NewSettingsRepository(pool)

	appSettings := settings.NewService(settingsRepo, encryptor)
	if err := appSettings.Seed(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed settings")
	}

	engine := heuristics.NewEngine(heuristics.DefaultSpamWords, "en")
	if words, err := appSettings.SpamWords(ctx); err == nil {
		engine.SetWordList(words)
	}
	if locale, err := appSettings.SiteLanguage(ctx); err == nil {
		engine.SetLocale(locale)
	}

	// Services.
	hooks := service.NewHooks()
	factory := provider.NewFactory(appSettings)
	stats := service.NewStatsService(rdb, evalLogs, logger)
	prompts := service.NewPromptBuilder(appSettings, hooks)
	selector := service.NewSelector(factory, logger)
	reputation := service.NewReputationService(origins, appSettings, logger)
	lease := service.NewRedisLease(rdb)

	queue := service.NewQueueService(
		jobs, subs, evalLogs, selector, prompts, engine,
		reputation, stats, appSettings, lease, hooks, logger,
	)
	intake := service.NewIntakeService(
		subs, queue, evalLogs, engine, reputation, stats, appSettings, logger,
	)

	runner := worker.NewRunner(queue, logger)
	go runner.Run(ctx)
	runner.Trigger(service.ProcessOptions{})

	sched, err := scheduler.New(runner, intake, queue, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	sched.Start()
	defer sched.Stop()

	handler := httptransport.NewHandler(intake, queue, reputation, evalLogs, stats, factory)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httptransport.Routes(handler, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("dsn", cfg.RedactedDSN()).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	logger.Info().Msg("stopped")
}
