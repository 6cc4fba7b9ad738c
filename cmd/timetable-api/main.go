package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/router"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	"github.com/noah-isme/sma-timetable-api/pkg/messaging"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly timetable registry with slot conflict checks and section auto-generation.
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	if cfg.Timetable.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		repo := repository.NewCacheRepository(client, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled)

	var publisher service.EventPublisher = service.NewLogPublisher(logr)
	if cfg.AMQP.Enabled {
		conn, ch, err := messaging.Dial(cfg.AMQP.URL)
		if err != nil {
			logr.Fatal("failed to connect amqp", zap.Error(err))
		}
		defer conn.Close()
		broker, err := messaging.NewPublisher(ch, cfg.AMQP.Exchange, logr)
		if err != nil {
			logr.Fatal("failed to init amqp publisher", zap.Error(err))
		}
		defer broker.Close() //nolint:errcheck
		publisher = service.NewBrokerPublisher(broker)
	}

	notifications := service.NewNotificationService(publisher, metrics, logr)
	queue := jobs.NewQueue("timetable-notifications", notifications.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	queue.Start(context.Background())
	defer queue.Stop()
	notifications.UseQueue(queue)

	clock, err := service.NewPeriodClock(cfg.Timetable)
	if err != nil {
		logr.Fatal("invalid timetable configuration", zap.Error(err))
	}

	entries := repository.NewTimetableEntryRepository(db)
	sectionSubjects := repository.NewSectionSubjectRepository(db)
	checker := service.NewConflictChecker(entries, cfg.Timetable.EnforceRoomConflicts, metrics, logr)
	timetable := service.NewTimetableService(entries, checker, clock, db, notifications, cacheSvc, cfg.Timetable.CacheTTL, validate, logr)
	generator := service.NewTimetableGeneratorService(timetable, sectionSubjects, metrics, validate, logr)
	exporter := service.NewExportService(timetable, nil, nil, logr)

	engine := router.New(router.Options{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
	}, router.Handlers{
		Timetable: handler.NewTimetableHandler(timetable, exporter),
		Generator: handler.NewTimetableGeneratorHandler(generator),
		Metrics:   handler.NewMetricsHandler(metrics, db),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting",
			"addr", server.Addr,
			"env", cfg.Env,
			"periods_per_day", clock.PeriodsPerDay,
			"room_conflicts", checker.RoomsEnforced(),
			"cache", cacheSvc.Enabled(),
			"amqp", cfg.AMQP.Enabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}
