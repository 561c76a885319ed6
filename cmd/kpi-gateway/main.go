package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/b1411/abai-kpi-api/api/swagger"
	"github.com/b1411/abai-kpi-api/internal/handler"
	internalmiddleware "github.com/b1411/abai-kpi-api/internal/middleware"
	"github.com/b1411/abai-kpi-api/internal/repository"
	"github.com/b1411/abai-kpi-api/internal/service"
	"github.com/b1411/abai-kpi-api/pkg/cache"
	"github.com/b1411/abai-kpi-api/pkg/config"
	"github.com/b1411/abai-kpi-api/pkg/database"
	"github.com/b1411/abai-kpi-api/pkg/jobs"
	"github.com/b1411/abai-kpi-api/pkg/logger"
	corsmiddleware "github.com/b1411/abai-kpi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/b1411/abai-kpi-api/pkg/middleware/requestid"
)

// @title Abai KPI API
// @version 1.0.0
// @description Teacher KPI aggregation and composite scoring service
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.KPI.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
			redisClient = nil
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.KPI.CacheTTL, logr, cfg.KPI.CacheEnabled && redisClient != nil)

	teacherRepo := repository.NewTeacherRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	settingsRepo := repository.NewKpiSettingsRepository(db)
	snapshotRepo := repository.NewKpiSnapshotRepository(db)

	aggregationSvc := service.NewFeedbackAggregationService(feedbackRepo, cfg.KPI.FeedbackWindowDays, logr)
	kpiSvc := service.NewKpiService(service.KpiServiceParams{
		Teachers:    teacherRepo,
		Lessons:     lessonRepo,
		Settings:    settingsRepo,
		Snapshots:   snapshotRepo,
		Aggregation: aggregationSvc,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
	})
	settingsSvc := service.NewKpiSettingsService(settingsRepo, validate, logr)

	notificationSvc := service.NewNotificationService(jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)

	schedulerSvc := service.NewKpiSchedulerService(service.KpiSchedulerParams{
		Teachers:      teacherRepo,
		Settings:      settingsRepo,
		Snapshots:     snapshotRepo,
		Kpi:           kpiSvc,
		Notifications: notificationSvc,
		Metrics:       metricsSvc,
		Logger:        logr,
		Config:        cfg.Scheduler,
		ErrorSample:   cfg.KPI.ErrorSampleLimit,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := settingsSvc.EnsureDefaults(rootCtx); err != nil {
		logr.Sugar().Fatalw("failed to seed metric settings", "error", err)
	}

	notificationSvc.Start(rootCtx)
	defer notificationSvc.Stop()

	if err := schedulerSvc.Start(rootCtx); err != nil {
		logr.Sugar().Fatalw("failed to start scheduler", "error", err)
	}
	defer schedulerSvc.Stop()

	kpiHandler := handler.NewKpiHandler(kpiSvc, schedulerSvc)
	settingsHandler := handler.NewKpiSettingsHandler(settingsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/teachers/:id/kpi", kpiHandler.Details)
		api.GET("/teachers/:id/kpi/feedback", kpiHandler.Feedback)
		api.GET("/teachers/:id/kpi/metrics", kpiHandler.Aggregations)
		api.GET("/teachers/:id/kpi/history", kpiHandler.History)

		api.POST("/kpi/recalculate", kpiHandler.Recalculate)
		api.GET("/kpi/settings", settingsHandler.List)
		api.PUT("/kpi/settings", settingsHandler.Update)
		api.GET("/kpi/settings/organization", settingsHandler.GetOrganization)
		api.PUT("/kpi/settings/organization", settingsHandler.UpdateOrganization)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
