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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/educenter-crm-api/api/swagger"
	"github.com/noah-isme/educenter-crm-api/internal/handler"
	"github.com/noah-isme/educenter-crm-api/internal/middleware"
	"github.com/noah-isme/educenter-crm-api/internal/repository"
	"github.com/noah-isme/educenter-crm-api/internal/service"
	"github.com/noah-isme/educenter-crm-api/pkg/cache"
	"github.com/noah-isme/educenter-crm-api/pkg/config"
	"github.com/noah-isme/educenter-crm-api/pkg/database"
	"github.com/noah-isme/educenter-crm-api/pkg/export"
	"github.com/noah-isme/educenter-crm-api/pkg/jobs"
	"github.com/noah-isme/educenter-crm-api/pkg/logger"
	"github.com/noah-isme/educenter-crm-api/pkg/messaging"
	corsmiddleware "github.com/noah-isme/educenter-crm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/educenter-crm-api/pkg/middleware/requestid"
)

// @title EduCenter CRM API
// @version 1.0.0
// @description Scheduling, lifecycle and hours reporting for an education center
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	cacheSvc, closeCache := newCacheService(ctx, cfg, metrics, logr)
	defer closeCache()

	location, err := time.LoadLocation(cfg.Notifications.TimeZone)
	if err != nil {
		logr.Warn("unknown notification time zone, using UTC", zap.String("tz", cfg.Notifications.TimeZone), zap.Error(err))
		location = time.UTC
	}

	var messenger messaging.Messenger = messaging.NoopMessenger{}
	if cfg.Telegram.Enabled() {
		tg, err := messaging.NewTelegramMessenger(messaging.TelegramConfig{
			Token:     cfg.Telegram.BotToken,
			ServerURL: cfg.Telegram.APIURL,
		}, logr)
		if err != nil {
			logr.Fatal("failed to init telegram messenger", zap.Error(err))
		}
		messenger = tg
	} else {
		logr.Info("telegram token not set, guardian notifications disabled")
	}

	validate := validator.New()
	events := repository.NewEventRepository(db)
	catalog := repository.NewCatalogRepository(db)
	guardians := repository.NewGuardianRepository(db)
	reportsRepo := repository.NewReportRepository(db)

	notifier := service.NewNotificationService(events, guardians, messenger, metrics, service.NotificationConfig{
		Location:        location,
		Concurrency:     cfg.Notifications.Concurrency,
		DispatchTimeout: cfg.Notifications.DispatchTimeout,
	}, logr)
	dispatcher := service.NewNotificationDispatcher(notifier, jobs.QueueConfig{
		Workers:    cfg.Notifications.QueueWorkers,
		BufferSize: cfg.Notifications.QueueBuffer,
	}, metrics, logr)
	dispatcher.Start(ctx)

	eventSvc := service.NewEventService(events, catalog, dispatcher, cacheSvc, metrics, validate, logr)
	reportSvc := service.NewReportService(reportsRepo, catalog, cacheSvc, validate, logr)
	exportSvc := service.NewExportService(reportSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.Routes{
		Events:  handler.NewEventHandler(eventSvc),
		Reports: handler.NewReportHandler(reportSvc, exportSvc),
		Metrics: handler.NewMetricsHandler(metrics, db, dispatcher),
		Tokens:  tokens,
		Logger:  logr,
	}.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logr.Warn("notification queue did not drain", zap.Error(err))
	}
}

func newCacheService(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func()) {
	noop := func() {}
	if !cfg.Reports.CacheEnabled {
		return service.NewCacheService(nil, metrics, cfg.Reports.CacheTTL, logr, false), noop
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
		return service.NewCacheService(nil, metrics, cfg.Reports.CacheTTL, logr, false), noop
	}
	repo := repository.NewCacheRepository(client, logr)
	return service.NewCacheService(repo, metrics, cfg.Reports.CacheTTL, logr, true), func() {
		if err := repo.Close(); err != nil {
			logr.Warn("close redis", zap.Error(err))
		}
	}
}
