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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-bulletin-api/api/swagger"
	"github.com/noah-isme/sma-bulletin-api/internal/handler"
	"github.com/noah-isme/sma-bulletin-api/internal/repository"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	"github.com/noah-isme/sma-bulletin-api/internal/worker"
	"github.com/noah-isme/sma-bulletin-api/pkg/cache"
	"github.com/noah-isme/sma-bulletin-api/pkg/config"
	"github.com/noah-isme/sma-bulletin-api/pkg/database"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
	"github.com/noah-isme/sma-bulletin-api/pkg/logger"
	"github.com/noah-isme/sma-bulletin-api/pkg/storage"
)

// @title SMA Bulletin API
// @version 1.0.0
// @description School bulletin board: announcements, calendar events, welcome slides and signage feed
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := validator.New()
	resolver := visibility.NewResolver(cfg.Display.Location())

	checks := map[string]handler.Pinger{"database": handler.PingFunc(db.PingContext)}
	var cacheRepo service.CacheRepository
	if cfg.Feed.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, feed caching disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close()
			cacheRepo = repo
			checks["redis"] = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Feed.CacheTTL, logr, cfg.Feed.CacheEnabled)

	media, err := storage.NewLocalStorage(cfg.Media.StorageDir)
	if err != nil {
		return fmt.Errorf("open media storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)

	mux := jobs.NewMux()
	queue := jobs.NewQueue("bulletin", mux.Process, jobs.QueueConfig{
		Workers:    cfg.Worker.Concurrency,
		BufferSize: 64,
		MaxRetries: cfg.Worker.Retries,
		RetryDelay: cfg.Worker.RetryDelay,
		Logger:     logr,
	})

	users := repository.NewUserRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	eventRepo := repository.NewEventRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	calendars := service.NewCalendarService(calendarRepo, cacheSvc, queue, validate, logr)
	events := service.NewEventService(eventRepo, calendarRepo, resolver, cacheSvc, queue, metrics, validate, logr)
	announcements := service.NewAnnouncementService(announcementRepo, resolver, cacheSvc, queue, metrics, validate, logr)
	welcome := service.NewWelcomeService(repository.NewWelcomeAssetRepository(db), media, signer, cfg.APIPrefix, cacheSvc, queue, validate, logr)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), users, queue, validate, logr)
	feeds := service.NewFeedService(events, announcements, welcome, resolver, cacheSvc, cfg.Feed.CacheTTL, metrics, logr)
	exports := service.NewExportService(eventRepo, announcementRepo, resolver, logr)
	ics := service.NewICSService(calendarRepo, eventRepo, cfg.JWT.Issuer, logr)
	clock := service.NewTimeService(resolver)

	worker.Register(mux, feeds, notifications, metrics, logr)
	queue.Start(ctx)
	defer queue.Stop()

	scheduler, err := worker.NewScheduler(cfg.Feed.RefreshSchedule, resolver.Location(), queue, logr)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Tokens:         authSvc,
		Observer:       metrics,
		Audit:          users,
		Auth:           handler.NewAuthHandler(authSvc),
		Feed:           handler.NewFeedHandler(feeds, clock, resolver),
		Events:         handler.NewEventHandler(events, exports, clock, resolver),
		Announcements:  handler.NewAnnouncementHandler(announcements, exports, clock, resolver),
		Calendars:      handler.NewCalendarHandler(calendars, ics),
		Welcome:        handler.NewWelcomeHandler(welcome),
		Notifications:  handler.NewNotificationHandler(notifications),
		Metrics:        handler.NewMetricsHandler(metrics.Handler(), checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("display_timezone", resolver.Location().String()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Warm the signage snapshot so the first screen poll is served from cache.
	if err := queue.TryEnqueue(jobs.Job{Type: service.JobSignageRefresh, Payload: "startup"}); err != nil {
		logr.Warn("failed to queue startup signage refresh", zap.Error(err))
	}

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
