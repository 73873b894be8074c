// Package main runs the portal HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jab-consulting/portal/config"
	"github.com/jab-consulting/portal/internal/assets"
	"github.com/jab-consulting/portal/internal/middleware"
	"github.com/jab-consulting/portal/internal/records"
	"github.com/jab-consulting/portal/internal/registrations"
	"github.com/jab-consulting/portal/internal/sessions"
	"github.com/jab-consulting/portal/pkg/airtable"
	"github.com/jab-consulting/portal/pkg/gcal"
	"github.com/jab-consulting/portal/pkg/queue"
	"github.com/jab-consulting/portal/pkg/redis"
	"github.com/jab-consulting/portal/pkg/response"
	"github.com/jab-consulting/portal/pkg/storage"
	"github.com/jab-consulting/portal/pkg/webhook"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx := context.Background()

	store := airtable.NewClient(airtable.Config{
		APIKey:  cfg.Airtable.APIKey,
		BaseID:  cfg.Airtable.BaseID,
		BaseURL: cfg.Airtable.BaseURL,
	}, logger)
	sessionRepo := records.NewSessionRepo(store, cfg.Airtable.SessionsTable)
	registrationRepo := records.NewRegistrationRepo(store, cfg.Airtable.RegistrationsTable)
	participantRepo := records.NewParticipantRepo(store, cfg.Airtable.ParticipantsTable)

	// Calendar is optional: without credentials registrations still save,
	// only the invite step is disabled.
	var calendar registrations.Calendar
	if cfg.Google.CalendarID != "" && cfg.Google.ClientEmail != "" {
		pem, err := config.NormalizePrivateKey(cfg.Google.PrivateKey)
		if err != nil {
			logger.Warn("calendar disabled", zap.Error(err))
		} else {
			client, err := gcal.NewClient(gcal.Config{
				CalendarID:  cfg.Google.CalendarID,
				ClientEmail: cfg.Google.ClientEmail,
				PrivateKey:  pem,
				Subject:     cfg.Google.Subject,
			}, logger)
			if err != nil {
				logger.Warn("calendar disabled", zap.Error(err))
			} else {
				calendar = client
			}
		}
	}

	var notifier registrations.Notifier
	if n := webhook.NewNotifier(cfg.Webhook.RegistrationURL); n != nil {
		notifier = n
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	var syncQueue *queue.Queue
	var assetCache *assets.Service
	var drive *storage.Drive
	if d, err := storage.NewDrive(ctx, storage.Config{
		Region:          cfg.Drive.Region,
		AccessKeyID:     cfg.Drive.AccessKeyID,
		SecretAccessKey: cfg.Drive.SecretAccessKey,
		Bucket:          cfg.Drive.Bucket,
		RootPrefix:      cfg.Drive.RootPrefix,
	}, logger); err != nil {
		logger.Warn("drive disabled", zap.Error(err))
	} else {
		drive = d
	}
	if rdb != nil {
		syncQueue = queue.NewQueue(rdb.Client, logger)
	}
	if drive != nil {
		assetCache = assets.NewService(drive, rdbClient(rdb), logger)
	}

	registrationSvc := registrations.NewService(sessionRepo, registrationRepo, participantRepo, calendar, notifier, cfg.Site.BaseURL, logger)
	registrationHandler := registrations.NewHandler(registrationSvc, logger)
	sessionHandler := sessions.NewHandler(sessionRepo, syncQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		api.POST("/register", registrationHandler.Register)
		api.GET("/confirm", registrationHandler.Confirm)
		api.GET("/sessions", sessionHandler.List)
		api.POST("/sessions/sync", sessionHandler.TriggerSync)
		if assetCache != nil {
			assetHandler := assets.NewHandler(assetCache, logger)
			api.GET("/assets", assetHandler.Get)
			api.POST("/assets", assetHandler.Upload)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func rdbClient(rdb *redis.Client) *goredis.Client {
	if rdb == nil {
		return nil
	}
	return rdb.Client
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
