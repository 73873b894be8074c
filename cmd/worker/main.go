// Package main runs the background sync worker (calendar to record store,
// with storage folder backfill).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jab-consulting/portal/config"
	"github.com/jab-consulting/portal/internal/records"
	"github.com/jab-consulting/portal/internal/sessions"
	"github.com/jab-consulting/portal/internal/worker"
	"github.com/jab-consulting/portal/pkg/airtable"
	"github.com/jab-consulting/portal/pkg/gcal"
	"github.com/jab-consulting/portal/pkg/queue"
	"github.com/jab-consulting/portal/pkg/redis"
	"github.com/jab-consulting/portal/pkg/storage"
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
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	store := airtable.NewClient(airtable.Config{
		APIKey:  cfg.Airtable.APIKey,
		BaseID:  cfg.Airtable.BaseID,
		BaseURL: cfg.Airtable.BaseURL,
	}, logger)
	sessionRepo := records.NewSessionRepo(store, cfg.Airtable.SessionsTable)

	pem, err := config.NormalizePrivateKey(cfg.Google.PrivateKey)
	if err != nil {
		logger.Fatal("google credentials", zap.Error(err))
	}
	calendar, err := gcal.NewClient(gcal.Config{
		CalendarID:  cfg.Google.CalendarID,
		ClientEmail: cfg.Google.ClientEmail,
		PrivateKey:  pem,
		Subject:     cfg.Google.Subject,
	}, logger)
	if err != nil {
		logger.Fatal("calendar", zap.Error(err))
	}

	// Drive is optional; without it sync runs skip folder backfill.
	var folders sessions.FolderStore
	if drive, err := storage.NewDrive(ctx, storage.Config{
		Region:          cfg.Drive.Region,
		AccessKeyID:     cfg.Drive.AccessKeyID,
		SecretAccessKey: cfg.Drive.SecretAccessKey,
		Bucket:          cfg.Drive.Bucket,
		RootPrefix:      cfg.Drive.RootPrefix,
	}, logger); err != nil {
		logger.Warn("drive disabled", zap.Error(err))
	} else {
		folders = drive
	}

	syncer := sessions.NewSyncer(sessionRepo, calendar, folders, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewSyncProcessor(syncer, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	// Self-schedule periodic syncs when configured.
	if cfg.Sync.IntervalMinutes > 0 {
		interval := time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-workerCtx.Done():
					return
				case <-ticker.C:
					if _, err := jobQueue.EnqueueSessionSync(workerCtx, queue.SessionSyncPayload{
						Query:          cfg.Sync.Query,
						WindowPastDays: cfg.Sync.WindowPastDays,
					}); err != nil {
						logger.Warn("periodic enqueue failed", zap.Error(err))
					}
				}
			}
		}()
		logger.Info("periodic sync enabled", zap.Duration("interval", interval))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
