// Package main runs the stand-alone image sync worker.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/expo-directory/backend/config"
	"github.com/expo-directory/backend/internal/exhibitions"
	"github.com/expo-directory/backend/internal/worker"
	"github.com/expo-directory/backend/pkg/database"
	"github.com/expo-directory/backend/pkg/queue"
	"github.com/expo-directory/backend/pkg/redis"
	"github.com/expo-directory/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.AWS.ImagesBucket == "" {
		logger.Fatal("AWS_S3_IMAGES_BUCKET is required for the image sync worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		ImagesBucket:    cfg.AWS.ImagesBucket,
		PublicRead:      cfg.AWS.PublicRead,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	svc := exhibitions.NewService(exhibitions.NewPgStore(pool), logger)
	processor := worker.NewImageSyncProcessor(svc, s3Client, queue.NewQueue(rdb.Client, logger), logger)

	processor.Run(ctx)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
