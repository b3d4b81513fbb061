// Package main runs the exhibition directory HTTP API with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/expo-directory/backend/config"
	"github.com/expo-directory/backend/internal/ardesigns"
	"github.com/expo-directory/backend/internal/auth"
	"github.com/expo-directory/backend/internal/exhibitions"
	"github.com/expo-directory/backend/internal/middleware"
	"github.com/expo-directory/backend/internal/worker"
	"github.com/expo-directory/backend/pkg/database"
	"github.com/expo-directory/backend/pkg/queue"
	"github.com/expo-directory/backend/pkg/redis"
	"github.com/expo-directory/backend/pkg/response"
	"github.com/expo-directory/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	store := exhibitions.NewPgStore(pool)
	svc := exhibitions.NewService(store, logger)
	svc.SetDefaultPerPage(cfg.Listing.DefaultPerPage)

	var processor *worker.ImageSyncProcessor
	if cfg.ImageSyncReady() {
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

		jobQueue := queue.NewQueue(rdb.Client, logger)
		svc.SetImageSync(jobQueue, s3Client.ExhibitionImageURL)
		if cfg.ImageSync.InProcess {
			processor = worker.NewImageSyncProcessor(svc, s3Client, jobQueue, logger)
		}
	} else if cfg.ImageSync.Enabled {
		logger.Warn("image sync enabled but AWS_S3_IMAGES_BUCKET is empty; mirroring disabled")
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authHandler := auth.NewHandler(auth.NewRepository(pool), jwtService, logger)
	arHandler := ardesigns.NewHandler(ardesigns.NewRepository(pool), logger)
	exhibitionHandler := exhibitions.NewHandler(svc, cfg.Server.MaxImageBytes, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Error: "database unavailable"})
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", middleware.JWT(jwtService), authHandler.Me)
	}

	// Public directory
	v1.GET("/exhibitions", exhibitionHandler.List)
	v1.GET("/exhibitions/categories", exhibitionHandler.Categories)
	v1.GET("/exhibitions/:id", exhibitionHandler.GetPublished)
	v1.GET("/exhibitions/:id/image", exhibitionHandler.GetPublishedImage)
	v1.GET("/ar-designs", arHandler.List)

	// Exhibitor-scoped (JWT required)
	me := v1.Group("/me")
	me.Use(middleware.JWT(jwtService))
	{
		me.POST("/exhibitions", exhibitionHandler.Create)
		me.GET("/exhibition", exhibitionHandler.GetMine)
		me.GET("/exhibitions/:id", exhibitionHandler.Get)
		me.PATCH("/exhibitions/:id", exhibitionHandler.Update)
		me.DELETE("/exhibitions/:id", exhibitionHandler.Delete)
		me.POST("/exhibitions/:id/publish", exhibitionHandler.Publish)
		me.POST("/exhibitions/:id/unpublish", exhibitionHandler.Unpublish)
		me.POST("/exhibitions/:id/draft", exhibitionHandler.Draft)
		me.PUT("/exhibitions/:id/image", exhibitionHandler.UploadImage)
		me.GET("/exhibitions/:id/image", exhibitionHandler.GetImage)
		me.DELETE("/exhibitions/:id/image", exhibitionHandler.DeleteImage)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if processor != nil {
		g.Go(func() error {
			processor.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
