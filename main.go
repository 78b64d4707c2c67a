package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autonomeal/auth"
	"autonomeal/config"
	"autonomeal/handlers"
	"autonomeal/pipeline"
	"autonomeal/upstream"
	"autonomeal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	defer logger.Sync()
	logger.Info("environment", zap.String("env", cfg.App.Environment))

	if err := cfg.ValidateAPI(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	redisClient, err := utils.OpenRedisPool(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	checks := map[string]handlers.PingFunc{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}
	sessions := auth.NewSessionManager(utils.NewRedisSessionStore(redisClient), cfg.Auth.SessionLifetime, logger)

	var authSvc *auth.Service
	if cfg.Auth.Enabled {
		if err := utils.RunMigrations(ctx, cfg.Database.URL); err != nil {
			return err
		}
		dbPool, err := utils.OpenDB(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer dbPool.Close()

		users := utils.NewPostgresUserStore(dbPool)
		checks["postgres"] = users.Ping

		var mailer auth.Mailer
		if cfg.Mail.SendGridKey != "" {
			mailer = utils.NewMailer(cfg.Mail.SendGridKey, cfg.Mail.FromName, cfg.Mail.FromEmail, logger)
		}
		authSvc = auth.NewService(users, sessions, mailer, cfg.Auth.BcryptCost, logger)
	} else {
		logger.Warn("authentication is disabled, recipe endpoints are public")
	}

	metrics := upstream.NewMetrics(prometheus.DefaultRegisterer)
	openai := upstream.NewOpenAIClient(cfg.Upstream.OpenAIKey, cfg.Upstream.OpenAIBaseURL, cfg.Upstream.Timeout, metrics, logger)
	imgbb := upstream.NewImgBBClient(cfg.Upstream.ImgBBKey, cfg.Upstream.ImgBBURL, cfg.Upstream.Timeout, metrics, logger)
	stability := upstream.NewStabilityClient(cfg.Upstream.StabilityKey, cfg.Upstream.StabilityURL, cfg.Upstream.Timeout, metrics, logger)

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	recipes := pipeline.NewService(openai, imgbb, stability, blobs, pipeline.Options{
		UploadDir:   cfg.Images.UploadDir,
		VisionModel: cfg.Upstream.VisionModel,
		RecipeModel: cfg.Upstream.RecipeModel,
	}, logger)

	router := handlers.NewRouter(handlers.Services{
		Sessions: sessions,
		Auth:     authSvc,
		Pipeline: recipes,
		Checks:   checks,
		Metrics:  promhttp.Handler(),
	}, handlers.Options{
		AuthEnabled:    cfg.Auth.Enabled,
		SecureCookies:  cfg.Auth.SecureCookies,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RatePerMinute:  cfg.Auth.RatePerMinute,
		RateBurst:      cfg.Auth.RateBurst,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return utils.Serve(ctx, srv, cfg.Server.ShutdownTimeout, logger)
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (pipeline.BlobStore, error) {
	if cfg.Images.Backend == "s3" {
		client, err := pipeline.NewS3Client(ctx, pipeline.S3Options{
			Region:    cfg.Images.S3Region,
			Endpoint:  cfg.Images.S3Endpoint,
			AccessKey: cfg.Images.S3AccessKey,
			SecretKey: cfg.Images.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("storing generated images in s3", zap.String("bucket", cfg.Images.S3Bucket))
		return pipeline.NewS3Store(client, cfg.Images.S3Bucket), nil
	}

	store, err := pipeline.NewDiskStore(cfg.Images.Dir)
	if err != nil {
		return nil, err
	}
	if cfg.Images.Retention > 0 {
		go pipeline.RunRetention(ctx, store, cfg.Images.Retention, sweepInterval(cfg.Images.Retention), logger)
	}
	return store, nil
}

// sweepInterval checks a few times per retention window, at most hourly.
func sweepInterval(retention time.Duration) time.Duration {
	interval := retention / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
