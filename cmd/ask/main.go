// Command ask serves the conversational /ask endpoint. Each browser session
// gets its own transcript.
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
	"autonomeal/chat"
	"autonomeal/config"
	"autonomeal/handlers"
	"autonomeal/upstream"
	"autonomeal/utils"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	defer logger.Sync()

	if err := cfg.ValidateAsk(); err != nil {
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

	sessions := auth.NewSessionManager(utils.NewRedisSessionStore(redisClient), cfg.Auth.SessionLifetime, logger)
	transcripts := utils.NewRedisTranscriptStore(redisClient, cfg.Auth.SessionLifetime)
	openai := upstream.NewOpenAIClient(cfg.Upstream.OpenAIKey, cfg.Upstream.OpenAIBaseURL, cfg.Upstream.Timeout, nil, logger)
	conversations := chat.NewService(transcripts, openai, cfg.Upstream.ChatModel, logger)

	checks := map[string]handlers.PingFunc{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}
	router := handlers.NewAskRouter(sessions, conversations, checks, handlers.Options{
		SecureCookies:  cfg.Auth.SecureCookies,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Server.AskAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return utils.Serve(ctx, srv, cfg.Server.ShutdownTimeout, logger)
}
