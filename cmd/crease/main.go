package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/api/rest"
	"github.com/fortuna/crease/internal/api/websocket"
	"github.com/fortuna/crease/internal/backfill"
	"github.com/fortuna/crease/internal/cache"
	"github.com/fortuna/crease/internal/config"
	"github.com/fortuna/crease/internal/logging"
	"github.com/fortuna/crease/internal/publisher"
	"github.com/fortuna/crease/internal/query"
	"github.com/fortuna/crease/internal/store"
)

const (
	serviceName    = "crease"
	serviceVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	envFile := flag.String("env", ".env", "Optional .env file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	logger.Info("Starting cricket query service", zap.String("service", serviceName), zap.String("version", serviceVersion))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	db, err := store.NewDatabase(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("✓ Connected to database", zap.String("driver", cfg.Database.Driver))

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Redis is optional: without it answers are not cached and no events flow
	var (
		answerCache query.AnswerCache
		answerPurge backfill.AnswerCache
		matchPub    backfill.MatchPublisher
		eventSource websocket.EventSource
	)
	if cfg.Redis.URL != "" {
		redisCache, err := connectWithRetry(logger, "Redis cache", func() (*cache.RedisCache, error) {
			return cache.NewRedisCache(cfg.Redis.URL)
		})
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		answerCache = redisCache
		answerPurge = redisCache

		redisPub := publisher.NewRedisStreamPublisher(redisCache.Client())
		matchPub = redisPub
		eventSource = redisPub
		logger.Info("✓ Connected to Redis", zap.String("stream", redisPub.Stream()))
	}

	generator := query.NewHTTPGenerator(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, db.Dialect().Name())
	askService := query.NewService(generator, query.NewExecutor(db), answerCache, cfg.Ask.CacheTTL, logger)

	// Initialize backfill service
	backfillService := backfill.NewService(db, backfill.NewRunner(db, matchPub, logger), cfg.Data.Dir, logger).
		WithAnswerCache(answerPurge)
	backfillService.Start()
	logger.Info("✓ Backfill service started", zap.String("data_dir", cfg.Data.Dir))

	// WebSocket relay
	wsServer := websocket.NewServer(eventSource, logger)
	go wsServer.Run(ctx)

	// Initialize REST API server
	restServer := rest.NewServer(cfg.Server.RESTPort, db, rest.Options{
		Asker:     askService,
		Backfill:  backfillService,
		WebSocket: wsServer.HandleMatches,
		Logger:    logger,
	})
	go func() {
		if err := restServer.Start(); err != nil {
			logger.Error("REST server stopped", zap.Error(err))
		}
	}()

	logger.Info("✓ REST API server listening", zap.String("port", cfg.Server.RESTPort))
	logger.Info("  WebSocket: ws://0.0.0.0:" + cfg.Server.RESTPort + "/ws/matches")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("REST API server shutdown error", zap.Error(err))
	}
	if err := backfillService.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Backfill shutdown error", zap.Error(err))
	}

	logger.Info("Stopped")
}

// connectWithRetry retries connect for about a minute.
func connectWithRetry[T any](logger *zap.Logger, what string, connect func() (T, error)) (T, error) {
	const maxRetries = 30
	retryDelay := 2 * time.Second

	var (
		client T
		err    error
	)
	for i := 0; i < maxRetries; i++ {
		client, err = connect()
		if err == nil {
			return client, nil
		}
		if i < maxRetries-1 {
			logger.Warn("Connection attempt failed",
				zap.String("target", what),
				zap.Int("attempt", i+1),
				zap.Duration("retry_in", retryDelay),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
		}
	}
	return client, fmt.Errorf("%s: giving up after %d attempts: %w", what, maxRetries, err)
}
